package appointment

import (
	"cmp"
	"slices"
	"strings"
)

// Compare orders by distance ascending, records with a distance first. Ties
// and records without a distance fall back to the first available date, dated
// records first, then facility name. The ID breaks remaining ties so the order
// never depends on sort stability.
func Compare(a, b Ranked) int {
	if c := compareKnown(a.Distance != nil, b.Distance != nil); c != 0 {
		return c
	}
	if a.Distance != nil {
		if c := cmp.Compare(*a.Distance, *b.Distance); c != 0 {
			return c
		}
	}

	if c := compareKnown(a.FirstAvailableDate != "", b.FirstAvailableDate != ""); c != 0 {
		return c
	}
	if c := strings.Compare(a.FirstAvailableDate, b.FirstAvailableDate); c != 0 {
		return c
	}
	if c := strings.Compare(a.FacilityName, b.FacilityName); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

// compareKnown puts present values before absent ones.
func compareKnown(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

func Sort(list []Ranked) {
	slices.SortFunc(list, Compare)
}
