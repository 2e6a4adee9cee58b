package output

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"terminy/appointment"
)

// FacilitySummary aggregates the listings of one facility at one location.
type FacilitySummary struct {
	Region          string
	Facility        string
	Location        string
	Services        int
	Listings        int
	WaitingCount    int
	EarliestDate    string
	AverageWaitDays float64
	NearestKm       *float64
}

type facilityKey struct {
	region   string
	facility string
	location string
}

func BuildFacilitySummaries(list []appointment.Ranked) []FacilitySummary {
	if len(list) == 0 {
		return []FacilitySummary{}
	}

	byFacility := make(map[facilityKey][]appointment.Ranked)
	for _, item := range list {
		key := facilityKey{
			region:   item.Region,
			facility: strings.TrimSpace(item.FacilityName),
			location: strings.TrimSpace(item.Location),
		}
		byFacility[key] = append(byFacility[key], item)
	}

	keys := make([]facilityKey, 0, len(byFacility))
	for key := range byFacility {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].region != keys[j].region {
			return keys[i].region < keys[j].region
		}
		if keys[i].facility != keys[j].facility {
			return keys[i].facility < keys[j].facility
		}
		return keys[i].location < keys[j].location
	})

	summaries := make([]FacilitySummary, 0, len(keys))
	for _, key := range keys {
		summaries = append(summaries, summarizeFacility(key, byFacility[key]))
	}
	return summaries
}

func summarizeFacility(key facilityKey, items []appointment.Ranked) FacilitySummary {
	summary := FacilitySummary{
		Region:   key.region,
		Facility: key.facility,
		Location: key.location,
		Listings: len(items),
	}

	services := make(map[string]struct{})
	waitSum, waitCount := 0, 0
	for _, item := range items {
		services[item.ServiceName] = struct{}{}
		if item.WaitingCount != nil {
			summary.WaitingCount += *item.WaitingCount
		}
		if item.AverageWaitDays != nil {
			waitSum += *item.AverageWaitDays
			waitCount++
		}
		if date := item.FirstAvailableDate; date != "" && (summary.EarliestDate == "" || date < summary.EarliestDate) {
			summary.EarliestDate = date
		}
		if item.Distance != nil && (summary.NearestKm == nil || *item.Distance < *summary.NearestKm) {
			km := *item.Distance
			summary.NearestKm = &km
		}
	}

	summary.Services = len(services)
	if waitCount > 0 {
		summary.AverageWaitDays = roundDays(float64(waitSum) / float64(waitCount))
	}
	return summary
}

func roundDays(value float64) float64 {
	return math.Round(value*10) / 10
}

var facilitySummaryHeaders = []string{"Region", "Facility", "Location", "Services", "Listings", "WaitingCount", "EarliestDate", "AverageWaitDays", "NearestKm"}

func facilitySummaryRow(summary FacilitySummary) []string {
	return []string{
		summary.Region,
		summary.Facility,
		summary.Location,
		fmt.Sprintf("%d", summary.Services),
		fmt.Sprintf("%d", summary.Listings),
		fmt.Sprintf("%d", summary.WaitingCount),
		summary.EarliestDate,
		fmt.Sprintf("%.1f", summary.AverageWaitDays),
		formatKm(summary.NearestKm),
	}
}

func WriteFacilitySummaries(path, format string, summaries []FacilitySummary) error {
	switch normalizeFormat(format) {
	case "csv":
		return writeFacilitySummariesCSV(path, summaries)
	case "excel", "xlsx":
		return writeFacilitySummariesExcel(path, summaries)
	default:
		return fmt.Errorf("unsupported output format for facility summaries: %s", format)
	}
}
