package appointment

import (
	"math"
	"strings"
)

// Region is a voivodeship, the mandatory geographic filter of every query.
type Region struct {
	Slug      string
	Name      string
	Code      string
	FileID    string
	Latitude  float64
	Longitude float64
}

var regions = []Region{
	{Slug: "dolnośląskie", Name: "Dolnośląskie", Code: "01", FileID: "45fc4182-1dcd-25aa-e063-b4200a0a751b", Latitude: 51.1, Longitude: 17.0},
	{Slug: "kujawsko-pomorskie", Name: "Kujawsko-Pomorskie", Code: "02", FileID: "45fc5222-cd85-9739-e063-b4200a0a78c0", Latitude: 53.0, Longitude: 18.5},
	{Slug: "lubelskie", Name: "Lubelskie", Code: "03", FileID: "45fc5429-3ab0-ba1b-e063-b4200a0af4c4", Latitude: 51.2, Longitude: 22.6},
	{Slug: "lubuskie", Name: "Lubuskie", Code: "04", FileID: "45fc5429-3ab1-ba1b-e063-b4200a0af4c4", Latitude: 52.0, Longitude: 15.5},
	{Slug: "łódzkie", Name: "Łódzkie", Code: "05", FileID: "45fc5762-77c1-ce0c-e063-b4200a0a3c21", Latitude: 51.8, Longitude: 19.5},
	{Slug: "małopolskie", Name: "Małopolskie", Code: "06", FileID: "45fc59f2-b860-e575-e063-b4200a0a3730", Latitude: 50.1, Longitude: 19.9},
	{Slug: "mazowieckie", Name: "Mazowieckie", Code: "07", FileID: "45fde959-0f4b-b7f7-e063-b4200a0af33c", Latitude: 52.2, Longitude: 21.0},
	{Slug: "opolskie", Name: "Opolskie", Code: "08", FileID: "45fc5c60-251c-ee6b-e063-b4200a0a6c46", Latitude: 50.7, Longitude: 17.9},
	{Slug: "podkarpackie", Name: "Podkarpackie", Code: "09", FileID: "45fc5e44-466e-06a1-e063-b4200a0af845", Latitude: 50.0, Longitude: 22.0},
	{Slug: "podlaskie", Name: "Podlaskie", Code: "10", FileID: "45fc607e-5c87-1b03-e063-b4200a0a2515", Latitude: 53.1, Longitude: 23.2},
	{Slug: "pomorskie", Name: "Pomorskie", Code: "11", FileID: "45fc630f-700a-27ff-e063-b4200a0a193b", Latitude: 54.4, Longitude: 18.6},
	{Slug: "śląskie", Name: "Śląskie", Code: "12", FileID: "45fc6734-4428-4920-e063-b4200a0a8ca7", Latitude: 50.3, Longitude: 19.0},
	{Slug: "świętokrzyskie", Name: "Świętokrzyskie", Code: "13", FileID: "45fc8269-3f4b-176c-e063-b4200a0a9b89", Latitude: 50.9, Longitude: 20.6},
	{Slug: "warmińsko-mazurskie", Name: "Warmińsko-Mazurskie", Code: "14", FileID: "45fc8478-c807-3445-e063-b4200a0a64cb", Latitude: 53.8, Longitude: 20.5},
	{Slug: "wielkopolskie", Name: "Wielkopolskie", Code: "15", FileID: "45fc8478-c808-3445-e063-b4200a0a64cb", Latitude: 52.4, Longitude: 16.9},
	{Slug: "zachodniopomorskie", Name: "Zachodniopomorskie", Code: "16", FileID: "45fc8768-3a19-3c1a-e063-b4200a0aee51", Latitude: 53.4, Longitude: 14.6},
}

// Regions returns all voivodeships ordered by province code.
func Regions() []Region {
	out := make([]Region, len(regions))
	copy(out, regions)
	return out
}

func RegionByCode(code string) (Region, bool) {
	code = strings.TrimSpace(code)
	if len(code) == 1 {
		code = "0" + code
	}
	for _, region := range regions {
		if region.Code == code {
			return region, true
		}
	}
	return Region{}, false
}

func RegionBySlug(slug string) (Region, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, region := range regions {
		if region.Slug == slug {
			return region, true
		}
	}
	return Region{}, false
}

// LookupRegion accepts either a province code or a region slug.
func LookupRegion(value string) (Region, bool) {
	if region, ok := RegionByCode(value); ok {
		return region, true
	}
	return RegionBySlug(value)
}

// NearestRegion picks the voivodeship whose centre is closest to the point.
func NearestRegion(latitude, longitude float64) Region {
	best := regions[6]
	bestDistance := math.Inf(1)
	for _, region := range regions {
		d := math.Hypot(latitude-region.Latitude, longitude-region.Longitude)
		if d < bestDistance {
			bestDistance = d
			best = region
		}
	}
	return best
}
