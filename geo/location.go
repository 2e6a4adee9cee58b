package geo

import "context"

// LocationProvider supplies the user's current coordinate. A nil point means
// the location is unknown, which limits ranking to records that can be
// geocoded.
type LocationProvider interface {
	Location(ctx context.Context) (*Point, error)
}

// StaticLocation returns a fixed coordinate taken from config or flags.
type StaticLocation struct {
	Point *Point
}

// NewStaticLocation returns an unknown location unless both coordinates are set.
func NewStaticLocation(latitude, longitude *float64) StaticLocation {
	if latitude == nil || longitude == nil {
		return StaticLocation{}
	}
	p := Point{Latitude: *latitude, Longitude: *longitude}
	if !p.Valid() {
		return StaticLocation{}
	}
	return StaticLocation{Point: &p}
}

func (s StaticLocation) Location(context.Context) (*Point, error) {
	if s.Point == nil {
		return nil, nil
	}
	p := *s.Point
	return &p, nil
}
