package geo

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"terminy/appointment"
)

const countrySuffix = "Polska"

// Resolver computes distances for a batch of appointments. Geocoding runs one
// address at a time; failures leave the distance absent.
type Resolver struct {
	Geocoder Geocoder
	Logger   zerolog.Logger
}

func NewResolver(geocoder Geocoder, logger zerolog.Logger) *Resolver {
	return &Resolver{Geocoder: geocoder, Logger: logger}
}

// Resolve returns the distances it could determine, keyed by appointment ID.
// Without a user location nothing can be measured and the table is empty.
func (r *Resolver) Resolve(ctx context.Context, user *Point, list []appointment.Appointment) appointment.Distances {
	distances := make(appointment.Distances, len(list))
	if r == nil || user == nil {
		return distances
	}

	for _, a := range list {
		if ctx.Err() != nil {
			break
		}

		if a.HasCoordinates() {
			target := Point{Latitude: *a.Latitude, Longitude: *a.Longitude}
			if target.Valid() {
				distances.Set(a.ID, Haversine(*user, target))
				continue
			}
		}

		target, ok := r.locate(ctx, a)
		if !ok {
			continue
		}
		distances.Set(a.ID, Haversine(*user, target))
	}
	return distances
}

func (r *Resolver) locate(ctx context.Context, a appointment.Appointment) (Point, bool) {
	if r.Geocoder == nil {
		return Point{}, false
	}
	for _, query := range Queries(a) {
		point, found, err := r.Geocoder.Geocode(ctx, query)
		if err != nil {
			r.Logger.Debug().Err(err).Str("query", query).Msg("geocoding failed")
			continue
		}
		if found {
			return point, true
		}
	}
	return Point{}, false
}

// Queries returns the lookup strings for an appointment, most specific first.
func Queries(a appointment.Appointment) []string {
	location := strings.TrimSpace(a.Location)
	if location == "" {
		return nil
	}
	address := strings.TrimSpace(a.Address)
	if address == "" {
		address = location
	}
	return []string{
		address + ", " + location + ", " + countrySuffix,
		location + ", " + countrySuffix,
	}
}
