package appointment

import (
	"math"

	"github.com/google/uuid"
)

// Distances maps appointment IDs to the distance from the user in kilometers.
type Distances map[uuid.UUID]float64

// Set records a distance; negative and non-finite values are ignored.
func (d Distances) Set(id uuid.UUID, km float64) {
	if km < 0 || math.IsNaN(km) || math.IsInf(km, 0) {
		return
	}
	d[id] = km
}

func (d Distances) Get(id uuid.UUID) (float64, bool) {
	km, ok := d[id]
	return km, ok
}

// Merge copies all entries of other into d.
func (d Distances) Merge(other Distances) {
	for id, km := range other {
		d[id] = km
	}
}

// Ranked is an appointment joined with its optional distance.
type Ranked struct {
	Appointment
	Distance *float64
}

func Join(list []Appointment, distances Distances) []Ranked {
	out := make([]Ranked, 0, len(list))
	for _, a := range list {
		item := Ranked{Appointment: a}
		if km, ok := distances[a.ID]; ok {
			value := km
			item.Distance = &value
		}
		out = append(out, item)
	}
	return out
}

func Unjoin(list []Ranked) []Appointment {
	out := make([]Appointment, 0, len(list))
	for _, item := range list {
		out = append(out, item.Appointment)
	}
	return out
}
