package web

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"terminy/appointment"
	"terminy/search"
)

func TestBuildAppointmentView_DaysUntil(t *testing.T) {
	clock = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { clock = time.Now })

	km := 1.5
	item := appointment.Ranked{
		Appointment: appointment.Appointment{
			ID:                 uuid.New(),
			FacilityName:       "SZPITAL",
			FirstAvailableDate: "2026-03-17",
			CaseType:           appointment.CaseUrgent,
		},
		Distance: &km,
	}

	view := BuildAppointmentView(item)
	if view.DaysUntil == nil || *view.DaysUntil != 7 {
		t.Fatalf("expected 7 days, got %v", view.DaysUntil)
	}
	if view.ID != item.ID.String() || !view.Urgent || view.DistanceKm == nil || *view.DistanceKm != 1.5 {
		t.Fatalf("unexpected view %+v", view)
	}

	item.FirstAvailableDate = ""
	if view := BuildAppointmentView(item); view.DaysUntil != nil {
		t.Fatalf("expected no day count without a date, got %d", *view.DaysUntil)
	}
}

func TestBuildResultsView_EmptySnapshot(t *testing.T) {
	view := BuildResultsView(search.Snapshot{})
	if view.Region != nil || view.Suggestions == nil || view.Appointments == nil {
		t.Fatalf("expected empty lists and no region, got %+v", view)
	}
	if view.State != search.StateIdle {
		t.Fatalf("expected idle state, got %v", view.State)
	}
}
