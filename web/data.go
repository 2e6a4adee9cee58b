package web

import (
	"time"

	"terminy/appointment"
	"terminy/internal/timeutil"
	"terminy/search"
)

// clock is replaced in tests.
var clock = time.Now

type RegionView struct {
	Code string `json:"code"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type AppointmentView struct {
	ID                 string   `json:"id"`
	Region             string   `json:"region"`
	FacilityName       string   `json:"facilityName"`
	ServiceName        string   `json:"serviceName"`
	Location           string   `json:"location"`
	Address            string   `json:"address,omitempty"`
	Phone              string   `json:"phone,omitempty"`
	PlaceName          string   `json:"placeName,omitempty"`
	FirstAvailableDate string   `json:"firstAvailableDate,omitempty"`
	DaysUntil          *int     `json:"daysUntil,omitempty"`
	WaitingTime        string   `json:"waitingTime,omitempty"`
	WaitingCount       *int     `json:"waitingCount,omitempty"`
	AverageWaitDays    *int     `json:"averageWaitDays,omitempty"`
	MedicalCategory    string   `json:"medicalCategory,omitempty"`
	Urgent             bool     `json:"urgent"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
	DistanceKm         *float64 `json:"distanceKm,omitempty"`
	DataPreparedAt     string   `json:"dataPreparedAt,omitempty"`
}

// ResultsView is the JSON shape of the orchestrator state.
type ResultsView struct {
	State          search.State      `json:"state"`
	Region         *RegionView       `json:"region,omitempty"`
	Benefit        string            `json:"benefit"`
	Locality       string            `json:"locality"`
	Urgent         bool              `json:"urgent"`
	Suggestions    []string          `json:"suggestions"`
	Appointments   []AppointmentView `json:"appointments"`
	Held           int               `json:"held"`
	Total          *int              `json:"total,omitempty"`
	HasMoreResults bool              `json:"hasMoreResults"`
	LoadingMore    bool              `json:"loadingMore"`
	WaitingCount   int               `json:"waitingCount"`
	Error          string            `json:"error,omitempty"`
}

type loadMoreView struct {
	Loaded  bool        `json:"loaded"`
	Results ResultsView `json:"results"`
}

func regionView(region appointment.Region) RegionView {
	return RegionView{Code: region.Code, Slug: region.Slug, Name: region.Name}
}

func BuildRegionViews(regions []appointment.Region) []RegionView {
	out := make([]RegionView, 0, len(regions))
	for _, region := range regions {
		out = append(out, regionView(region))
	}
	return out
}

func BuildAppointmentView(item appointment.Ranked) AppointmentView {
	view := AppointmentView{
		ID:                 item.ID.String(),
		Region:             item.Region,
		FacilityName:       item.FacilityName,
		ServiceName:        item.ServiceName,
		Location:           item.Location,
		Address:            item.Address,
		Phone:              item.Phone,
		PlaceName:          item.PlaceName,
		FirstAvailableDate: item.FirstAvailableDate,
		WaitingTime:        item.WaitingTime,
		WaitingCount:       item.WaitingCount,
		AverageWaitDays:    item.AverageWaitDays,
		MedicalCategory:    item.MedicalCategory,
		Urgent:             item.IsUrgent(),
		Latitude:           item.Latitude,
		Longitude:          item.Longitude,
		DistanceKm:         item.Distance,
		DataPreparedAt:     item.DataPreparedAt,
	}
	if days, ok := timeutil.DaysUntil(item.FirstAvailableDate, clock()); ok {
		view.DaysUntil = &days
	}
	return view
}

func BuildResultsView(snapshot search.Snapshot) ResultsView {
	view := ResultsView{
		State:          snapshot.State,
		Benefit:        snapshot.Benefit,
		Locality:       snapshot.Locality,
		Urgent:         snapshot.Urgent,
		Suggestions:    snapshot.Suggestions,
		Appointments:   make([]AppointmentView, 0, len(snapshot.Appointments)),
		Held:           snapshot.Held,
		Total:          snapshot.Total,
		HasMoreResults: snapshot.HasMoreResults,
		LoadingMore:    snapshot.LoadingMore,
		WaitingCount:   snapshot.WaitingCount,
		Error:          snapshot.ErrorMessage,
	}
	if view.Suggestions == nil {
		view.Suggestions = []string{}
	}
	if snapshot.Region != nil {
		region := regionView(*snapshot.Region)
		view.Region = &region
	}
	for _, item := range snapshot.Appointments {
		view.Appointments = append(view.Appointments, BuildAppointmentView(item))
	}
	return view
}
