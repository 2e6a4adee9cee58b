package importer

import (
	"strings"

	"terminy/appointment"
	"terminy/nfz"
)

const (
	UnknownFacility = "Nieznana placówka"
	UnknownService  = "Nieznane świadczenie"
)

// MapQueue converts an API queue into an appointment. It reports false when
// the queue carries no attributes or lacks a required field.
func MapQueue(queue nfz.Queue, region string) (appointment.Appointment, bool) {
	attrs := queue.Attributes
	if attrs == nil {
		return appointment.Appointment{}, false
	}

	a := appointment.Appointment{
		SourceID:     strings.TrimSpace(queue.ID),
		Region:       region,
		FacilityName: fallback(cleanText(attrs.Provider), UnknownFacility),
		ServiceName:  fallback(cleanText(attrs.Benefit), UnknownService),
		Location:     cleanText(attrs.Locality),
		Address:      cleanText(attrs.Address),
		Phone:        strings.TrimSpace(attrs.Phone),
		PlaceName:    cleanText(attrs.Place),
		Latitude:     attrs.Latitude,
		Longitude:    attrs.Longitude,
	}
	if attrs.Case != nil {
		a.CaseType = appointment.CaseType(*attrs.Case)
	}

	if stats := attrs.Statistics; stats != nil {
		if stats.ProviderData != nil {
			a.WaitingCount = stats.ProviderData.Awaiting
			a.AverageWaitDays = stats.ProviderData.AveragePeriod
		}
		if a.AverageWaitDays == nil && stats.ComputedData != nil {
			a.AverageWaitDays = stats.ComputedData.AveragePeriod
		}
	}
	if a.AverageWaitDays != nil {
		a.WaitingTime = waitingDays(*a.AverageWaitDays)
	}

	if dates := attrs.Dates; dates != nil {
		a.FirstAvailableDate = strings.TrimSpace(dates.Date)
		a.DataPreparedAt = strings.TrimSpace(dates.DateSituationAsAt)
	}

	if !a.Valid() {
		return appointment.Appointment{}, false
	}
	return appointment.New(a), true
}
