package output

import (
	"fmt"
	"strconv"
	"strings"

	"terminy/appointment"
)

type Writer interface {
	Write(path string, list []appointment.Ranked) error
}

func WriterForFormat(format string) (Writer, error) {
	switch normalizeFormat(format) {
	case "csv":
		return &CSVWriter{}, nil
	case "excel", "xlsx":
		return &ExcelWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

func normalizeFormat(value string) string {
	return strings.TrimSpace(strings.ToLower(value))
}

var appointmentHeaders = []string{
	"Region",
	"Facility",
	"Service",
	"Location",
	"Address",
	"Phone",
	"Place",
	"FirstAvailableDate",
	"WaitingTime",
	"WaitingCount",
	"AverageWaitDays",
	"Case",
	"DistanceKm",
	"DataPreparedAt",
}

func appointmentRow(item appointment.Ranked) []string {
	caseType := "stable"
	if item.IsUrgent() {
		caseType = "urgent"
	}
	return []string{
		item.Region,
		item.FacilityName,
		item.ServiceName,
		item.Location,
		item.Address,
		item.Phone,
		item.PlaceName,
		item.FirstAvailableDate,
		item.WaitingTime,
		formatInt(item.WaitingCount),
		formatInt(item.AverageWaitDays),
		caseType,
		formatKm(item.Distance),
		item.DataPreparedAt,
	}
}

func formatInt(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}

func formatKm(value *float64) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *value)
}
