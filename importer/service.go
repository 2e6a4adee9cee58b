package importer

import (
	"fmt"
	"path/filepath"
	"strings"

	"terminy/appointment"
)

type Result struct {
	FilesProcessed int
	RowsRead       int
	RowsMapped     int
	RowsSkipped    int
	DataDate       string
	Appointments   []appointment.Appointment
}

// Run imports queue sheets for one region. An empty format is inferred from
// each file extension.
func Run(paths []string, format string, region appointment.Region) (*Result, error) {
	result := &Result{Appointments: make([]appointment.Appointment, 0, 256)}
	for _, path := range paths {
		sourceFormat, err := inferFormat(path, format)
		if err != nil {
			return nil, err
		}
		reader, err := ReaderForFormat(sourceFormat)
		if err != nil {
			return nil, err
		}

		rows, err := reader.Read(path)
		if err != nil {
			return nil, err
		}

		sheet, err := MapSheet(rows, region.Slug)
		if err != nil {
			return nil, fmt.Errorf("map %s: %w", path, err)
		}

		result.FilesProcessed++
		result.RowsRead += sheet.RowsRead
		result.RowsSkipped += sheet.RowsSkipped
		result.RowsMapped += len(sheet.Appointments)
		result.Appointments = append(result.Appointments, sheet.Appointments...)
		if result.DataDate == "" {
			result.DataDate = sheet.DataDate()
		}
	}

	return result, nil
}

func inferFormat(path string, format string) (string, error) {
	if strings.TrimSpace(format) != "" {
		return format, nil
	}

	extension := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch extension {
	case "csv":
		return "csv", nil
	case "xlsx", "zip":
		return "xlsx", nil
	case "xlsm":
		return "excel", nil
	default:
		return "", fmt.Errorf("unsupported file extension for %s", path)
	}
}
