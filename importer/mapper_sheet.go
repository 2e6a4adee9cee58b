package importer

import (
	"strings"

	"terminy/appointment"
	"terminy/spreadsheet"
)

// SheetResult is the outcome of mapping one queue sheet.
type SheetResult struct {
	Appointments []appointment.Appointment
	DataYear     string
	DataMonth    string
	RowsRead     int
	RowsSkipped  int
}

// DataDate renders the period the sheet describes, e.g. "styczeń 2026".
func (r *SheetResult) DataDate() string {
	if r == nil || r.DataYear == "" || r.DataMonth == "" {
		return ""
	}
	month, ok := monthNames[r.DataMonth]
	if !ok {
		month = r.DataMonth
	}
	return month + " " + r.DataYear
}

// MapSheet locates the header, maps the columns and converts every usable
// data row. Rows without a service, facility or location are skipped.
func MapSheet(rows [][]string, region string) (*SheetResult, error) {
	headerIndex, err := spreadsheet.FindHeader(rows)
	if err != nil {
		return nil, err
	}

	columns := spreadsheet.MapColumns(rows[headerIndex])
	if err := columns.Require(); err != nil {
		return nil, err
	}

	result := &SheetResult{Appointments: make([]appointment.Appointment, 0, len(rows)-headerIndex)}
	if headerIndex+1 < len(rows) {
		result.DataYear, result.DataMonth = dataPeriod(Record{Cells: rows[headerIndex+1]}, columns)
	}

	for i := headerIndex + 1; i < len(rows); i++ {
		record := Record{RowNumber: i + 1, Cells: rows[i]}
		result.RowsRead++

		a, ok := mapSheetRecord(record, columns, region)
		if !ok {
			result.RowsSkipped++
			continue
		}
		result.Appointments = append(result.Appointments, a)
	}
	return result, nil
}

func mapSheetRecord(record Record, columns spreadsheet.ColumnMap, region string) (appointment.Appointment, bool) {
	serviceName := cleanText(record.Get(columns, spreadsheet.ColumnServiceName))
	facilityName := cleanText(record.Get(columns, spreadsheet.ColumnFacilityName))
	cellAddress := cleanText(record.Get(columns, spreadsheet.ColumnLocation))
	if serviceName == "" || facilityName == "" || cellAddress == "" {
		return appointment.Appointment{}, false
	}

	location, address, phone := splitCellAddress(cellAddress)
	a := appointment.Appointment{
		Region:             region,
		FacilityName:       facilityName,
		ServiceName:        serviceName,
		Location:           location,
		Address:            address,
		Phone:              phone,
		PlaceName:          cleanText(record.Get(columns, spreadsheet.ColumnDepartment)),
		FirstAvailableDate: record.Get(columns, spreadsheet.ColumnFirstDate),
		WaitingCount:       parseCount(record.Get(columns, spreadsheet.ColumnWaitingCount)),
		MedicalCategory:    cleanText(record.Get(columns, spreadsheet.ColumnCategory)),
	}
	if wait := record.Get(columns, spreadsheet.ColumnAverageWait); wait != "" {
		a.WaitingTime = wait + " dni"
		a.AverageWaitDays = parseCount(wait)
	}

	if !a.Valid() {
		return appointment.Appointment{}, false
	}
	return appointment.New(a), true
}

// dataPeriod reads year and month from the first data row. Without explicit
// columns the export puts the year in column A and the month in column B.
func dataPeriod(first Record, columns spreadsheet.ColumnMap) (year, month string) {
	if _, ok := columns.Index(spreadsheet.ColumnYear); ok {
		year = first.Get(columns, spreadsheet.ColumnYear)
	} else if value := cellAt(first, 0); isYear(value) {
		year = value
	}

	if _, ok := columns.Index(spreadsheet.ColumnMonth); ok {
		month = first.Get(columns, spreadsheet.ColumnMonth)
	} else if value := cellAt(first, 1); isMonth(value) {
		month = value
	}
	return year, month
}

func cellAt(record Record, index int) string {
	if index >= len(record.Cells) {
		return ""
	}
	return strings.TrimSpace(record.Cells[index])
}
