package spreadsheet

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const headerScanRows = 5

var (
	ErrHeaderNotFound         = errors.New("header row not found")
	ErrMissingRequiredColumns = errors.New("missing required columns")
)

type Column string

const (
	ColumnYear         Column = "year"
	ColumnMonth        Column = "month"
	ColumnServiceName  Column = "serviceName"
	ColumnFacilityName Column = "facilityName"
	ColumnDepartment   Column = "departmentName"
	ColumnCellAddress  Column = "cellAddress"
	ColumnLocation     Column = "location"
	ColumnWaitingCount Column = "numberWaiting"
	ColumnFirstDate    Column = "date"
	ColumnAverageWait  Column = "waiting"
	ColumnCategory     Column = "category"
)

var requiredColumns = []Column{ColumnServiceName, ColumnFacilityName, ColumnLocation}

// ColumnMap maps known header phrases to zero-based column indexes.
type ColumnMap map[Column]int

func (m ColumnMap) Index(column Column) (int, bool) {
	index, ok := m[column]
	return index, ok
}

// Require fails with a *MissingColumnsError when a required column is absent.
func (m ColumnMap) Require() error {
	missing := make([]Column, 0, len(requiredColumns))
	for _, column := range requiredColumns {
		if _, ok := m[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingColumnsError{Missing: missing, Found: m.describe()}
}

func (m ColumnMap) describe() []string {
	found := make([]string, 0, len(m))
	for column, index := range m {
		found = append(found, fmt.Sprintf("%s: %s", column, ColumnName(index)))
	}
	sort.Strings(found)
	return found
}

type MissingColumnsError struct {
	Missing []Column
	Found   []string
}

func (e *MissingColumnsError) Error() string {
	missing := make([]string, 0, len(e.Missing))
	for _, column := range e.Missing {
		missing = append(missing, string(column))
	}
	return fmt.Sprintf("%s: %s (found: %s)", ErrMissingRequiredColumns, strings.Join(missing, ", "), strings.Join(e.Found, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingRequiredColumns
}

// FindHeader locates the header row within the first rows of the sheet. The
// NFZ export starts its header with "Rok"; older files are recognised by the
// service or facility name phrases instead.
func FindHeader(rows [][]string) (int, error) {
	limit := min(headerScanRows, len(rows))
	for i := 0; i < limit; i++ {
		if len(rows[i]) > 0 && strings.Contains(normalizeHeader(rows[i][0]), "rok") {
			return i, nil
		}
	}
	for i := 0; i < limit; i++ {
		text := normalizeHeader(strings.Join(rows[i], " "))
		if strings.Contains(text, "nazwa świadczenia") || strings.Contains(text, "nazwa placówki") {
			return i, nil
		}
	}
	return -1, ErrHeaderNotFound
}

// MapColumns matches header cells against the known NFZ header phrases.
func MapColumns(header []string) ColumnMap {
	columns := make(ColumnMap)
	for index, cell := range header {
		h := normalizeHeader(cell)
		switch {
		case h == "rok":
			columns[ColumnYear] = index
		case h == "miesiąc" || h == "miesiac":
			columns[ColumnMonth] = index
		case strings.Contains(h, "nazwa świadczenia") && !strings.Contains(h, "kod"):
			columns[ColumnServiceName] = index
		case strings.Contains(h, "nazwa świadczeniodawcy"):
			columns[ColumnFacilityName] = index
		case strings.Contains(h, "nazwa komórki"):
			columns[ColumnDepartment] = index
		case strings.Contains(h, "adres komórki"):
			// city;street;phone, the city doubles as the location
			columns[ColumnCellAddress] = index
			columns[ColumnLocation] = index
		case strings.Contains(h, "liczba oczekujących"):
			columns[ColumnWaitingCount] = index
		case strings.Contains(h, "pierwszy wolny termin"):
			columns[ColumnFirstDate] = index
		case strings.Contains(h, "średni czas oczekiwania"):
			columns[ColumnAverageWait] = index
		case strings.Contains(h, "kategoria medyczna"):
			columns[ColumnCategory] = index
		}
	}
	return columns
}

func normalizeHeader(input string) string {
	return strings.ToLower(strings.Join(strings.Fields(input), " "))
}
