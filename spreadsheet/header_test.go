package spreadsheet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindHeader_YearInFirstCell(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"Informacja o pierwszych wolnych terminach"},
		{""},
		{"Rok", "Miesiąc", "Nazwa świadczeniodawcy"},
		{"2026", "1", "Szpital"},
	}

	index, err := FindHeader(rows)
	require.NoError(t, err)
	assert.Equal(t, 2, index)
}

func TestFindHeader_PhraseFallback(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"Zestawienie"},
		{"Lp.", "Nazwa placówki", "Adres"},
	}

	index, err := FindHeader(rows)
	require.NoError(t, err)
	assert.Equal(t, 1, index)
}

func TestFindHeader_OnlyScansFirstFiveRows(t *testing.T) {
	t.Parallel()

	rows := [][]string{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}, {"Rok"}}

	_, err := FindHeader(rows)
	require.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestMapColumns_ServiceAndFacility(t *testing.T) {
	t.Parallel()

	header := []string{"Rok", "Nazwa świadczeniodawcy", "Nazwa świadczenia", "Kod świadczenia - nazwa świadczenia", "Adres komórki", "Liczba oczekujących", "Pierwszy wolny termin", "Średni czas oczekiwania", "Kategoria medyczna", "Nazwa komórki", "Miesiąc"}

	columns := MapColumns(header)
	require.NoError(t, columns.Require())

	expect := map[Column]int{
		ColumnYear:         0,
		ColumnFacilityName: 1,
		ColumnServiceName:  2,
		ColumnCellAddress:  4,
		ColumnLocation:     4,
		ColumnWaitingCount: 5,
		ColumnFirstDate:    6,
		ColumnAverageWait:  7,
		ColumnCategory:     8,
		ColumnDepartment:   9,
		ColumnMonth:        10,
	}
	for column, index := range expect {
		got, ok := columns.Index(column)
		require.True(t, ok, "column %s", column)
		assert.Equal(t, index, got, "column %s", column)
	}
}

func TestMapColumns_CaseAndWhitespaceInsensitive(t *testing.T) {
	t.Parallel()

	columns := MapColumns([]string{"  NAZWA\nŚWIADCZENIA ", "nazwa   świadczeniodawcy", "ADRES KOMÓRKI"})
	require.NoError(t, columns.Require())
	assert.Equal(t, 0, columns[ColumnServiceName])
}

func TestColumnMap_RequireReportsFound(t *testing.T) {
	t.Parallel()

	columns := MapColumns([]string{"Rok", "Nazwa świadczenia"})
	err := columns.Require()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingRequiredColumns))

	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.ElementsMatch(t, []Column{ColumnFacilityName, ColumnLocation}, missing.Missing)
	assert.Contains(t, err.Error(), "serviceName: B")
}
