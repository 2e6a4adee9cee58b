package importer

import (
	"strings"

	"terminy/spreadsheet"
)

// Record is one data row of a queue sheet.
type Record struct {
	RowNumber int
	Cells     []string
}

// Get returns the trimmed value of a mapped column, or "" when the column is
// not mapped or lies beyond the end of the row.
func (r Record) Get(columns spreadsheet.ColumnMap, column spreadsheet.Column) string {
	index, ok := columns.Index(column)
	if !ok || index < 0 || index >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[index])
}

func normalizeFormat(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	trimmed = strings.ReplaceAll(trimmed, "_", "")
	trimmed = strings.ReplaceAll(trimmed, "-", "")
	trimmed = strings.ReplaceAll(trimmed, " ", "")
	return trimmed
}
