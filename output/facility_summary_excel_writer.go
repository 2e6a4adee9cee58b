package output

const facilitySummarySheet = "Placówki"

func writeFacilitySummariesExcel(path string, summaries []FacilitySummary) error {
	rows := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		rows = append(rows, facilitySummaryRow(summary))
	}
	return saveSheet(path, facilitySummarySheet, facilitySummaryHeaders, rows)
}
