package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"terminy/appointment"
)

const appointmentSheet = "Terminy"

type ExcelWriter struct{}

func (w *ExcelWriter) Write(path string, list []appointment.Ranked) error {
	rows := make([][]string, 0, len(list))
	for _, item := range list {
		rows = append(rows, appointmentRow(item))
	}
	return saveSheet(path, appointmentSheet, appointmentHeaders, rows)
}

// saveSheet writes a single-sheet workbook with a frozen, bold header row.
func saveSheet(path, sheet string, headers []string, rows [][]string) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName(file.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename excel sheet: %w", err)
	}

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("set excel header %s: %w", cell, err)
		}
	}

	style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := file.SetCellStyle(sheet, "A1", lastHeader, style); err != nil {
		return fmt.Errorf("style excel header: %w", err)
	}
	if err := file.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze excel header: %w", err)
	}

	for i, values := range rows {
		row := i + 2
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set excel value %s: %w", cell, err)
			}
		}
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("save excel output %s: %w", path, err)
	}

	return nil
}
