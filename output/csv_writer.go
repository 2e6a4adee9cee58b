package output

import (
	"encoding/csv"
	"fmt"
	"os"

	"terminy/appointment"
)

type CSVWriter struct{}

func (w *CSVWriter) Write(path string, list []appointment.Ranked) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv output %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(appointmentHeaders); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}

	for _, item := range list {
		if err := writer.Write(appointmentRow(item)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}

	return nil
}
