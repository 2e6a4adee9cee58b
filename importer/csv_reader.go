package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// CSVReader reads a sheet exported as CSV. Both comma and semicolon separated
// files are accepted; the separator is taken from the first line.
type CSVReader struct{}

func (r *CSVReader) Read(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file %s: %w", path, err)
	}
	defer file.Close()

	buffered := bufio.NewReader(file)
	firstLine, err := buffered.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = detectSeparator(firstLine)

	rows := make([][]string, 0, 128)
	for rowNumber := 1; ; rowNumber++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", rowNumber, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func detectSeparator(head []byte) rune {
	if line, _, found := bytes.Cut(head, []byte("\n")); found {
		head = line
	}
	if bytes.Count(head, []byte(";")) > bytes.Count(head, []byte(",")) {
		return ';'
	}
	return ','
}
