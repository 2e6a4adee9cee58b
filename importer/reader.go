package importer

import (
	"fmt"
	"os"

	"terminy/spreadsheet"
)

// Reader turns a file into positional rows.
type Reader interface {
	Read(path string) ([][]string, error)
}

func ReaderForFormat(format string) (Reader, error) {
	switch normalizeFormat(format) {
	case "xlsx", "nfz", "zip":
		return &ArchiveReader{}, nil
	case "excel", "xlsm":
		return &ExcelReader{}, nil
	case "csv":
		return &CSVReader{}, nil
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}

// ArchiveReader reads the NFZ export straight from its ZIP members.
type ArchiveReader struct{}

func (r *ArchiveReader) Read(path string) ([][]string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", path, err)
	}
	return ReadPayload(payload)
}

// ReadPayload decodes the rows of an in-memory .xlsx payload.
func ReadPayload(payload []byte) ([][]string, error) {
	members, err := spreadsheet.Extract(payload)
	if err != nil {
		return nil, err
	}
	rows, err := spreadsheet.ReadSheet(members)
	if err != nil {
		return nil, fmt.Errorf("parse worksheet: %w", err)
	}
	return rows, nil
}
