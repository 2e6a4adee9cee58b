package spreadsheet

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseSharedStrings reads the shared-string table. Rich-text items made of
// several runs are concatenated; phonetic hints are ignored.
func ParseSharedStrings(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	strs := make([]string, 0, 256)
	var sb strings.Builder
	inItem, inText, inPhonetic := false, false, false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode shared strings: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "si":
				inItem = true
				sb.Reset()
			case "rPh":
				inPhonetic = true
			case "t":
				inText = inItem && !inPhonetic
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "rPh":
				inPhonetic = false
			case "si":
				strs = append(strs, sb.String())
				inItem = false
			}
		}
	}
	return strs, nil
}

// ParseRows decodes every non-empty <row> of a worksheet into a dense slice of
// cell values. Gaps between referenced columns are filled with "".
func ParseRows(sheet []byte, shared []string) ([][]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(sheet))
	rows := make([][]string, 0, 1024)

	var (
		inRow    bool
		cells    map[int]string
		maxIndex int
		nextCol  int
		current  *rawCell
		inValue  bool
		inInline bool
		inText   bool
		buf      strings.Builder
	)

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode worksheet: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "row":
				inRow = true
				cells = make(map[int]string)
				maxIndex = -1
				nextCol = 0
			case "c":
				if !inRow {
					continue
				}
				current = &rawCell{}
				for _, attr := range el.Attr {
					switch attr.Name.Local {
					case "r":
						current.ref = attr.Value
					case "t":
						current.cellType = attr.Value
					}
				}
			case "v":
				if current != nil {
					inValue = true
					buf.Reset()
				}
			case "is":
				if current != nil {
					inInline = true
					current.hasInline = true
				}
			case "t":
				if current != nil && inInline {
					inText = true
				}
			}
		case xml.CharData:
			if inValue {
				buf.Write(el)
			}
			if inText {
				current.inline += string(el)
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "v":
				if inValue {
					current.value = buf.String()
					current.hasValue = true
					inValue = false
				}
			case "t":
				inText = false
			case "is":
				inInline = false
			case "c":
				if current == nil {
					continue
				}
				col := ColumnIndex(current.ref)
				if col < 0 {
					col = nextCol
				}
				cells[col] = current.decode(shared)
				if col > maxIndex {
					maxIndex = col
				}
				nextCol = col + 1
				current = nil
			case "row":
				if maxIndex >= 0 {
					row := make([]string, maxIndex+1)
					for col, value := range cells {
						row[col] = value
					}
					rows = append(rows, row)
				}
				inRow = false
			}
		}
	}
	return rows, nil
}

// ReadSheet parses both members into rows.
func ReadSheet(members Members) ([][]string, error) {
	shared, err := ParseSharedStrings(members.SharedStrings)
	if err != nil {
		return nil, err
	}
	return ParseRows(members.Worksheet, shared)
}
