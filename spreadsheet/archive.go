// Package spreadsheet reads the NFZ legacy .xlsx export without a workbook
// library: it pulls the shared-string table and the first worksheet out of the
// ZIP container and decodes rows straight from the worksheet XML.
package spreadsheet

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	sharedStringsMember = "xl/sharedStrings.xml"
	worksheetMember     = "xl/worksheets/sheet1.xml"

	sniffLength = 512
)

var (
	ErrNotAnArchive     = errors.New("payload is not a zip archive")
	ErrHTMLPayload      = errors.New("payload is an HTML page instead of a spreadsheet")
	ErrMissingWorksheet = errors.New("worksheet sheet1.xml not found in archive")
)

// Members holds the raw XML members needed to rebuild the first sheet.
// SharedStrings is nil when the workbook has no shared-string table.
type Members struct {
	SharedStrings []byte
	Worksheet     []byte
}

// LooksLikeHTML sniffs the leading bytes of a payload. Upstream returns error
// pages with status 200, so the HTTP status alone is not enough.
func LooksLikeHTML(payload []byte) bool {
	head := payload
	if len(head) > sniffLength {
		head = head[:sniffLength]
	}
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	text := strings.ToLower(strings.TrimSpace(string(head)))
	return strings.Contains(text, "<!doctype") || strings.Contains(text, "<html")
}

// Extract returns the shared strings and worksheet members of an .xlsx payload.
func Extract(payload []byte) (Members, error) {
	if LooksLikeHTML(payload) {
		return Members{}, ErrHTMLPayload
	}

	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return Members{}, fmt.Errorf("%w: %v", ErrNotAnArchive, err)
	}

	var sharedFile, sheetFile *zip.File
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		name := file.Name
		switch {
		case name == sharedStringsMember:
			sharedFile = file
		case sharedFile == nil && strings.HasSuffix(name, "sharedStrings.xml"):
			sharedFile = file
		case name == worksheetMember:
			sheetFile = file
		case sheetFile == nil && path.Base(name) == "sheet1.xml":
			sheetFile = file
		}
	}

	if sheetFile == nil {
		return Members{}, ErrMissingWorksheet
	}

	var members Members
	if members.Worksheet, err = readMember(sheetFile); err != nil {
		return Members{}, err
	}
	if sharedFile != nil {
		if members.SharedStrings, err = readMember(sharedFile); err != nil {
			return Members{}, err
		}
	}
	return members, nil
}

func readMember(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open archive member %s: %w", file.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read archive member %s: %w", file.Name, err)
	}
	return data, nil
}
