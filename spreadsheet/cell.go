package spreadsheet

import (
	"strconv"
	"strings"
)

// ColumnIndex converts a column reference ("A", "AA", or a full cell
// reference like "AB12") to a zero-based index. It returns -1 when the
// reference has no letters.
func ColumnIndex(ref string) int {
	index := 0
	letters := 0
	for _, r := range strings.ToUpper(ref) {
		if r < 'A' || r > 'Z' {
			break
		}
		index = index*26 + int(r-'A'+1)
		letters++
	}
	if letters == 0 {
		return -1
	}
	return index - 1
}

// ColumnName is the inverse of ColumnIndex.
func ColumnName(index int) string {
	if index < 0 {
		return ""
	}
	var name []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		name = append([]byte{byte('A' + (n-1)%26)}, name...)
	}
	return string(name)
}

// rawCell is a worksheet <c> element as read from the XML stream.
type rawCell struct {
	ref       string
	cellType  string
	value     string
	hasValue  bool
	inline    string
	hasInline bool
}

// decode resolves a cell to text: shared-string reference first, then an
// inline string, then the literal value.
func (c rawCell) decode(shared []string) string {
	if c.cellType == "s" {
		if !c.hasValue {
			return ""
		}
		index, err := strconv.Atoi(strings.TrimSpace(c.value))
		if err != nil || index < 0 || index >= len(shared) {
			return ""
		}
		return shared[index]
	}
	if c.hasInline {
		return c.inline
	}
	if c.hasValue {
		return c.value
	}
	return ""
}
