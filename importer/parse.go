package importer

import (
	"strconv"
	"strings"

	"terminy/internal/htmlentity"
)

var monthNames = map[string]string{
	"1":  "styczeń",
	"2":  "luty",
	"3":  "marzec",
	"4":  "kwiecień",
	"5":  "maj",
	"6":  "czerwiec",
	"7":  "lipiec",
	"8":  "sierpień",
	"9":  "wrzesień",
	"10": "październik",
	"11": "listopad",
	"12": "grudzień",
}

// cleanText decodes entities and collapses whitespace in free text.
func cleanText(value string) string {
	return strings.Join(strings.Fields(htmlentity.Decode(value)), " ")
}

// parseCount reads a non-negative integer; anything else is unknown.
func parseCount(raw string) *int {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if cleaned == "" {
		return nil
	}
	value, err := strconv.Atoi(cleaned)
	if err != nil {
		// numeric cells sometimes come through as "12.0"
		f, ferr := strconv.ParseFloat(strings.ReplaceAll(cleaned, ",", "."), 64)
		if ferr != nil || f != float64(int(f)) {
			return nil
		}
		value = int(f)
	}
	if value < 0 {
		return nil
	}
	return &value
}

func waitingDays(days int) string {
	return strconv.Itoa(days) + " dni"
}

// splitCellAddress unpacks the "city;street;phone" cell address.
func splitCellAddress(raw string) (location, address, phone string) {
	parts := strings.Split(raw, ";")
	location = strings.TrimSpace(parts[0])
	address = location
	if len(parts) >= 2 {
		if street := strings.TrimSpace(parts[1]); street != "" {
			address = location + ", " + street
		}
	}
	if len(parts) >= 3 {
		phone = strings.TrimSpace(parts[2])
	}
	return location, address, phone
}

func isYear(value string) bool {
	if len(value) != 4 {
		return false
	}
	_, err := strconv.Atoi(value)
	return err == nil
}

func isMonth(value string) bool {
	month, err := strconv.Atoi(value)
	return err == nil && month >= 1 && month <= 12
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return strings.TrimSpace(value)
}
