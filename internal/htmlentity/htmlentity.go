// Package htmlentity decodes the small set of HTML entities that show up in
// NFZ free-text fields. Decoding is a single left-to-right pass, so "&amp;amp;"
// becomes "&amp;" and not "&".
package htmlentity

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

var named = map[string]string{
	"quot":   "\"",
	"amp":    "&",
	"lt":     "<",
	"gt":     ">",
	"nbsp":   " ",
	"apos":   "'",
	"ndash":  "–",
	"mdash":  "—",
	"hellip": "…",
	"copy":   "©",
	"reg":    "®",
	"trade":  "™",
	"euro":   "€",
	"pound":  "£",
	"yen":    "¥",
	"cent":   "¢",
	"deg":    "°",
	"plusmn": "±",
	"times":  "×",
	"divide": "÷",
	"frac12": "½",
	"frac14": "¼",
	"frac34": "¾",
}

// longest entity body we try to match, "#1114111" or "hellip"
const maxEntityLen = 10

func Decode(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '&' {
			b.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i+1:], ';')
		if end <= 0 || end > maxEntityLen {
			b.WriteByte('&')
			i++
			continue
		}
		body := s[i+1 : i+1+end]
		if replacement, ok := resolve(body); ok {
			b.WriteString(replacement)
			i += end + 2
			continue
		}
		b.WriteByte('&')
		i++
	}
	return b.String()
}

func resolve(body string) (string, bool) {
	if replacement, ok := named[body]; ok {
		return replacement, true
	}
	if len(body) < 2 || body[0] != '#' {
		return "", false
	}

	digits, base := body[1:], 10
	if digits[0] == 'x' || digits[0] == 'X' {
		digits, base = digits[1:], 16
	}
	if digits == "" {
		return "", false
	}
	code, err := strconv.ParseUint(digits, base, 32)
	if err != nil || code == 0 || !utf8.ValidRune(rune(code)) {
		return "", false
	}
	return string(rune(code)), true
}
