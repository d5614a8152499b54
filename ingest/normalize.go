package ingest

import (
	"strconv"
	"strings"
	"time"
)

// genericPunctuation is the fixed punctuation set generic-field
// normalization strips/collapses to a single space, per spec.md §4.E.2.
const genericPunctuation = " ,/.:(["

// normalizeGeneric produces the 7-bit normalized display copy of a generic
// metadata value: non-ASCII bytes are dropped and runs of the configured
// punctuation set collapse to one space.
func normalizeGeneric(v string) string {
	var b strings.Builder
	lastWasSpace := true // trims a leading collapse
	for _, r := range v {
		if r > 127 {
			continue
		}
		if strings.ContainsRune(genericPunctuation, r) {
			if !lastWasSpace {
				b.WriteByte(' ')
				lastWasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	return strings.TrimSpace(b.String())
}

// dateLayouts are the full-date forms extractDateRange tries under
// longdate=1, in order.
var dateLayouts = []string{"2006-01-02", "2006-01", "2006/01/02", "20060102"}

// extractDateRange implements spec.md §4.E.2's date-extraction rule: a
// year/date value yields a (min,max) integer pair, or fails the value
// outright. longdate (set for the "date" kind, unset for "year") tries a
// full calendar date first, encoding it as YYYYMMDD, before falling back to
// a bare leading run of digits.
func extractDateRange(v string, longdate bool) (min, max int, ok bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, 0, false
	}
	if longdate {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				n := t.Year()*10000 + int(t.Month())*100 + t.Day()
				return n, n, true
			}
		}
	}
	start := strings.IndexFunc(v, isDigit)
	if start < 0 {
		return 0, 0, false
	}
	end := start
	for end < len(v) && isDigit(rune(v[end])) {
		end++
	}
	n, err := strconv.Atoi(v[start:end])
	if err != nil {
		return 0, 0, false
	}
	return n, n, true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
