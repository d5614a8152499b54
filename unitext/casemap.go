package unitext

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CaseAction mirrors the four casemap actions spec.md §4.A names.
type CaseAction int

const (
	CaseLower CaseAction = iota
	CaseUpper
	CaseTitle
	CaseFold
)

func caserFor(locale string, action CaseAction) cases.Caser {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	switch action {
	case CaseUpper:
		return cases.Upper(tag)
	case CaseTitle:
		return cases.Title(tag)
	case CaseFold:
		return cases.Fold()
	default:
		return cases.Lower(tag)
	}
}

// CaseMap transforms src (UTF-16 code units) per action and locale into dst,
// applying the same overflow-retry policy as the conversion primitives.
func CaseMap(dst *Buf16, src *Buf16, locale string, action CaseAction) error {
	s := string(utf16.Decode(src.Units()))
	mapped := caserFor(locale, action).String(s)
	units := utf16.Encode([]rune(mapped))
	return dst.setUnits(units)
}

// CaseMapString is the common-path shortcut most callers in this module
// want: go straight from a UTF-8 string to a cased UTF-8 string without
// round-tripping through UTF-16 buffers.
func CaseMapString(s, locale string, action CaseAction) string {
	return caserFor(locale, action).String(s)
}

// LowerASCIIPortion lowercases only the ASCII run of s, leaving everything
// else untouched. Used by pzdb's "auto" PZ_XSLT resolution, which derives a
// stylesheet filename from PZ_REQUESTSYNTAX by lowercasing its ASCII part.
func LowerASCIIPortion(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
