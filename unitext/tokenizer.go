package unitext

import (
	"bytes"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/blevesearch/segment"
)

// BreakKind is the ICU break-iterator kind spec.md §4.A enumerates.
type BreakKind int

const (
	BreakLine BreakKind = iota
	BreakSentence
	BreakWord
	BreakCharacter
	BreakTitle
)

// Tokenizer is a scoped resource parameterized by locale and break kind. It
// is attached to a UTF-16 source and yields successive token spans, exactly
// as spec.md §4.A's attach/next pair describes, maintaining the invariant
// 0 <= token_start <= token_end <= len(source).
type Tokenizer struct {
	locale string
	kind   BreakKind

	source []uint16
	spans  [][2]int
	pos    int
}

// NewTokenizer acquires a tokenizer for locale/kind. Unknown kinds never
// occur in this reimplementation (BreakKind is a closed enum), so acquire
// cannot fail the way the ICU-backed façade's UnsupportedLocaleOrAction
// could; callers that build BreakKind values out of range get BreakWord.
func NewTokenizer(locale string, kind BreakKind) *Tokenizer {
	return &Tokenizer{locale: locale, kind: kind}
}

// Attach binds source and resets the cursor to the start, per spec.md's
// attach(utf16_source) contract.
func (t *Tokenizer) Attach(source *Buf16) {
	t.source = source.Units()
	t.pos = 0
	t.spans = computeSpans(t.source, t.kind)
}

// AttachString is the common-path shortcut for attaching a plain string.
func (t *Tokenizer) AttachString(s string) {
	t.source = utf16.Encode([]rune(s))
	t.pos = 0
	t.spans = computeSpans(t.source, t.kind)
}

// Next returns the next token's length (0 at end) and, if out is supplied,
// copies the token's units into it, enlarging out to span*2 on overflow.
// The DONE sentinel a break iterator would return is represented here as
// exhausting t.spans, at which point token_end is len(source) by
// construction of computeSpans.
func (t *Tokenizer) Next(out *Buf16) int {
	if t.pos >= len(t.spans) {
		if out != nil {
			out.len = 0
		}
		return 0
	}
	span := t.spans[t.pos]
	t.pos++
	start, end := span[0], span[1]
	n := end - start
	if out != nil {
		if n > out.Cap() {
			out.Resize(n * 2)
		}
		copy(out.data, t.source[start:end])
		out.len = n
	}
	return n
}

// NextString is the common-path shortcut returning the next token as a Go
// string, or "" at end (ok=false).
func (t *Tokenizer) NextString() (string, bool) {
	if t.pos >= len(t.spans) {
		return "", false
	}
	span := t.spans[t.pos]
	t.pos++
	return string(utf16.Decode(t.source[span[0]:span[1]])), true
}

// Reset rewinds the cursor without re-deriving spans or reattaching.
func (t *Tokenizer) Reset() { t.pos = 0 }

// computeSpans derives [start,end) unit offsets for each non-empty token,
// per t.kind. word/title use blevesearch/segment's UAX#29 word scanner
// (ICU's title-break iterator tracks word boundaries too); character walks
// rune-by-rune; line/sentence use simple separator rules, since x/text does
// not expose a public UAX#14/UAX#29 line/sentence segmenter.
func computeSpans(units []uint16, kind BreakKind) [][2]int {
	s := string(utf16.Decode(units))
	switch kind {
	case BreakWord, BreakTitle:
		return wordSpans(units, s)
	case BreakCharacter:
		return characterSpans(units)
	case BreakLine:
		return splitSpans(units, s, '\n')
	case BreakSentence:
		return sentenceSpans(units, s)
	default:
		return wordSpans(units, s)
	}
}

func wordSpans(units []uint16, s string) [][2]int {
	seg := segment.NewWordSegmenter(bytes.NewReader([]byte(s)))
	var spans [][2]int
	byteOff := 0
	unitOff := 0
	for seg.Segment() {
		tokBytes := seg.Bytes()
		typ := seg.Type()
		start := byteOff
		end := byteOff + len(tokBytes)
		byteOff = end

		startUnit := unitOff
		endUnit := unitOff + utf16Len(tokBytes)
		unitOff = endUnit

		if typ != segment.None && endUnit > startUnit {
			spans = append(spans, [2]int{startUnit, endUnit})
		}
		_ = start
		_ = end
	}
	_ = units
	return spans
}

// utf16Len returns the number of UTF-16 code units the UTF-8 bytes b decode
// to, without materializing the decoded string.
func utf16Len(b []byte) int {
	n := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
		b = b[size:]
	}
	return n
}

func characterSpans(units []uint16) [][2]int {
	var spans [][2]int
	i := 0
	for i < len(units) {
		j := i + 1
		// keep surrogate pairs together
		if units[i] >= 0xD800 && units[i] <= 0xDBFF && j < len(units) &&
			units[j] >= 0xDC00 && units[j] <= 0xDFFF {
			j++
		}
		spans = append(spans, [2]int{i, j})
		i = j
	}
	return spans
}

// runeUnitTable returns, for each rune index i in runes (plus one trailing
// entry for len(runes)), the UTF-16 unit offset at which that rune begins.
func runeUnitTable(runes []rune) []int {
	tbl := make([]int, len(runes)+1)
	u := 0
	for i, r := range runes {
		tbl[i] = u
		if r > 0xFFFF {
			u += 2
		} else {
			u++
		}
	}
	tbl[len(runes)] = u
	return tbl
}

func splitSpans(units []uint16, s string, sep rune) [][2]int {
	runes := []rune(s)
	unitPos := runeUnitTable(runes)

	var spans [][2]int
	start := 0
	for i := 0; i <= len(runes); i++ {
		if i == len(runes) || runes[i] == sep {
			seg := strings.TrimSpace(string(runes[start:i]))
			if seg != "" {
				trimLeft := len(runes[start:i]) - len([]rune(strings.TrimLeft(string(runes[start:i]), " \t\r")))
				trimmedLen := len([]rune(seg))
				spans = append(spans, [2]int{unitPos[start+trimLeft], unitPos[start+trimLeft+trimmedLen]})
			}
			start = i + 1
		}
	}
	_ = units
	return spans
}

func sentenceSpans(units []uint16, s string) [][2]int {
	runes := []rune(s)
	unitPos := runeUnitTable(runes)

	var spans [][2]int
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '.' || r == '!' || r == '?' {
			if i+1 < len(runes) && runes[i+1] != ' ' && runes[i+1] != '\t' && runes[i+1] != '\n' {
				continue // not followed by whitespace or end of input
			}
			j := i + 1
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\n') {
				j++
			}
			if seg := strings.TrimSpace(string(runes[start : i+1])); seg != "" {
				spans = append(spans, [2]int{unitPos[start], unitPos[i+1]})
			}
			start = j
			i = j - 1
		}
	}
	if start < len(runes) {
		if seg := strings.TrimSpace(string(runes[start:])); seg != "" {
			spans = append(spans, [2]int{unitPos[start], unitPos[len(runes)]})
		}
	}
	_ = units
	return spans
}
