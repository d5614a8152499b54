package unitext

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey produces a collator-driven sort key for s into dst (a utf8 Buf,
// per spec.md §4.A). The façade asks the collator for the needed length
// first and sizes the buffer to needed*2 before the single retry, matching
// the documented overflow policy exactly (rather than just letting dst grow
// on demand) so the behavior stays observably identical to a fixed-capacity
// caller.
func SortKey(dst *Buf, s string, locale string) error {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	col := collate.New(tag)
	var cbuf collate.Buffer
	key := col.KeyFromString(&cbuf, s)

	needed := len(key)
	if needed > dst.Cap() {
		dst.Resize(needed * 2)
	}
	if needed > dst.Cap() {
		dst.clearEmpty()
		return errBufferOverflow
	}
	n := copy(dst.data, key)
	dst.len = n
	return nil
}

// SortKeyString is the common-path shortcut: a ready-to-compare string key
// for s under locale's collation order.
func SortKeyString(s, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	col := collate.New(tag)
	var buf collate.Buffer
	return string(col.KeyFromString(&buf, s))
}
