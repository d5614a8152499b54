package unitext

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var errBufferOverflow = errors.New("unitext: buffer overflow")

// ToUTF16 converts s into dst, applying the overflow-retry policy: if dst is
// too small, it is resized to needed*2 and the conversion is retried once.
func ToUTF16(dst *Buf16, s string) error {
	units := utf16.Encode([]rune(s))
	return dst.setUnits(units)
}

// FromUTF16 converts src's valid units into dst as UTF-8.
func FromUTF16(dst *Buf, src *Buf16) error {
	s := string(utf16.Decode(src.Units()))
	return dst.setString(s)
}

// FromUTF8CStr converts a NUL-terminated byte slice (as a C string would be
// represented) into dst as UTF-16. The NUL terminator, if present, is not
// included in the encoded output.
func FromUTF8CStr(dst *Buf16, cstr []byte) error {
	n := 0
	for n < len(cstr) && cstr[n] != 0 {
		n++
	}
	if !utf8.Valid(cstr[:n]) {
		dst.clearEmpty()
		return errors.New("unitext: invalid utf8 in cstr source")
	}
	return ToUTF16(dst, string(cstr[:n]))
}
