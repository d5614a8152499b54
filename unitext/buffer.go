// Package unitext is the deterministic text-normalization façade used by
// facet-key derivation, mergekey derivation, and sort-key generation. It
// plays the role spec.md §4.A assigns to the ICU-backed buffer/conversion/
// casemap/sortkey/tokenizer primitives, reimplemented against Go's native
// UTF-8 strings and golang.org/x/text.
//
// Every scoped resource (Buf, Tokenizer) follows the same overflow policy:
// an operation that needs more room than the destination has resizes it to
// needed*2 and retries exactly once; any other failure leaves the
// destination empty.
package unitext

import "github.com/pkg/errors"

// Buf is a growable byte buffer that mimics the "data/len/cap" discipline of
// spec.md §4.A, so overflow-retry is an observable, testable behavior rather
// than an implementation detail Go's append would otherwise hide. It keeps
// len <= cap but does not keep a zero byte at data[len]: a write that fills
// the capacity exactly leaves no terminator, and only clearEmpty zeroes
// data[0].
type Buf struct {
	data []byte
	len  int
}

// NewBuf creates a buffer with the given initial capacity (capacity 0 is
// legal; the first write grows it).
func NewBuf(capacity int) *Buf {
	if capacity < 0 {
		capacity = 0
	}
	return &Buf{data: make([]byte, capacity)}
}

// Len returns the number of valid bytes currently held.
func (b *Buf) Len() int { return b.len }

// Cap returns the buffer's current capacity.
func (b *Buf) Cap() int { return len(b.data) }

// Bytes returns the valid prefix of the buffer.
func (b *Buf) Bytes() []byte { return b.data[:b.len] }

// String returns the valid prefix as a string.
func (b *Buf) String() string { return string(b.data[:b.len]) }

// Resize grows (or shrinks) the buffer's capacity to exactly capacity,
// preserving any valid bytes that still fit.
func (b *Buf) Resize(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	nd := make([]byte, capacity)
	n := b.len
	if n > capacity {
		n = capacity
	}
	copy(nd, b.data[:n])
	b.data = nd
	if b.len > capacity {
		b.len = capacity
	}
}

// Destroy releases the buffer's storage. Go's GC makes this a no-op beyond
// documenting intent at call sites that mirror the façade's scoped-resource
// lifecycle.
func (b *Buf) Destroy() {
	b.data = nil
	b.len = 0
}

func (b *Buf) reset() {
	b.len = 0
}

func (b *Buf) clearEmpty() {
	b.len = 0
	if len(b.data) > 0 {
		b.data[0] = 0
	}
}

// setString fills the buffer with s, applying the overflow-retry policy: if
// s does not fit, the buffer is resized to len(s)*2 and the write is
// retried once. Any non-fit failure (there is none in this reimplementation
// besides capacity) leaves the buffer at len=0.
func (b *Buf) setString(s string) error {
	if len(s) > len(b.data) {
		b.Resize(len(s) * 2)
		if len(s) > len(b.data) {
			b.clearEmpty()
			return errors.New("unitext: buffer overflow unrecoverable after resize")
		}
	}
	n := copy(b.data, s)
	b.len = n
	return nil
}
