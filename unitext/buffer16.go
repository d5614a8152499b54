package unitext

// Buf16 is the UTF-16 analogue of Buf, used as the destination of the
// utf8->utf16 conversion and of casemap (which spec.md §4.A defines over
// UTF-16 code units).
type Buf16 struct {
	data []uint16
	len  int
}

func NewBuf16(capacity int) *Buf16 {
	if capacity < 0 {
		capacity = 0
	}
	return &Buf16{data: make([]uint16, capacity)}
}

func (b *Buf16) Len() int          { return b.len }
func (b *Buf16) Cap() int          { return len(b.data) }
func (b *Buf16) Units() []uint16   { return b.data[:b.len] }
func (b *Buf16) Slice(i, j int) []uint16 { return b.data[i:j] }

func (b *Buf16) Resize(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	nd := make([]uint16, capacity)
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

func (b *Buf16) Destroy() {
	b.data = nil
	b.len = 0
}

func (b *Buf16) clearEmpty() {
	b.len = 0
}

// setUnits fills b with units, applying the same needed*2 overflow-retry
// policy as Buf.setString.
func (b *Buf16) setUnits(units []uint16) error {
	if len(units) > len(b.data) {
		b.Resize(len(units) * 2)
		if len(units) > len(b.data) {
			b.clearEmpty()
			return errBufferOverflow
		}
	}
	n := copy(b.data, units)
	b.len = n
	return nil
}
