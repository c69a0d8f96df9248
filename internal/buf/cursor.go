// Package buf provides endian-safe fixed-width read/write primitives over
// a mutable byte slice, tracked by an explicit cursor rather than by
// repeated slicing.
package buf

import (
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is returned whenever a read or write would run past the
// end of the underlying slice.
var ErrShortBuffer = errors.New("buf: short buffer")

// Cursor is a (base, len, pos) triple over a caller-owned byte slice. Only
// ReadBytes allocates (it returns a copy); every method validates
// pos+width against len before touching the slice.
type Cursor struct {
	b   []byte
	pos int
}

// NewCursor wraps b for sequential reads/writes starting at offset 0.
func NewCursor(b []byte) *Cursor {
	return &Cursor{b: b}
}

// Pos returns the current offset into the underlying slice.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the length of the underlying slice.
func (c *Cursor) Len() int { return len(c.b) }

// Remaining returns the number of bytes left before ErrShortBuffer.
func (c *Cursor) Remaining() int { return len(c.b) - c.pos }

// Bytes returns the full underlying slice.
func (c *Cursor) Bytes() []byte { return c.b }

// Seek repositions the cursor to an absolute offset.
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.b) {
		return ErrShortBuffer
	}
	c.pos = pos
	return nil
}

// Skip advances the cursor by n bytes without reading or writing.
func (c *Cursor) Skip(n int) error {
	if n < 0 || c.pos+n > len(c.b) {
		return ErrShortBuffer
	}
	c.pos += n
	return nil
}

func (c *Cursor) need(n int) error {
	if n < 0 || c.pos+n > len(c.b) {
		return ErrShortBuffer
	}
	return nil
}

// ReadU8 reads a single byte and advances the cursor.
func (c *Cursor) ReadU8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.b[c.pos]
	c.pos++
	return v, nil
}

// WriteU8 writes a single byte and advances the cursor.
func (c *Cursor) WriteU8(v uint8) error {
	if err := c.need(1); err != nil {
		return err
	}
	c.b[c.pos] = v
	c.pos++
	return nil
}

// ReadU16 reads a big-endian uint16 and advances the cursor.
func (c *Cursor) ReadU16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.b[c.pos:])
	c.pos += 2
	return v, nil
}

// WriteU16 writes a big-endian uint16 and advances the cursor.
func (c *Cursor) WriteU16(v uint16) error {
	if err := c.need(2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(c.b[c.pos:], v)
	c.pos += 2
	return nil
}

// ReadU32 reads a big-endian uint32 and advances the cursor.
func (c *Cursor) ReadU32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.b[c.pos:])
	c.pos += 4
	return v, nil
}

// WriteU32 writes a big-endian uint32 and advances the cursor.
func (c *Cursor) WriteU32(v uint32) error {
	if err := c.need(4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(c.b[c.pos:], v)
	c.pos += 4
	return nil
}

// ReadU64 reads a big-endian uint64 and advances the cursor.
func (c *Cursor) ReadU64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(c.b[c.pos:])
	c.pos += 8
	return v, nil
}

// WriteU64 writes a big-endian uint64 and advances the cursor.
func (c *Cursor) WriteU64(v uint64) error {
	if err := c.need(8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(c.b[c.pos:], v)
	c.pos += 8
	return nil
}

// ReadBytes copies n bytes starting at the cursor into a freshly allocated
// slice and advances the cursor.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, c.b[c.pos:c.pos+n])
	c.pos += n
	return out, nil
}

// WriteBytes copies src verbatim into the buffer at the cursor and
// advances the cursor by len(src).
func (c *Cursor) WriteBytes(src []byte) error {
	if err := c.need(len(src)); err != nil {
		return err
	}
	copy(c.b[c.pos:], src)
	c.pos += len(src)
	return nil
}

// Slice returns a sub-slice of the underlying buffer [from:to), without
// copying and without moving the cursor. Used by the codec to back-patch
// and checksum already-written regions.
func (c *Cursor) Slice(from, to int) ([]byte, error) {
	if from < 0 || to > len(c.b) || from > to {
		return nil, ErrShortBuffer
	}
	return c.b[from:to], nil
}
