package decoder

import (
	"encoding/binary"
	"errors"
)

// ErrShort is returned when the reader runs out of bytes.
var ErrShort = errors.New("unexpected end of section")

// Reader is a cursor over the bytes remaining in a section window.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Remaining returns the unread bytes without consuming them.
func (r *Reader) Remaining() []byte { return r.buf[r.pos:] }

// Len is the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Offset is the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.pos }

// Peek returns up to n bytes without consuming them.
func (r *Reader) Peek(n int) []byte {
	if n > r.Len() {
		n = r.Len()
	}
	return r.buf[r.pos : r.pos+n]
}

// Next consumes exactly n bytes.
func (r *Reader) Next(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, ErrShort
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Skip advances the cursor by n bytes, clamped to the end.
func (r *Reader) Skip(n int) {
	r.pos += n
	if r.pos > len(r.buf) {
		r.pos = len(r.buf)
	}
}

func (r *Reader) Uint32(order binary.ByteOrder) (uint32, error) {
	b, err := r.Next(4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}
