package probe

import (
	"encoding/binary"
	"fmt"
)

// ShortError reports a read past the end of the buffered bytes. Want is the
// total buffer length the read needed.
type ShortError struct {
	Want int
}

func (e *ShortError) Error() string {
	return fmt.Sprintf("need %d bytes", e.Want)
}

func (e *ShortError) Is(target error) bool { return target == ErrInsufficientData }

// Cursor accumulates received chunks. It only grows; stored bytes are never
// modified or dropped.
type Cursor struct {
	buf []byte
}

// Append copies p onto the end of the buffer.
func (c *Cursor) Append(p []byte) {
	c.buf = append(c.buf, p...)
}

func (c *Cursor) Len() int { return len(c.buf) }

// Slice returns n bytes starting at off. The returned slice must not be
// modified.
func (c *Cursor) Slice(off, n int) ([]byte, error) {
	if off < 0 || n < 0 {
		return nil, fmt.Errorf("invalid range %d+%d", off, n)
	}
	end := off + n
	if end > len(c.buf) {
		return nil, &ShortError{Want: end}
	}
	return c.buf[off:end:end], nil
}

func (c *Cursor) ByteAt(off int) (byte, error) {
	b, err := c.Slice(off, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) Uint16(off int, order binary.ByteOrder) (uint16, error) {
	b, err := c.Slice(off, 2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(b), nil
}

func (c *Cursor) Uint32(off int, order binary.ByteOrder) (uint32, error) {
	b, err := c.Slice(off, 4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}
