package probe

import (
	"encoding/binary"
)

// parsePNG reads the IHDR chunk, which must be the first chunk after the
// signature. Width and height are big-endian uint32 at 16 and 20.
func parsePNG(c *Cursor) (Dimensions, error) {
	typ, err := c.Slice(12, 4)
	if err != nil {
		return Dimensions{}, err
	}
	if string(typ) != "IHDR" {
		return Dimensions{}, malformed(FormatPNG, "first chunk is %q, want IHDR", typ)
	}

	b, err := c.Slice(16, 8)
	if err != nil {
		return Dimensions{}, err
	}
	d := Dimensions{
		Width:  binary.BigEndian.Uint32(b[0:4]),
		Height: binary.BigEndian.Uint32(b[4:8]),
	}
	if d.Width == 0 || d.Height == 0 {
		return Dimensions{}, malformed(FormatPNG, "zero dimension %s", d)
	}
	return d, nil
}
