package probe

import "encoding/binary"

// parseGIF reads the logical screen descriptor that follows the 6-byte
// signature: little-endian width at 6, height at 8.
func parseGIF(c *Cursor) (Dimensions, error) {
	b, err := c.Slice(6, 4)
	if err != nil {
		return Dimensions{}, err
	}
	d := Dimensions{
		Width:  uint32(binary.LittleEndian.Uint16(b[0:2])),
		Height: uint32(binary.LittleEndian.Uint16(b[2:4])),
	}
	if d.Width == 0 || d.Height == 0 {
		return Dimensions{}, malformed(FormatGIF, "zero dimension %s", d)
	}
	return d, nil
}
