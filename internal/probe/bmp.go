package probe

import "encoding/binary"

// OS/2 BITMAPCOREHEADER size; every other DIB header stores int32 fields.
const bmpCoreHeaderSize = 12

// parseBMP reads the DIB header that follows the 14-byte file header.
// BITMAPINFOHEADER and later store signed int32 width/height at 18 and 22;
// a negative height marks a top-down bitmap.
func parseBMP(c *Cursor) (Dimensions, error) {
	size, err := c.Uint32(14, binary.LittleEndian)
	if err != nil {
		return Dimensions{}, err
	}

	var d Dimensions
	if size == bmpCoreHeaderSize {
		b, err := c.Slice(18, 4)
		if err != nil {
			return Dimensions{}, err
		}
		d.Width = uint32(binary.LittleEndian.Uint16(b[0:2]))
		d.Height = uint32(binary.LittleEndian.Uint16(b[2:4]))
	} else {
		b, err := c.Slice(18, 8)
		if err != nil {
			return Dimensions{}, err
		}
		d.Width = abs32(int32(binary.LittleEndian.Uint32(b[0:4])))
		d.Height = abs32(int32(binary.LittleEndian.Uint32(b[4:8])))
	}

	if d.Width == 0 || d.Height == 0 {
		return Dimensions{}, malformed(FormatBMP, "zero dimension %s", d)
	}
	return d, nil
}

func abs32(v int32) uint32 {
	if v < 0 {
		return uint32(-int64(v))
	}
	return uint32(v)
}
