package probe

import "encoding/binary"

const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8
	markerEOI    = 0xD9
	markerTEM    = 0x01
)

// jpegScanner walks the marker segments after SOI looking for a
// start-of-frame segment. offset always points at the 0xFF of the marker being
// read, so a scan interrupted by a short buffer resumes where it stopped and
// bytes already skipped are never inspected again.
type jpegScanner struct {
	offset int
	// segments counts the marker segments skipped so far.
	segments int
}

func newJPEGScanner() jpegScanner {
	return jpegScanner{offset: 2}
}

func (s *jpegScanner) scan(c *Cursor) (Dimensions, error) {
	for {
		b, err := c.ByteAt(s.offset)
		if err != nil {
			return Dimensions{}, withMarker(err, s.offset+2)
		}
		if b != markerPrefix {
			return Dimensions{}, malformed(FormatJPEG, "expected marker at offset %d, got 0x%02X", s.offset, b)
		}

		code, err := c.ByteAt(s.offset + 1)
		if err != nil {
			return Dimensions{}, err
		}
		if code == markerPrefix {
			// Fill byte; the marker starts one byte later.
			s.offset++
			continue
		}

		switch {
		case isStandaloneMarker(code):
			s.offset += 2

		case isSOFMarker(code):
			b, err := c.Slice(s.offset+5, 4)
			if err != nil {
				return Dimensions{}, err
			}
			d := Dimensions{
				Height: uint32(binary.BigEndian.Uint16(b[0:2])),
				Width:  uint32(binary.BigEndian.Uint16(b[2:4])),
			}
			if d.Width == 0 || d.Height == 0 {
				return Dimensions{}, malformed(FormatJPEG, "SOF%d has zero dimension %s", code-0xC0, d)
			}
			return d, nil

		case code == markerEOI:
			return Dimensions{}, malformed(FormatJPEG, "end of image at offset %d before any frame header", s.offset)

		default:
			length, err := c.Uint16(s.offset+2, binary.BigEndian)
			if err != nil {
				return Dimensions{}, err
			}
			if length < 2 {
				return Dimensions{}, malformed(FormatJPEG, "segment 0x%02X at offset %d has length %d", code, s.offset, length)
			}
			s.offset += 2 + int(length)
			s.segments++
		}
	}
}

// withMarker widens a short read of a marker's first byte so the whole
// two-byte marker is requested at once.
func withMarker(err error, want int) error {
	if se, ok := err.(*ShortError); ok && se.Want < want {
		return &ShortError{Want: want}
	}
	return err
}

func isStandaloneMarker(code byte) bool {
	return code == markerSOI || code == markerTEM || (code >= 0xD0 && code <= 0xD7)
}

// isSOFMarker reports SOF0-SOF15 except DHT (C4), JPG (C8) and DAC (CC).
func isSOFMarker(code byte) bool {
	if code < 0xC0 || code > 0xCF {
		return false
	}
	switch code {
	case 0xC4, 0xC8, 0xCC:
		return false
	}
	return true
}
