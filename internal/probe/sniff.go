package probe

import "bytes"

// sniffLen is the longest signature checked.
const sniffLen = 8

type signature struct {
	format Format
	magic  [][]byte
}

// Checked in order.
var signatures = []signature{
	{FormatGIF, [][]byte{[]byte("GIF87a"), []byte("GIF89a")}},
	{FormatPNG, [][]byte{{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}}},
	{FormatJPEG, [][]byte{{0xFF, 0xD8}}},
	{FormatBMP, [][]byte{[]byte("BM")}},
}

// SniffResult is Matched (Format set), NeedMoreBytes (Need > 0) or
// Unsupported (neither).
type SniffResult struct {
	Format Format
	Need   int
}

func (r SniffResult) Unsupported() bool {
	return r.Format == FormatUnknown && r.Need == 0
}

// Classify inspects the leading bytes of c. A signature is ruled out as soon
// as one of its available bytes differs.
func Classify(c *Cursor) SniffResult {
	head := c.buf
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	pending := false
	for _, sig := range signatures {
		for _, magic := range sig.magic {
			switch {
			case len(head) >= len(magic):
				if bytes.Equal(head[:len(magic)], magic) {
					return SniffResult{Format: sig.format}
				}
			case bytes.HasPrefix(magic, head):
				pending = true
			}
		}
	}

	if pending {
		return SniffResult{Need: sniffLen - len(head)}
	}
	return SniffResult{}
}
