package probe

import "fmt"

// Format is the container detected from the leading signature bytes.
type Format string

const (
	FormatUnknown Format = ""
	FormatGIF     Format = "gif"
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatBMP     Format = "bmp"
)

var mimeTypes = map[Format]string{
	FormatGIF:  "image/gif",
	FormatPNG:  "image/png",
	FormatJPEG: "image/jpeg",
	FormatBMP:  "image/bmp",
}

// MIMEType returns the media type for f, or "" for FormatUnknown.
func (f Format) MIMEType() string {
	return mimeTypes[f]
}

// ParseFormat is the inverse of Format's string value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatGIF, FormatPNG, FormatJPEG, FormatBMP:
		return f, nil
	}
	return FormatUnknown, fmt.Errorf("unknown format %q", s)
}

// Dimensions is the canvas size in pixels.
type Dimensions struct {
	Width  uint32
	Height uint32
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Result is the successful outcome of a probe.
type Result struct {
	Format     Format
	Dimensions Dimensions
	// BytesRead is how many leading bytes had been received when the
	// outcome was reached.
	BytesRead int
}
