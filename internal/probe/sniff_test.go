package probe

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		want   Format
		need   int
		unsupp bool
	}{
		{"empty", nil, FormatUnknown, 8, false},
		{"gif87a", []byte("GIF87a"), FormatGIF, 0, false},
		{"gif89a", []byte("GIF89a\x01\x00"), FormatGIF, 0, false},
		{"gif partial", []byte("GIF8"), FormatUnknown, 4, false},
		{"gif bad version", []byte("GIF90a\x00\x00"), FormatUnknown, 0, true},
		{"png", []byte("\x89PNG\r\n\x1a\n"), FormatPNG, 0, false},
		{"png partial", []byte("\x89PN"), FormatUnknown, 5, false},
		{"png corrupted", []byte("\x89PNG\r\n\x1a\x00"), FormatUnknown, 0, true},
		{"jpeg", []byte{0xFF, 0xD8}, FormatJPEG, 0, false},
		{"jpeg one byte", []byte{0xFF}, FormatUnknown, 7, false},
		{"bmp", []byte("BM"), FormatBMP, 0, false},
		{"bmp one byte", []byte("B"), FormatUnknown, 7, false},
		{"text", []byte("<!DOCTYPE html>"), FormatUnknown, 0, true},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), FormatUnknown, 0, true},
		{"ruled out early", []byte("X"), FormatUnknown, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Cursor
			c.Append(tt.data)
			got := Classify(&c)
			if got.Format != tt.want {
				t.Errorf("Format = %q, want %q", got.Format, tt.want)
			}
			if got.Need != tt.need {
				t.Errorf("Need = %d, want %d", got.Need, tt.need)
			}
			if got.Unsupported() != tt.unsupp {
				t.Errorf("Unsupported() = %v, want %v", got.Unsupported(), tt.unsupp)
			}
		})
	}
}

func TestFormat_MIMEType(t *testing.T) {
	tests := map[Format]string{
		FormatGIF:     "image/gif",
		FormatPNG:     "image/png",
		FormatJPEG:    "image/jpeg",
		FormatBMP:     "image/bmp",
		FormatUnknown: "",
	}
	for f, want := range tests {
		if got := f.MIMEType(); got != want {
			t.Errorf("%q.MIMEType() = %q, want %q", f, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{FormatGIF, FormatPNG, FormatJPEG, FormatBMP} {
		got, err := ParseFormat(string(f))
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := ParseFormat("webp"); err == nil {
		t.Error("ParseFormat(webp) should fail")
	}
}
