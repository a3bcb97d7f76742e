// Package testutil builds image headers and test databases shared by the
// package tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

// GIF returns a GIF89a signature plus logical screen descriptor.
func GIF(w, h uint16) []byte {
	b := []byte("GIF89a")
	b = binary.LittleEndian.AppendUint16(b, w)
	b = binary.LittleEndian.AppendUint16(b, h)
	return append(b, 0x00, 0x00, 0x00)
}

// PNG returns the signature and a complete IHDR chunk.
func PNG(w, h uint32) []byte {
	ihdr := binary.BigEndian.AppendUint32(nil, w)
	ihdr = binary.BigEndian.AppendUint32(ihdr, h)
	ihdr = append(ihdr, 8, 6, 0, 0, 0) // depth, RGBA, compression, filter, interlace
	return append([]byte("\x89PNG\r\n\x1a\n"), Chunk("IHDR", ihdr)...)
}

// Chunk encodes one PNG chunk with a valid CRC.
func Chunk(typ string, data []byte) []byte {
	b := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
	b = append(b, typ...)
	b = append(b, data...)
	crc := crc32.ChecksumIEEE(b[4:])
	return binary.BigEndian.AppendUint32(b, crc)
}

// BMP returns a file header followed by a 40-byte BITMAPINFOHEADER.
func BMP(w, h int32) []byte {
	b := []byte("BM")
	b = binary.LittleEndian.AppendUint32(b, 54) // file size
	b = binary.LittleEndian.AppendUint32(b, 0)  // reserved
	b = binary.LittleEndian.AppendUint32(b, 54) // pixel data offset
	b = binary.LittleEndian.AppendUint32(b, 40) // header size
	b = binary.LittleEndian.AppendUint32(b, uint32(w))
	b = binary.LittleEndian.AppendUint32(b, uint32(h))
	b = binary.LittleEndian.AppendUint16(b, 1)  // planes
	b = binary.LittleEndian.AppendUint16(b, 24) // bpp
	return append(b, make([]byte, 24)...)
}

// BMPCore returns a file header followed by an OS/2 BITMAPCOREHEADER.
func BMPCore(w, h uint16) []byte {
	b := []byte("BM")
	b = binary.LittleEndian.AppendUint32(b, 26)
	b = binary.LittleEndian.AppendUint32(b, 0)
	b = binary.LittleEndian.AppendUint32(b, 26)
	b = binary.LittleEndian.AppendUint32(b, 12)
	b = binary.LittleEndian.AppendUint16(b, w)
	b = binary.LittleEndian.AppendUint16(b, h)
	b = binary.LittleEndian.AppendUint16(b, 1)
	return binary.LittleEndian.AppendUint16(b, 24)
}

// Segment encodes a JPEG marker segment with a length field.
func Segment(marker byte, payload []byte) []byte {
	b := []byte{0xFF, marker}
	b = binary.BigEndian.AppendUint16(b, uint16(len(payload)+2))
	return append(b, payload...)
}

// APP0 is a JFIF segment whose length field is n.
func APP0(n int) []byte {
	payload := make([]byte, n-2)
	copy(payload, "JFIF\x00\x01\x01")
	return Segment(0xE0, payload)
}

// SOF encodes a start-of-frame segment for the given marker with three
// components.
func SOF(marker byte, w, h uint16) []byte {
	p := []byte{8}
	p = binary.BigEndian.AppendUint16(p, h)
	p = binary.BigEndian.AppendUint16(p, w)
	p = append(p, 3, 1, 0x22, 0, 2, 0x11, 1, 3, 0x11, 1)
	return Segment(marker, p)
}

// JPEG returns SOI, the given segments, a baseline SOF0 and EOI.
func JPEG(w, h uint16, segments ...[]byte) []byte {
	b := []byte{0xFF, 0xD8}
	for _, s := range segments {
		b = append(b, s...)
	}
	b = append(b, SOF(0xC0, w, h)...)
	return append(b, 0xFF, 0xD9)
}

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xFF})
		}
	}
	return img
}

// EncodePNG encodes a real w×h PNG.
func EncodePNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// EncodeJPEG encodes a real w×h JPEG.
func EncodeJPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 75}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// EncodeGIF encodes a real w×h GIF.
func EncodeGIF(t testing.TB, w, h int) []byte {
	t.Helper()
	palette := color.Palette{color.Black, color.White}
	img := image.NewPaletted(image.Rect(0, 0, w, h), palette)
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

// EncodeBMP encodes a real w×h BMP.
func EncodeBMP(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("encode bmp: %v", err)
	}
	return buf.Bytes()
}
