package fetch

import (
	"context"
	"fmt"
	"io"
	"os"

	"fastsize/internal/probe"
)

// FileSource reads a local file in fixed-size chunks.
type FileSource struct {
	f      *os.File
	buf    []byte
	read   int64
	closed bool
}

func OpenFile(path string, chunkSize int) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &FileSource{f: f, buf: make([]byte, chunkSize)}, nil
}

func (s *FileSource) Next(ctx context.Context) ([]byte, error) {
	if s.closed {
		return nil, probe.ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := s.f.Read(s.buf)
	s.read += int64(n)
	if err == io.EOF && n > 0 {
		return s.buf[:n], nil
	}
	return s.buf[:n], err
}

func (s *FileSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}

// BytesRead reports how many bytes were read from the file.
func (s *FileSource) BytesRead() int64 { return s.read }
