package probe

import (
	"context"
	"errors"
	"io"
)

// ErrSourceClosed is returned by Next after Close.
var ErrSourceClosed = errors.New("source closed")

// ChunkSource delivers a byte stream in arrival order. Next returns io.EOF
// once the stream is exhausted and may return a final chunk together with
// it. The returned slice is only valid until the next call. Close aborts the
// underlying transfer.
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// NeedHinter is implemented by sources that can size their next request
// from the number of bytes the probe is waiting for.
type NeedHinter interface {
	Need(n int)
}

// Probe pulls chunks from src until an outcome is reached, then closes src.
// The context deadline (or WithTimeout) maps to KindTimeout and cancellation
// to KindCancelled.
func Probe(ctx context.Context, src ChunkSource, opts ...Option) (Result, error) {
	o := buildOptions(opts)
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	ctrl := newController(o)
	hinter, _ := src.(NeedHinter)
	for {
		if err := ctx.Err(); err != nil {
			ctrl.Finish(err)
			break
		}

		chunk, err := src.Next(ctx)
		st := ctrl.Status()
		if len(chunk) > 0 {
			st = ctrl.Feed(chunk)
		}
		if st.Done() {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			} else if errors.Is(err, io.EOF) {
				err = nil
			}
			ctrl.Finish(err)
			break
		}
		if hinter != nil {
			hinter.Need(st.Need)
		}
	}

	if err := src.Close(); err != nil && o.logger != nil {
		o.logger.Printf("probe close source: %v", err)
	}
	return ctrl.Outcome()
}

// SliceSource serves an in-memory stream in fixed-size chunks.
type SliceSource struct {
	data   []byte
	size   int
	off    int
	closed bool
}

// NewSliceSource splits data into chunks of size bytes (at least 1).
func NewSliceSource(data []byte, size int) *SliceSource {
	return &SliceSource{data: data, size: max(size, 1)}
}

func (s *SliceSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed {
		return nil, ErrSourceClosed
	}
	if s.off >= len(s.data) {
		return nil, io.EOF
	}
	end := min(s.off+s.size, len(s.data))
	chunk := s.data[s.off:end]
	s.off = end
	return chunk, nil
}

func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

// Delivered reports how many bytes Next has handed out.
func (s *SliceSource) Delivered() int { return s.off }

// Closed reports whether Close was called.
func (s *SliceSource) Closed() bool { return s.closed }
