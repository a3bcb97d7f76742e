package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fastsize/internal/probe"
)

// HTTPSource streams the head of a remote resource using Range requests. The
// first request asks for one chunk; when the probe needs more, the next
// request is sized from the probe's hint. Servers that ignore Range are read
// sequentially until Close aborts the transfer.
type HTTPSource struct {
	client *http.Client
	url    string
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc

	body    io.ReadCloser
	buf     []byte
	offset  int64 // next byte to be read
	total   int64 // -1 when unknown
	ranged  bool  // current body is a 206 slice
	got     int64 // bytes read from the current body
	want    int
	eof     bool
	closed  bool
	status  int
	fetches int
}

var _ probe.ChunkSource = (*HTTPSource)(nil)
var _ probe.NeedHinter = (*HTTPSource)(nil)

// Open validates rawURL and issues the first ranged request.
func Open(ctx context.Context, client *http.Client, rawURL string, opts Options) (*HTTPSource, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(ctx)
	s := &HTTPSource{
		client: client,
		url:    u.String(),
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		buf:    make([]byte, opts.ChunkSize),
		total:  -1,
	}
	if err := s.request(opts.ChunkSize); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *HTTPSource) request(n int) error {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", s.offset, s.offset+int64(n)-1))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", s.url, err)
	}
	s.fetches++
	s.status = resp.StatusCode

	switch resp.StatusCode {
	case http.StatusPartialContent:
		start, total, err := parseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			resp.Body.Close()
			return err
		}
		if start != s.offset {
			resp.Body.Close()
			return fmt.Errorf("fetch %s: range starts at %d, asked for %d", s.url, start, s.offset)
		}
		s.total = total
		s.ranged = true
		s.got = 0
		s.body = resp.Body
	case http.StatusOK:
		if s.offset > 0 {
			if _, err := io.CopyN(io.Discard, resp.Body, s.offset); err != nil {
				resp.Body.Close()
				return fmt.Errorf("fetch %s: skip %d bytes: %w", s.url, s.offset, err)
			}
		}
		s.total = resp.ContentLength
		s.ranged = false
		s.got = 0
		s.body = resp.Body
	case http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		s.eof = true
	default:
		resp.Body.Close()
		return &StatusError{URL: s.url, Code: resp.StatusCode}
	}
	return nil
}

// Next returns the next chunk of at most the configured chunk size. A ranged
// response that ran out is followed by another request unless the resource is
// known to be exhausted.
func (s *HTTPSource) Next(ctx context.Context) ([]byte, error) {
	if s.closed {
		return nil, probe.ErrSourceClosed
	}
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	for {
		if s.eof {
			return nil, io.EOF
		}
		if s.body == nil {
			if s.total >= 0 && s.offset >= s.total {
				s.eof = true
				continue
			}
			if err := s.request(max(s.opts.ChunkSize, s.want)); err != nil {
				return nil, s.ctxErr(ctx, err)
			}
			continue
		}

		n, err := s.body.Read(s.buf)
		s.offset += int64(n)
		s.got += int64(n)
		if errors.Is(err, io.EOF) {
			s.body.Close()
			s.body = nil
			if !s.ranged || s.got == 0 {
				s.eof = true
			}
			err = nil
		}
		if err != nil {
			return s.buf[:n], s.ctxErr(ctx, err)
		}
		if n > 0 {
			if s.eof {
				return s.buf[:n], io.EOF
			}
			return s.buf[:n], nil
		}
	}
}

func (s *HTTPSource) ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// Need records how many more bytes the probe waits for.
func (s *HTTPSource) Need(n int) { s.want = n }

// Close aborts any in-flight transfer.
func (s *HTTPSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	if s.body != nil {
		err := s.body.Close()
		s.body = nil
		return err
	}
	return nil
}

// BytesRead reports how many body bytes were consumed.
func (s *HTTPSource) BytesRead() int64 { return s.offset }

// Requests reports how many HTTP requests were issued.
func (s *HTTPSource) Requests() int { return s.fetches }

// StatusCode is the status of the most recent response.
func (s *HTTPSource) StatusCode() int { return s.status }

// parseContentRange parses "bytes start-end/total"; total is -1 for "*".
func parseContentRange(v string) (start, total int64, err error) {
	rest, ok := strings.CutPrefix(v, "bytes ")
	if !ok {
		return 0, 0, fmt.Errorf("invalid content-range %q", v)
	}
	rng, size, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, 0, fmt.Errorf("invalid content-range %q", v)
	}
	first, _, ok := strings.Cut(rng, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid content-range %q", v)
	}
	if start, err = strconv.ParseInt(first, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid content-range %q: %w", v, err)
	}
	if size == "*" {
		return start, -1, nil
	}
	if total, err = strconv.ParseInt(size, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid content-range %q: %w", v, err)
	}
	return start, total, nil
}
