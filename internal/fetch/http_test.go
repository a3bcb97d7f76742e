package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fastsize/internal/probe"
	"fastsize/internal/testutil"
)

// rangeServer serves data honouring Range headers and counts requests.
func rangeServer(t *testing.T, data []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.ServeContent(w, r, "img", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func bigJPEG() []byte {
	data := testutil.JPEG(640, 480, testutil.APP0(16), testutil.Segment(0xE1, make([]byte, 20000)))
	return append(data, make([]byte, 50000)...)
}

func TestHTTPSource_SingleRange(t *testing.T) {
	srv, hits := rangeServer(t, testutil.PNG(30, 20))

	src, err := Open(context.Background(), srv.Client(), srv.URL+"/a.png", Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	res, err := probe.Probe(context.Background(), src)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.Format != probe.FormatPNG || res.Dimensions != (probe.Dimensions{Width: 30, Height: 20}) {
		t.Errorf("Probe() = %+v", res)
	}
	if hits.Load() != 1 {
		t.Errorf("requests = %d, want 1", hits.Load())
	}
	if src.StatusCode() != http.StatusPartialContent {
		t.Errorf("StatusCode() = %d, want 206", src.StatusCode())
	}
}

func TestHTTPSource_FollowUpRanges(t *testing.T) {
	data := bigJPEG()
	srv, _ := rangeServer(t, data)

	src, err := Open(context.Background(), srv.Client(), srv.URL, Options{ChunkSize: 4096})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	res, err := probe.Probe(context.Background(), src)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.Dimensions != (probe.Dimensions{Width: 640, Height: 480}) {
		t.Errorf("Dimensions = %v, want 640x480", res.Dimensions)
	}
	if src.Requests() != 3 {
		t.Errorf("Requests() = %d, want 3", src.Requests())
	}
	if src.BytesRead() >= int64(len(data)) {
		t.Errorf("BytesRead() = %d, should stop before %d", src.BytesRead(), len(data))
	}
}

func TestHTTPSource_RangeIgnored(t *testing.T) {
	data := bigJPEG()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(data)
	}))
	defer srv.Close()

	src, err := Open(context.Background(), srv.Client(), srv.URL, Options{ChunkSize: 1024})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	res, err := probe.Probe(context.Background(), src)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.Dimensions != (probe.Dimensions{Width: 640, Height: 480}) {
		t.Errorf("Dimensions = %v", res.Dimensions)
	}
	if src.Requests() != 1 {
		t.Errorf("Requests() = %d, want 1", src.Requests())
	}
}

func TestHTTPSource_RangeDroppedMidway(t *testing.T) {
	data := bigJPEG()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.ServeContent(w, r, "img", time.Time{}, bytes.NewReader(data))
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	src, err := Open(context.Background(), srv.Client(), srv.URL, Options{ChunkSize: 4096})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	res, err := probe.Probe(context.Background(), src)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.Dimensions != (probe.Dimensions{Width: 640, Height: 480}) {
		t.Errorf("Dimensions = %v", res.Dimensions)
	}
}

func TestHTTPSource_EmptyResource(t *testing.T) {
	srv, _ := rangeServer(t, nil)

	src, err := Open(context.Background(), srv.Client(), srv.URL, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_, err = probe.Probe(context.Background(), src)
	if !errors.Is(err, probe.ErrInsufficientData) {
		t.Errorf("Probe() error = %v, want ErrInsufficientData", err)
	}
}

func TestHTTPSource_Truncated(t *testing.T) {
	srv, _ := rangeServer(t, []byte("GIF89a\x01"))

	src, err := Open(context.Background(), srv.Client(), srv.URL, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_, err = probe.Probe(context.Background(), src)
	if !errors.Is(err, probe.ErrInsufficientData) {
		t.Errorf("Probe() error = %v, want ErrInsufficientData", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	tests := []struct {
		name string
		url  string
		want error
	}{
		{"not found", srv.URL + "/missing.png", ErrStatus},
		{"ftp scheme", "ftp://example.com/a.png", ErrScheme},
		{"relative", "/a.png", ErrScheme},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), srv.Client(), tt.url, Options{})
			if !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}

	var se *StatusError
	_, err := Open(context.Background(), srv.Client(), srv.URL, Options{})
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("Open() error = %v, want 404 StatusError", err)
	}
}

func TestHTTPSource_TimeoutAbortsTransfer(t *testing.T) {
	aborted := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("GIF89a"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(aborted)
	}))
	defer srv.Close()

	src, err := Open(context.Background(), srv.Client(), srv.URL, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_, err = probe.Probe(context.Background(), src, probe.WithTimeout(50*time.Millisecond))
	if !errors.Is(err, probe.ErrTimeout) {
		t.Fatalf("Probe() error = %v, want ErrTimeout", err)
	}

	select {
	case <-aborted:
	case <-time.After(2 * time.Second):
		t.Error("server request was not aborted")
	}
}

func TestHTTPSource_UserAgent(t *testing.T) {
	var ua, rng string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
		rng = r.Header.Get("Range")
		w.Write(testutil.GIF(1, 1))
	}))
	defer srv.Close()

	src, err := Open(context.Background(), srv.Client(), srv.URL, Options{ChunkSize: 512, UserAgent: "test-agent"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	src.Close()

	if ua != "test-agent" {
		t.Errorf("User-Agent = %q", ua)
	}
	if rng != "bytes=0-511" {
		t.Errorf("Range = %q, want bytes=0-511", rng)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, probe.ErrSourceClosed) {
		t.Errorf("Next() after Close error = %v", err)
	}
}

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		in        string
		start     int64
		total     int64
		expectErr bool
	}{
		{"bytes 0-4095/12345", 0, 12345, false},
		{"bytes 100-199/*", 100, -1, false},
		{"bytes */0", 0, 0, true},
		{"items 0-1/2", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			start, total, err := parseContentRange(tt.in)
			if tt.expectErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseContentRange() error = %v", err)
			}
			if start != tt.start || total != tt.total {
				t.Errorf("parseContentRange() = %d, %d", start, total)
			}
		})
	}
}

func TestParseURL(t *testing.T) {
	for _, raw := range []string{"http://example.com/a.gif", "https://example.com/b.png?x=1"} {
		if _, err := ParseURL(raw); err != nil {
			t.Errorf("ParseURL(%q) error = %v", raw, err)
		}
	}
	for _, raw := range []string{"", "example.com/a.gif", "file:///etc/passwd", "http://"} {
		if _, err := ParseURL(raw); err == nil {
			t.Errorf("ParseURL(%q) should fail", raw)
		}
	}
}

func TestStatusError(t *testing.T) {
	err := &StatusError{URL: "http://x/y", Code: 503}
	if !strings.Contains(err.Error(), "503 Service Unavailable") {
		t.Errorf("Error() = %q", err.Error())
	}
}
