package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fastsize/internal/probe"
	"fastsize/internal/testutil"
)

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	data := testutil.EncodeJPEG(t, 120, 90)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src, err := OpenFile(path, 64)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	res, err := probe.Probe(context.Background(), src)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.Format != probe.FormatJPEG || res.Dimensions != (probe.Dimensions{Width: 120, Height: 90}) {
		t.Errorf("Probe() = %+v", res)
	}
	if src.BytesRead() >= int64(len(data)) {
		t.Errorf("BytesRead() = %d, want less than %d", src.BytesRead(), len(data))
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, probe.ErrSourceClosed) {
		t.Errorf("Next() after Probe error = %v, want ErrSourceClosed", err)
	}
}

func TestFileSource_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.png")
	if err := os.WriteFile(path, testutil.PNG(10, 10)[:20], 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src, err := OpenFile(path, 0)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	_, err = probe.Probe(context.Background(), src)
	if !errors.Is(err, probe.ErrInsufficientData) {
		t.Errorf("Probe() error = %v, want ErrInsufficientData", err)
	}
}

func TestOpenFile_Missing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "nope.gif"), 0)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("OpenFile() error = %v, want ErrNotExist", err)
	}
}

func TestGetPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusFound)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><head>"+strings.Repeat("x", 2000)+"</head></html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := GetPage(context.Background(), srv.Client(), srv.URL+"/old", 100, "")
	if err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if page.URL.Path != "/page" {
		t.Errorf("URL = %s, want redirect target", page.URL)
	}
	if len(page.Body) != 100 {
		t.Errorf("len(Body) = %d, want 100", len(page.Body))
	}
	if page.ContentType != "text/html" {
		t.Errorf("ContentType = %q", page.ContentType)
	}

	_, err = GetPage(context.Background(), srv.Client(), srv.URL+"/missing", 0, "")
	if !errors.Is(err, ErrStatus) {
		t.Errorf("GetPage() error = %v, want ErrStatus", err)
	}
}
