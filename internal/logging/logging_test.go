package logging

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestTimeWriter(t *testing.T) {
	var buf bytes.Buffer
	w := timeWriter{w: &buf}

	if _, err := w.Write([]byte("first\nsecond\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q, want 2", lines)
	}
	re := regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}, (first|second)$`)
	for _, l := range lines {
		if !re.MatchString(l) {
			t.Errorf("line %q has no timestamp prefix", l)
		}
	}
}

func TestGet_BeforeInit(t *testing.T) {
	var buf bytes.Buffer
	SetConsole(&buf)
	defer SetConsole(os.Stdout)

	Get("probe").Printf("probe ok format=%s", "gif")
	if !strings.Contains(buf.String(), "[probe] probe ok format=gif") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestInit_WritesFiles(t *testing.T) {
	SetConsole(io.Discard)
	defer SetConsole(os.Stdout)

	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Close()

	l := Get("fetch")
	if Get("fetch") != l {
		t.Error("Get() should return the same logger for a name")
	}
	l.Print("fetch url=http://x status=206")

	path := filepath.Join(dir, FileName("fetch", time.Now()))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "fetch url=http://x status=206") {
		t.Errorf("log file = %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName("app", time.Now()))); err != nil {
		t.Errorf("app log missing: %v", err)
	}
}

func TestClose(t *testing.T) {
	SetConsole(io.Discard)
	defer SetConsole(os.Stdout)

	if err := Init(t.TempDir()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Get("cleanup")
	if err := Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestFileName(t *testing.T) {
	ts := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	if got := FileName("requests", ts); got != "26.03_requests.log" {
		t.Errorf("FileName() = %q", got)
	}
}
