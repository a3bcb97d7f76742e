// Package logging hands out named loggers that write timestamped lines to
// stdout and, after Init, to one file per name and month.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type entry struct {
	logger *log.Logger
	file   *os.File
}

var (
	mu          sync.Mutex
	initialized bool
	logDir      string
	loggers     map[string]*entry
	console     io.Writer = os.Stdout
)

// Init configures the log directory and routes the standard logger to the
// "app" log.
func Init(dir string) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	logDir = dir
	loggers = make(map[string]*entry)
	initialized = true

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	appEntry, err := buildLoggerLocked("app")
	if err != nil {
		log.SetOutput(timeWriter{w: console})
		log.SetFlags(0)
		return err
	}

	loggers["app"] = appEntry
	log.SetOutput(appEntry.logger.Writer())
	log.SetFlags(0)
	return nil
}

// SetConsole replaces the stdout side of every logger created afterwards.
// Passing io.Discard silences console output.
func SetConsole(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	console = w
}

func Get(name string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if !initialized {
		return log.New(timeWriter{w: console}, fmt.Sprintf("[%s] ", name), 0)
	}

	if e := loggers[name]; e != nil {
		return e.logger
	}

	e, err := buildLoggerLocked(name)
	if err != nil {
		return log.New(timeWriter{w: console}, fmt.Sprintf("[%s] ", name), 0)
	}
	loggers[name] = e
	return e.logger
}

// Close flushes and closes every log file and returns to console-only mode.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	err := closeLocked()
	initialized = false
	log.SetOutput(timeWriter{w: console})
	return err
}

func closeLocked() error {
	var errs []error
	for name, e := range loggers {
		if e.file != nil {
			if err := e.file.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s log: %w", name, err))
			}
		}
	}
	loggers = nil
	return errors.Join(errs...)
}

// FileName is the log file used for name at time t.
func FileName(name string, t time.Time) string {
	return t.Format("06.01") + "_" + name + ".log" // yy.mm
}

func buildLoggerLocked(name string) (*entry, error) {
	path := filepath.Join(logDir, FileName(name, time.Now()))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", name, err)
	}

	tw := timeWriter{w: io.MultiWriter(console, file)}
	return &entry{logger: log.New(tw, "", 0), file: file}, nil
}

type timeWriter struct {
	w io.Writer
}

func (t timeWriter) Write(p []byte) (int, error) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	lines := strings.Split(string(p), "\n")
	total := 0
	for i, line := range lines {
		if line == "" && i == len(lines)-1 {
			continue
		}
		entry := ts + ", " + line
		if i < len(lines)-1 {
			entry += "\n"
		}
		n, err := t.w.Write([]byte(entry))
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
