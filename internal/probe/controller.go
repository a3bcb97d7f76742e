package probe

import (
	"errors"
	"fmt"
	"log"
	"time"
)

const (
	// DefaultMaxBytes bounds how much of a stream a single probe buffers.
	DefaultMaxBytes = 1 << 20
	// MinMaxBytes is the smallest accepted ceiling; every fixed-offset
	// header fits below it.
	MinMaxBytes = 32
	// DefaultTimeout is applied by Probe when no WithTimeout option is given.
	DefaultTimeout = 2 * time.Second
)

var errPending = errors.New("probe has no outcome yet")

// State is the controller's position in its lifecycle.
type State int

const (
	StateSniffing State = iota
	StateExtracting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSniffing:
		return "sniffing"
	case StateExtracting:
		return "extracting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Status is returned after every chunk. While not Done, Need is the minimum
// number of additional bytes required before another attempt can progress.
type Status struct {
	State State
	Need  int
}

func (s Status) Done() bool {
	return s.State == StateSucceeded || s.State == StateFailed
}

type options struct {
	maxBytes int
	timeout  time.Duration
	logger   *log.Logger
}

// Option configures a Controller or Probe.
type Option func(*options)

// WithMaxBytes sets the buffering ceiling. Values below MinMaxBytes are raised.
func WithMaxBytes(n int) Option {
	return func(o *options) {
		o.maxBytes = max(n, MinMaxBytes)
	}
}

// WithTimeout bounds a Probe call. Zero disables the probe's own deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLogger logs one line per outcome.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{maxBytes: DefaultMaxBytes, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Controller drives one probe: it owns the cursor and parse state, sniffs the
// format, runs the matching parser as chunks arrive and settles exactly one
// outcome. It is not safe for concurrent use.
type Controller struct {
	opts   options
	cursor Cursor
	state  State
	format Format
	jpeg   jpegScanner
	need   int
	result Result
	err    error
}

func NewController(opts ...Option) *Controller {
	return newController(buildOptions(opts))
}

func newController(o options) *Controller {
	return &Controller{opts: o, jpeg: newJPEGScanner(), need: sniffLen}
}

// Feed appends a chunk and re-evaluates. Chunks arriving after an outcome are
// ignored. Bytes past the ceiling are never buffered.
func (c *Controller) Feed(chunk []byte) Status {
	if c.Done() {
		return c.Status()
	}
	if room := c.opts.maxBytes - c.cursor.Len(); len(chunk) > room {
		chunk = chunk[:room]
	}
	c.cursor.Append(chunk)
	c.advance()
	return c.Status()
}

// Finish delivers the transport's terminal signal. A nil cause means the
// stream ended; context errors map to Timeout and Cancelled. It has no effect
// once an outcome exists.
func (c *Controller) Finish(cause error) {
	if c.Done() {
		return
	}
	kind := transportKind(cause)
	if cause == nil {
		cause = fmt.Errorf("stream ended after %d bytes", c.cursor.Len())
	}
	c.fail(newError(kind, c.format, cause))
}

// Cancel aborts the probe with KindCancelled.
func (c *Controller) Cancel() {
	c.Finish(ErrCancelled)
}

func (c *Controller) Done() bool {
	return c.state == StateSucceeded || c.state == StateFailed
}

func (c *Controller) Status() Status {
	if c.Done() {
		return Status{State: c.state}
	}
	return Status{State: c.state, Need: c.need}
}

// Format is the sniffed container, FormatUnknown until sniffing succeeds.
func (c *Controller) Format() Format { return c.format }

// Buffered reports how many bytes the cursor holds.
func (c *Controller) Buffered() int { return c.cursor.Len() }

// Outcome returns the settled result or failure.
func (c *Controller) Outcome() (Result, error) {
	switch c.state {
	case StateSucceeded:
		return c.result, nil
	case StateFailed:
		return Result{}, c.err
	}
	return Result{}, errPending
}

func (c *Controller) advance() {
	if c.state == StateSniffing {
		r := Classify(&c.cursor)
		switch {
		case r.Format != FormatUnknown:
			c.format = r.Format
			c.state = StateExtracting
		case r.Need > 0:
			c.need = r.Need
			c.checkCeiling(c.cursor.Len() + r.Need)
			return
		default:
			c.fail(newError(KindUnsupportedFormat, FormatUnknown, fmt.Errorf("signature % X", c.head())))
			return
		}
	}

	d, err := c.extract()
	var short *ShortError
	switch {
	case err == nil:
		c.succeed(d)
	case errors.As(err, &short):
		c.need = short.Want - c.cursor.Len()
		c.checkCeiling(short.Want)
	default:
		var pe *Error
		if !errors.As(err, &pe) {
			pe = newError(KindMalformedFormat, c.format, err)
		}
		c.fail(pe)
	}
}

func (c *Controller) extract() (Dimensions, error) {
	switch c.format {
	case FormatGIF:
		return parseGIF(&c.cursor)
	case FormatPNG:
		return parsePNG(&c.cursor)
	case FormatBMP:
		return parseBMP(&c.cursor)
	case FormatJPEG:
		return c.jpeg.scan(&c.cursor)
	}
	return Dimensions{}, newError(KindUnsupportedFormat, c.format, nil)
}

// checkCeiling fails the probe when the bytes it waits for lie beyond the
// ceiling. For JPEG this can only happen while skipping marker segments.
func (c *Controller) checkCeiling(want int) {
	if want <= c.opts.maxBytes {
		return
	}
	kind := KindInsufficientData
	if c.format == FormatJPEG {
		kind = KindFormatTooComplex
	}
	c.fail(newError(kind, c.format, fmt.Errorf("need %d bytes, limit is %d", want, c.opts.maxBytes)))
}

func (c *Controller) succeed(d Dimensions) {
	c.state = StateSucceeded
	c.result = Result{Format: c.format, Dimensions: d, BytesRead: c.cursor.Len()}
	if l := c.opts.logger; l != nil {
		l.Printf("probe ok format=%s size=%s bytes=%d", c.format, d, c.cursor.Len())
	}
}

func (c *Controller) fail(err *Error) {
	c.state = StateFailed
	c.err = err
	if l := c.opts.logger; l != nil {
		l.Printf("probe failed kind=%s format=%s bytes=%d err=%v", err.Kind, err.Format, c.cursor.Len(), err)
	}
}

func (c *Controller) head() []byte {
	n := min(c.cursor.Len(), sniffLen)
	b, _ := c.cursor.Slice(0, n)
	return b
}
