package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies why a probe failed.
type Kind int

const (
	KindUnsupportedFormat Kind = iota + 1
	KindMalformedFormat
	KindInsufficientData
	KindTimeout
	KindCancelled
	KindFormatTooComplex
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrMalformedFormat   = errors.New("malformed image header")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrTimeout           = errors.New("probe timed out")
	ErrCancelled         = errors.New("probe cancelled")
	ErrFormatTooComplex  = errors.New("header exceeds byte limit")
)

var kindInfo = map[Kind]struct {
	name     string
	sentinel error
}{
	KindUnsupportedFormat: {"unsupported_format", ErrUnsupportedFormat},
	KindMalformedFormat:   {"malformed_format", ErrMalformedFormat},
	KindInsufficientData:  {"insufficient_data", ErrInsufficientData},
	KindTimeout:           {"timeout", ErrTimeout},
	KindCancelled:         {"cancelled", ErrCancelled},
	KindFormatTooComplex:  {"format_too_complex", ErrFormatTooComplex},
}

func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Definitive reports whether retrying the same bytes would fail the same way.
func (k Kind) Definitive() bool {
	switch k {
	case KindUnsupportedFormat, KindMalformedFormat, KindFormatTooComplex:
		return true
	}
	return false
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, info := range kindInfo {
		if info.name == s {
			return k, true
		}
	}
	return 0, false
}

// Error is the terminal failure of a probe.
type Error struct {
	Kind   Kind
	Format Format
	Err    error
}

func (e *Error) Error() string {
	msg := kindInfo[e.Kind].sentinel.Error()
	if e.Format != FormatUnknown {
		msg = string(e.Format) + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind, so errors.Is(err, ErrTimeout) works.
func (e *Error) Is(target error) bool {
	info, ok := kindInfo[e.Kind]
	return ok && target == info.sentinel
}

// KindOf extracts the Kind from err, or 0 when err is not a probe error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

func newError(kind Kind, format Format, err error) *Error {
	return &Error{Kind: kind, Format: format, Err: err}
}

func malformed(format Format, msg string, args ...any) *Error {
	return newError(KindMalformedFormat, format, fmt.Errorf(msg, args...))
}

// transportKind maps a terminal transport signal to a failure kind. A nil
// cause means the stream ended normally.
func transportKind(cause error) Kind {
	switch {
	case cause == nil:
		return KindInsufficientData
	case errors.Is(cause, context.DeadlineExceeded), errors.Is(cause, ErrTimeout):
		return KindTimeout
	case errors.Is(cause, context.Canceled), errors.Is(cause, ErrCancelled):
		return KindCancelled
	}
	var ne net.Error
	if errors.As(cause, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindInsufficientData
}

// TransportError classifies a failure that happened before any bytes reached
// a controller, such as a cancelled request or an aborted connection.
func TransportError(cause error) *Error {
	return newError(transportKind(cause), FormatUnknown, cause)
}
