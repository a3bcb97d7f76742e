package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"fastsize/internal/logging"
)

// RequestLogger logs one line per request and counts response bytes.
type RequestLogger struct {
	traffic *TrafficStats
}

func NewRequestLogger(traffic *TrafficStats) *RequestLogger {
	return &RequestLogger{traffic: traffic}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (l *RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		duration := time.Since(start)
		if l.traffic != nil {
			l.traffic.Add(rec.size, time.Now())
		}
		logLine := fmt.Sprintf(
			"request method=%s path=%s status=%d bytes=%d ip=%s ua=%q dur_ms=%d",
			r.Method,
			r.URL.RequestURI(),
			rec.status,
			rec.size,
			clientIP(r),
			r.UserAgent(),
			duration.Milliseconds(),
		)
		switch {
		case rec.status >= 500:
			logging.Get("requests_5xx").Print(logLine)
		case rec.status >= 400:
			logging.Get("requests_4xx").Print(logLine)
		default:
			logging.Get("requests").Print(logLine)
		}
	})
}

// clientIP prefers the first X-Forwarded-For address, then the host part of
// RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if parsed := net.ParseIP(strings.TrimSpace(first)); parsed != nil {
			return parsed.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	if parsed := net.ParseIP(host); parsed != nil {
		return parsed.String()
	}
	return host
}
