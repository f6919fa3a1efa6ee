package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mkrupp/userdir/internal/infra/logging"
)

// ResponseRecorder records the status and body size written through it.
type ResponseRecorder struct {
	http.ResponseWriter

	Status      int
	Bytes       int
	wroteHeader bool
}

// NewResponseRecorder wraps w. Status is 200 until a handler says otherwise.
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, Status: http.StatusOK, Bytes: 0, wroteHeader: false}
}

// WriteHeader records the first status written.
func (rr *ResponseRecorder) WriteHeader(code int) {
	if !rr.wroteHeader {
		rr.Status = code
		rr.wroteHeader = true
	}

	rr.ResponseWriter.WriteHeader(code)
}

func (rr *ResponseRecorder) Write(b []byte) (int, error) {
	rr.wroteHeader = true

	n, err := rr.ResponseWriter.Write(b)
	rr.Bytes += n

	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}

	return n, nil
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rr *ResponseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

// StatusLevel picks the log level of a response: errors for 5xx,
// warnings for 4xx and info otherwise.
func StatusLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return logging.LevelError
	case status >= http.StatusBadRequest:
		return logging.LevelWarn
	default:
		return logging.LevelInfo
	}
}

// LoggingMiddleware logs each request at debug and its response, with latency,
// at the level StatusLevel returns.
func LoggingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	//nolint:varnamelen
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()

		log.DebugContext(ctx, "request received", slog.Group("http",
			"method", r.Method,
			"uri", r.RequestURI,
			"remote", r.RemoteAddr,
		))

		rec := NewResponseRecorder(w)
		next.ServeHTTP(rec, r)

		log.Log(ctx, StatusLevel(rec.Status), "response sent", slog.Group("http",
			"method", r.Method,
			"uri", r.RequestURI,
			"status", rec.Status,
			"bytes", rec.Bytes,
			"duration", time.Since(start),
		))
	})
}
