package api

import (
	"log"
	"net/http"
	"strconv"
	"time"
)

const (
	ansiReset     = "\033[0m"
	ansiCyan      = "\033[36m"
	ansiYellow    = "\033[33m"
	ansiBoldGreen = "\033[1;32m"
	ansiBoldRed   = "\033[1;31m"
)

// statusRecorder remembers the status code a handler sent. Handlers that
// only call Write get an implicit 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func statusCodeColor(code int) string {
	s := strconv.Itoa(code)
	switch code / 100 {
	case 2:
		return ansiBoldGreen + s + ansiReset
	case 3:
		return ansiYellow + s + ansiReset
	case 4, 5:
		return ansiBoldRed + s + ansiReset
	}
	return s
}

// LoggingMiddleware logs each request with its coloured status and latency
// in milliseconds.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := float64(time.Since(start).Microseconds()) / 1e3
		log.Printf("[%s] %s %s%s%s %.3fms",
			statusCodeColor(rec.status), r.Method, ansiCyan, r.RequestURI, ansiReset, elapsed)
	})
}
