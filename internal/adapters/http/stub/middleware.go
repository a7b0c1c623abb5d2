package stub

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/authclient/pkg/metrics"
)

// MetricsMiddleware wraps a handler to record request metrics under endpoint.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		metrics.RecordServerRequest(endpoint, r.Method, strconv.Itoa(wrapped.statusCode), float64(time.Since(start).Milliseconds()))
	}
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
