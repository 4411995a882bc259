package api

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"solana-vesting/internal/observability"
)

const (
	// CallerHeader carries the authenticated principal, set by a trusted upstream.
	CallerHeader = "X-Caller-Identity"

	// RequestIDHeader is echoed back, or generated when absent.
	RequestIDHeader = "X-Request-ID"
)

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the request ID stored in ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func requestLogger(r *http.Request, log *logrus.Entry) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"request_id": RequestID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Middleware assigns request IDs, recovers panics, logs requests and records
// HTTP metrics labelled with the matched route pattern.
func Middleware(log *logrus.Entry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				requestLogger(r, log).WithField("panic", fmt.Sprint(p)).Error("handler panic")
				writeJSON(rec, http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "internal error"})
			}

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(start)
			observability.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), elapsed.Seconds())
			requestLogger(r, log).WithFields(logrus.Fields{
				"route":    route,
				"status":   rec.status,
				"duration": elapsed.String(),
			}).Debug("request served")
		}()

		next.ServeHTTP(rec, r)
	})
}
