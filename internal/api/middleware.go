package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kkokay07/K-Sites/internal/logger"
)

// requestIDHeader carries the request id in and out
const requestIDHeader = "X-Request-ID"

type ctxKey uint8

const requestIDKey ctxKey = iota

// requestID reuses the caller's X-Request-ID or makes a new one, and puts it
// on the response and the request context
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		ctx = logger.WithRequest(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestIDFrom returns the request id on ctx, if any
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// captureWriter records the status and bytes written
type captureWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	n, err := cw.ResponseWriter.Write(b)
	if n > 0 {
		cw.bytes += n
	}
	return n, err
}

// accessLog logs the method, path, status, elapsed time and bytes of each request
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(cw, r)

		log := logger.C(r.Context(), s.log)
		evt := log.Info()
		if cw.status >= http.StatusInternalServerError {
			evt = log.Error()
		}
		evt.Int("status", cw.status).
			Dur("elapsed", time.Since(start)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("bytes", cw.bytes).
			Msg("request done")
	})
}
