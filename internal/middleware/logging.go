package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/logger"
)

const TraceHeader = "X-Trace-ID"

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// TraceID puts a trace id on the request context and the X-Trace-ID response
// header, reusing the incoming header when present.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, withTraceID(w, r))
	})
}

func withTraceID(w http.ResponseWriter, r *http.Request) *http.Request {
	if logger.TraceID(r.Context()) != "" {
		return r
	}
	traceID := r.Header.Get(TraceHeader)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	w.Header().Set(TraceHeader, traceID)
	return r.WithContext(logger.WithTraceID(r.Context(), traceID))
}

// Logging logs each request once it completes. It assigns a trace id when
// TraceID did not run earlier in the chain.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r = withTraceID(w, r)

			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			}
			reqLog := logger.FromContext(r.Context(), log)
			if wrapped.statusCode >= http.StatusInternalServerError {
				reqLog.Warn("request completed", fields...)
				return
			}
			reqLog.Info("request completed", fields...)
		})
	}
}
