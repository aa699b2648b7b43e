package web

import (
	"FruitBot/internal/metrics"
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Middleware оборачивает http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain применяет middleware по порядку: первый в списке оказывается внешним.
func Chain(handler http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

type requestIDKey struct{}

// RequestID достаёт ID запроса из контекста. Пустая строка, если его нет.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestIDMiddleware берёт X-Request-ID из запроса или генерирует новый и возвращает его в ответе.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware пишет каждый запрос в лог и в метрики.
// Пути из skipPaths не логируются, но учитываются в метриках.
func LoggingMiddleware(logger *zap.SugaredLogger, m *metrics.Metrics, skipPaths []string) Middleware {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			duration := time.Since(start)
			if !skip[r.URL.Path] {
				logger.Infow("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", sw.status,
					"duration", duration.String(),
					"remote", r.RemoteAddr,
					"request_id", RequestID(r.Context()),
				)
			}
			m.ObserveRequest(r.Method, routeLabel(r), sw.status, duration)
		})
	}
}

// routeLabel возвращает шаблон маршрута вместо сырого пути.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	fields := strings.Fields(r.Pattern)
	return fields[len(fields)-1]
}

// statusWriter запоминает код ответа. Hijack нужен для апгрейда до WebSocket.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
