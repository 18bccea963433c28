// Package api assembles the HTTP surface of the service.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kilianp07/sanifleet/api/ai"
	"github.com/kilianp07/sanifleet/api/decisions"
	"github.com/kilianp07/sanifleet/api/httpjson"
	"github.com/kilianp07/sanifleet/api/units"
	"github.com/kilianp07/sanifleet/core/logger"
	"github.com/kilianp07/sanifleet/core/monitoring"
)

// Engine is everything the router needs from *engine.Engine.
type Engine interface {
	ai.Service
	units.Lister
	decisions.Source
}

// Options tunes the router.
type Options struct {
	MaxBodyBytes   int64
	DecisionsToken string
	// RequestTimeout bounds the context of every request. Zero disables it.
	RequestTimeout time.Duration
	Logger         logger.Logger
	// Monitor receives recovered handler panics. Defaults to the global monitor.
	Monitor monitoring.Monitor
}

// NewRouter mounts every endpoint on a new gorilla/mux router.
func NewRouter(eng Engine, opts Options) *mux.Router {
	if opts.Logger == nil {
		opts.Logger = logger.Nop{}
	}
	if opts.Monitor == nil {
		opts.Monitor = monitoring.Current()
	}
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	ai.NewHandler(eng, opts.MaxBodyBytes).Register(r)
	r.Handle("/api/units/status", units.NewStatusHandler(eng)).Methods(http.MethodGet)
	r.Handle("/api/decisions", decisions.NewHandler(eng, opts.DecisionsToken)).Methods(http.MethodGet)

	r.Use(loggingMiddleware(opts.Logger))
	r.Use(recoveryMiddleware(opts.Logger, opts.Monitor))
	if opts.RequestTimeout > 0 {
		r.Use(timeoutMiddleware(opts.RequestTimeout))
	}
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Debugw("http request", map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

var errPanic = errors.New("handler panic")

// recoveryMiddleware turns handler panics into a 500 response. A panic after
// the header was written still yields a broken response.
func recoveryMiddleware(log logger.Logger, mon monitoring.Monitor) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, v)
				mon.CapturePanic(v, map[string]string{"method": r.Method, "path": r.URL.Path})
				httpjson.Error(w, errPanic)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
