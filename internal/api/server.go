// Package api serves guide design over HTTP
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kkokay07/K-Sites/internal/guides"
	"github.com/kkokay07/K-Sites/internal/pathway"
	"github.com/rs/zerolog"
)

// Options configures a Server
type Options struct {
	// Nuclease designs requests that don't name one
	Nuclease string

	// MinEfficiency is the default lowest efficiency returned
	MinEfficiency float64

	// Pathways resolves pathway membership for requests without their own, optional
	Pathways pathway.Source
}

// Server handles the design API
type Server struct {
	designer *guides.Designer
	opt      Options
	log      zerolog.Logger
}

// NewServer returns a server designing with d
func NewServer(d *guides.Designer, opt Options, log zerolog.Logger) *Server {
	if opt.Nuclease == "" {
		opt.Nuclease = "SpCas9"
	}
	return &Server{designer: d, opt: opt, log: log}
}

// Routes is the router of the API:
//
//	GET  /healthz
//	GET  /v1/nucleases
//	POST /v1/design
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/nucleases", s.nucleases)
		r.Post("/design", s.design)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// ListenAndServe serves the API on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info().Msg("http shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// Envelope is the body of every response
type Envelope struct {
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Data       any    `json:"data,omitempty"`
}

// respond writes data in an envelope
func respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		RequestID:  requestIDFrom(r.Context()),
		Data:       data,
	})
}

// respondError writes an error message in an envelope
func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		Error:      msg,
		RequestID:  requestIDFrom(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
