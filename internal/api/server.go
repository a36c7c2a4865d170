// Package api exposes the HTTP facade over the browser gateway and the
// investor scoring engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spacecode-ai/SeedPitcher/internal/analysis"
	"github.com/spacecode-ai/SeedPitcher/internal/config"
	"github.com/spacecode-ai/SeedPitcher/internal/enrich"
	"github.com/spacecode-ai/SeedPitcher/internal/gateway"
	"github.com/spacecode-ai/SeedPitcher/internal/linkedin"
	"github.com/spacecode-ai/SeedPitcher/internal/metrics"
)

// Server wires HTTP handlers to the gateway and the scoring pipeline.
type Server struct {
	router      chi.Router
	gw          *gateway.Gateway
	extractor   *linkedin.Extractor
	analyzer    analysis.Analyzer
	enricher    *enrich.Collector
	cfg         config.Config
	logger      *zap.Logger
	deckSummary string
}

// Options carries the optional collaborators.
type Options struct {
	Analyzer    analysis.Analyzer
	Enricher    *enrich.Collector
	DeckSummary string
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	gw *gateway.Gateway,
	extractor *linkedin.Extractor,
	cfg config.Config,
	logger *zap.Logger,
	opts Options,
) *Server {
	if opts.Analyzer == nil {
		opts.Analyzer = analysis.Disabled{}
	}
	s := &Server{
		gw:          gw,
		extractor:   extractor,
		analyzer:    opts.Analyzer,
		enricher:    opts.Enricher,
		cfg:         cfg,
		logger:      logger,
		deckSummary: opts.DeckSummary,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(120 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/navigate", s.navigate)
	r.Post("/find_element", s.findElement)
	r.Post("/find_elements", s.findElements)
	r.Post("/click", s.click)
	r.Post("/type_text", s.typeText)
	r.Post("/scroll", s.scroll)
	r.Post("/wait_for_element", s.waitForElement)
	r.Get("/page_source", s.pageSource)
	r.Post("/close", s.closeBrowser)

	r.Get("/linkedin_profile", s.linkedinProfile)
	r.Post("/linkedin_profile", s.linkedinProfile)
	r.Get("/extract_linkedin_profile", s.linkedinProfile)
	r.Post("/extract_linkedin_profile", s.linkedinProfile)

	r.Post("/score_investor", s.scoreInvestor)
	r.Post("/draft_message", s.draftMessage)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// execute runs one command through the gateway. A dead gateway gets one
// inline restart before the caller sees the failure.
func (s *Server) execute(ctx context.Context, action gateway.Action, params map[string]any) (gateway.Result, error) {
	res, err := s.gw.Execute(ctx, action, params, s.cfg.Gateway.DefaultDeadline())
	if errors.Is(err, gateway.ErrEngineUnavailable) {
		s.logger.Warn("gateway unavailable, attempting restart", zap.String("action", string(action)))
		if startErr := s.gw.Start(ctx); startErr != nil {
			return gateway.Result{}, err
		}
		return s.gw.Execute(ctx, action, params, s.cfg.Gateway.DefaultDeadline())
	}
	return res, err
}

// writeResult maps a command result onto HTTP: success is 200, a clean
// miss (no error text) is 404, an execution error is 500.
func (s *Server) writeResult(w http.ResponseWriter, res gateway.Result) {
	body := map[string]any{"success": res.Success}
	for k, v := range res.Data {
		body[k] = v
	}
	switch {
	case res.Success:
		writeJSON(w, http.StatusOK, body)
	case res.Error == "":
		writeJSON(w, http.StatusNotFound, body)
	default:
		body["error"] = res.Error
		writeJSON(w, http.StatusInternalServerError, body)
	}
}

func (s *Server) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrAwaitTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, gateway.ErrEngineUnavailable), errors.Is(err, gateway.ErrStartupFailed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
