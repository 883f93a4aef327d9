// Package api provides the HTTP server for pvplan.
// It exposes the compensation engine, roster helpers and the license
// registry as JSON endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/pvplan/pvplan/internal/app/license"
	"github.com/pvplan/pvplan/internal/domain"
	"github.com/pvplan/pvplan/internal/infra/observability"
)

// Version is reported by /api/version.
var Version = "0.1.0"

// maxBodyBytes limits request bodies.
const maxBodyBytes = 8 << 20

// LicenseHeader carries the access code when the license gate is on.
const LicenseHeader = "X-License-Code"

// Server is the pvplan HTTP API server.
type Server struct {
	maxDepth       int
	timeout        time.Duration
	metricsEnabled bool
	tracer         *observability.Tracer
	licenses       *license.Service
	requireLicense bool
	limiter        *rate.Limiter
	validate       *validator.Validate
}

// NewServer creates a server. maxDepth <= 0 disables the roster depth limit.
func NewServer(maxDepth int, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		maxDepth: maxDepth,
		timeout:  timeout,
		tracer:   observability.NewTracer(observability.DefaultTracerConfig()),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetLicenses mounts the license lookup endpoint. With require set, every
// plan endpoint demands a valid code in the X-License-Code header.
func (s *Server) SetLicenses(svc *license.Service, require bool) {
	s.licenses = svc
	s.requireLicense = require
}

// SetRateLimit caps plan endpoints at rps requests per second with the
// given burst. rps <= 0 disables the limit.
func (s *Server) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		s.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Tracer returns the span recorder.
func (s *Server) Tracer() *observability.Tracer { return s.tracer }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", LicenseHeader},
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": Version})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/ranks", s.handleRanks)

		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.rateLimit)
			}
			if s.requireLicense && s.licenses != nil {
				r.Use(s.licenseGate)
			}
			r.Post("/compute", s.handleCompute)
			r.Post("/levels", s.handleLevels)
			r.Post("/duplicate", s.handleDuplicate)
		})

		if s.licenses != nil {
			r.Get("/license/{code}", s.handleLicense)
		}
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// licenseGate rejects requests without a valid license code.
func (s *Server) licenseGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.Header.Get(LicenseHeader)
		st, err := s.licenses.Check(code, time.Now())
		if err != nil {
			log.Printf("[api] license check failed: %v", err)
			writeError(w, http.StatusInternalServerError, "license registry unavailable")
			return
		}
		observability.LicenseLookups.WithLabelValues(statusLabel(st)).Inc()
		if !st.Valid {
			writeError(w, http.StatusForbidden, "license "+st.Reason)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit rejects requests beyond the configured rate.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps domain sentinels to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRoster),
		errors.Is(err, domain.ErrUnknownRank),
		errors.Is(err, domain.ErrRosterFormat),
		errors.Is(err, domain.ErrEmptyCode):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrMemberNotFound),
		errors.Is(err, domain.ErrLicenseNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrLicenseRevoked),
		errors.Is(err, domain.ErrLicenseExpired):
		status = http.StatusForbidden
	}
	writeError(w, status, err.Error())
}
