package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/logger"
)

// HealthCheck probes one dependency.
type HealthCheck func(context.Context) error

type namedCheck struct {
	name  string
	check HealthCheck
}

const healthCheckTimeout = 3 * time.Second

// LivenessHandler always answers 200 while the process serves requests.
func (s *Server) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadinessHandler runs every registered check and answers 503 if any fails.
func (s *Server) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		body := map[string]string{"status": "ready"}
		status := http.StatusOK
		for _, c := range s.cfg.checks {
			if err := c.check(ctx); err != nil {
				s.cfg.logger.ErrorContext(ctx, "readiness check failed",
					slog.String("check", c.name),
					logger.Error(err),
				)
				body[c.name] = "unavailable"
				body["status"] = "not_ready"
				status = http.StatusServiceUnavailable
				continue
			}
			body[c.name] = "ok"
		}
		writeHealth(w, status, body)
	}
}

func writeHealth(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
