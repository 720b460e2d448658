package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/storefront/pkg/logger"
)

// Check is a named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthCheckHandler answers 200 with status "alive" when there are no
// checks, "ready" when all pass, and 503 "not_ready" otherwise. Every check
// runs against the request context.
func HealthCheckHandler(log *slog.Logger, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		report := healthReport{Status: "alive"}
		code := http.StatusOK

		if len(checks) > 0 {
			report.Status = "ready"
			report.Checks = make(map[string]string, len(checks))
			for _, c := range checks {
				if err := c.Fn(r.Context()); err != nil {
					log.WarnContext(r.Context(), "readiness check failed", logger.Component(c.Name), logger.Error(err))
					report.Checks[c.Name] = err.Error()
					report.Status = "not_ready"
					code = http.StatusServiceUnavailable
					continue
				}
				report.Checks[c.Name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(report)
	}
}
