package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/dmitrymomot/kanbax/pkg/logger"
)

// Check tests one dependency. A nil error means the dependency is usable.
type Check func(context.Context) error

// checkTimeout bounds each check.
const checkTimeout = 3 * time.Second

// HealthCheckHandler serves liveness and readiness.
//
// Without checks it answers 200 {"status":"alive"}. With checks each one
// runs with the request context; the response is 200 {"status":"ready"} when
// all pass and 503 {"status":"not_ready","failed":[...]} otherwise.
//
//	r.Get("/healthz", httpserver.HealthCheckHandler(log, map[string]httpserver.Check{
//		"postgres": pg.Healthcheck(pool),
//	}))
func HealthCheckHandler(log *slog.Logger, checks map[string]Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			writeStatus(w, http.StatusOK, healthBody{Status: "alive"})
			return
		}

		var failed []string
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			err := checks[name](ctx)
			cancel()
			if err != nil {
				log.ErrorContext(r.Context(), "readiness check failed",
					logger.Component(name), logger.Error(err))
				failed = append(failed, name)
			}
		}

		if len(failed) > 0 {
			writeStatus(w, http.StatusServiceUnavailable, healthBody{Status: "not_ready", Failed: failed})
			return
		}
		writeStatus(w, http.StatusOK, healthBody{Status: "ready"})
	}
}

type healthBody struct {
	Status string   `json:"status"`
	Failed []string `json:"failed,omitempty"`
}

func writeStatus(w http.ResponseWriter, code int, body healthBody) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
