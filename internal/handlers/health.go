package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is satisfied by the database wrappers.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db    HealthChecker
	redis HealthChecker
}

// NewHealthHandler takes an optional redis checker; nil skips it.
func NewHealthHandler(db, redis HealthChecker) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	services := map[string]string{}
	status := "ok"
	statusCode := http.StatusOK

	check := func(name string, checker HealthChecker) {
		if checker == nil {
			return
		}
		if err := checker.Health(ctx); err != nil {
			services[name] = "unhealthy"
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
			return
		}
		services[name] = "healthy"
	}
	check("postgres", h.db)
	check("redis", h.redis)

	writeJSON(w, statusCode, HealthResponse{Status: status, Services: services})
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "alive"})
}
