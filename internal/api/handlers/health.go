package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	DB    *sql.DB
	Redis *redis.Client
}

// Check reports liveness plus the state of the backing stores. Redis
// is optional; a missing client reads as disabled, not unhealthy.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := map[string]string{}
	healthy := true

	if h.DB == nil {
		components["postgres"] = "disabled"
	} else if err := h.DB.PingContext(ctx); err != nil {
		components["postgres"] = "unreachable"
		healthy = false
	} else {
		components["postgres"] = "ok"
	}

	if h.Redis == nil {
		components["redis"] = "disabled"
	} else if err := h.Redis.Ping(ctx).Err(); err != nil {
		components["redis"] = "unreachable"
		healthy = false
	} else {
		components["redis"] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, r, code, map[string]any{
		"status":     status,
		"components": components,
	})
}
