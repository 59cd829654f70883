package handlers

import (
	"context"
	"net/http"
	"time"

	"quartermaster/internal/caching"
	"quartermaster/internal/repositories"

	"github.com/labstack/echo/v4"
)

// HealthHandlers handles health check endpoints
type HealthHandlers struct {
	db      repositories.PgxPool
	kv      caching.KVStore
	version string
}

func NewHealthHandlers(db repositories.PgxPool, kv caching.KVStore, version string) *HealthHandlers {
	return &HealthHandlers{db: db, kv: kv, version: version}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
}

// HealthCheck reports liveness of the store backends
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Version:   h.version,
	}

	if err := h.kv.Ping(ctx); err != nil {
		health.Services["kv_store"] = "unhealthy"
		health.Status = "degraded"
	} else {
		health.Services["kv_store"] = "healthy"
	}

	if h.db != nil {
		if _, err := h.db.Exec(ctx, "SELECT 1"); err != nil {
			health.Services["audit_db"] = "unhealthy"
			health.Status = "degraded"
		} else {
			health.Services["audit_db"] = "healthy"
		}
	} else {
		health.Services["audit_db"] = "disabled"
	}

	code := http.StatusOK
	if health.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, health)
}
