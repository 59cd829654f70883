package handlers

import (
	"net/http"
	"strconv"

	"quartermaster/internal/common"
	"quartermaster/internal/models"
	"quartermaster/internal/repositories"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AuditLogsHandlers struct {
	auditRepo repositories.AuditLogsRepository
	logger    *zap.Logger
}

func NewAuditLogsHandlers(auditRepo repositories.AuditLogsRepository, logger *zap.Logger) *AuditLogsHandlers {
	return &AuditLogsHandlers{auditRepo: auditRepo, logger: logger}
}

// List returns the tenant's audit trail, newest first.
func (h *AuditLogsHandlers) List(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := c.Param("tenant_id")

	filters := &models.AuditLogFilters{Limit: 50}
	if action := c.QueryParam("action"); action != "" {
		filters.Action = &action
	}
	if actor := c.QueryParam("actor"); actor != "" {
		filters.Actor = &actor
	}
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 500 {
			filters.Limit = limit
		}
	}
	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	logs, err := h.auditRepo.List(ctx, tenantID, filters)
	if err != nil {
		h.logger.Error("audit list failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return common.SendServerError(c, "Failed to list audit logs")
	}
	return c.JSON(http.StatusOK, logs)
}
