package handlers

import (
	"errors"
	"net/http"

	"quartermaster/internal/common"
	"quartermaster/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type OwnershipHandlers struct {
	ownership services.OwnershipService
	agentID   string
	logger    *zap.Logger
}

func NewOwnershipHandlers(ownership services.OwnershipService, agentID string, logger *zap.Logger) *OwnershipHandlers {
	return &OwnershipHandlers{ownership: ownership, agentID: agentID, logger: logger}
}

type registerOwnershipRequest struct {
	OwnerID string `json:"owner_id"`
}

// Register records tenant ownership from the platform's tenant-join signal.
func (h *OwnershipHandlers) Register(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := c.Param("tenant_id")

	var req registerOwnershipRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	if err := common.ValidateRequiredString(req.OwnerID, "owner_id"); err != nil {
		return common.SendValidationError(c, "owner_id", err.Error())
	}

	record, err := h.ownership.Register(ctx, tenantID, req.OwnerID, h.agentID)
	if err != nil {
		h.logger.Error("ownership registration failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return common.SendServerError(c, "Failed to register ownership")
	}
	return c.JSON(http.StatusOK, record)
}

// Recover rebuilds a missing ownership record from the authoritative admin
// source.
func (h *OwnershipHandlers) Recover(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := c.Param("tenant_id")

	record, err := h.ownership.Recover(ctx, tenantID, h.agentID)
	if err != nil {
		if errors.Is(err, common.ErrRecoveryFailure) {
			return c.JSON(http.StatusNotFound, common.CreateErrorResponse(
				"NOT_CONFIGURED",
				"No authoritative administrator found for this tenant",
				nil))
		}
		h.logger.Error("ownership recovery failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return common.SendServerError(c, "Failed to recover ownership")
	}
	return c.JSON(http.StatusOK, record)
}
