package handlers

import (
	"net/http"

	"quartermaster/internal/common"
	"quartermaster/internal/models"
	"quartermaster/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type RoleHandlers struct {
	roles  services.RoleService
	logger *zap.Logger
}

func NewRoleHandlers(roles services.RoleService, logger *zap.Logger) *RoleHandlers {
	return &RoleHandlers{roles: roles, logger: logger}
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// SetRole assigns a role to a principal within a tenant. The acting
// principal's authority is checked inside the service, before any store
// write.
func (h *RoleHandlers) SetRole(c echo.Context) error {
	ctx := c.Request().Context()
	actorID, ok := common.GetPrincipalIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	tenantID := c.Param("tenant_id")
	targetID := c.Param("principal_id")

	var req setRoleRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	newRole, err := models.ParseRole(req.Role)
	if err != nil {
		return common.SendValidationError(c, "role", err.Error())
	}

	if err := h.roles.SetRole(ctx, actorID, tenantID, targetID, newRole); err != nil {
		if common.IsAuthorizationDenied(err) {
			return common.SendForbiddenError(c, err.Error())
		}
		h.logger.Error("role change failed",
			zap.String("tenant_id", tenantID),
			zap.String("target", targetID),
			zap.Error(err))
		return common.SendServerError(c, "Failed to change role")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"principal_id": targetID,
		"tenant_id":    tenantID,
		"role":         string(newRole),
	})
}

// ListRoles returns every explicit role assignment in the tenant.
func (h *RoleHandlers) ListRoles(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := c.Param("tenant_id")

	records, err := h.roles.List(ctx, tenantID)
	if err != nil {
		h.logger.Error("role list failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return common.SendServerError(c, "Failed to list roles")
	}
	return c.JSON(http.StatusOK, records)
}
