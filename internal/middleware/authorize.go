package middleware

import (
	"net/http"

	"quartermaster/internal/common"
	"quartermaster/internal/models"
	"quartermaster/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthorizeMiddleware gates tenant mutations on the caller's role. The check
// runs before the handler touches any tenant state, so a denied principal
// causes no side effects.
type AuthorizeMiddleware struct {
	roleService services.RoleService
}

func NewAuthorizeMiddleware(roleService services.RoleService) *AuthorizeMiddleware {
	return &AuthorizeMiddleware{roleService: roleService}
}

// RequireRole admits principals whose role in the :tenant_id path tenant is
// at least minRole.
func (m *AuthorizeMiddleware) RequireRole(minRole models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			principalID, ok := common.GetPrincipalIDFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Principal not authenticated")
			}
			tenantID := c.Param("tenant_id")
			if tenantID == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "Tenant not specified")
			}

			role, err := m.roleService.GetRole(ctx, principalID, tenantID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Error checking role")
			}
			if role.Rank() < minRole.Rank() {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient role")
			}

			c.SetRequest(c.Request().WithContext(common.WithTenantID(ctx, tenantID)))
			return next(c)
		}
	}
}
