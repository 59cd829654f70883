package handlers

import (
	"errors"
	"net/http"

	"quartermaster/internal/common"
	"quartermaster/internal/models"
	"quartermaster/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// OnboardingHandlers exposes the configuration wizard over HTTP: status,
// direct settings updates, and the conversational message entrypoint.
type OnboardingHandlers struct {
	onboarding services.OnboardingService
	extraction services.ExtractionService
	ownership  services.OwnershipService
	roles      services.RoleService
	agentID    string
	logger     *zap.Logger
}

func NewOnboardingHandlers(
	onboarding services.OnboardingService,
	extraction services.ExtractionService,
	ownership services.OwnershipService,
	roles services.RoleService,
	agentID string,
	logger *zap.Logger,
) *OnboardingHandlers {
	return &OnboardingHandlers{
		onboarding: onboarding,
		extraction: extraction,
		ownership:  ownership,
		roles:      roles,
		agentID:    agentID,
		logger:     logger,
	}
}

// GetStatus returns the tenant's onboarding status as JSON plus the rendered
// text block.
func (h *OnboardingHandlers) GetStatus(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := c.Param("tenant_id")

	state, err := h.onboarding.Load(ctx, tenantID)
	if err != nil {
		h.logger.Error("failed to load settings state", zap.String("tenant_id", tenantID), zap.Error(err))
		return common.SendServerError(c, "Failed to load settings")
	}

	report := h.onboarding.Status(state)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"report":   report,
		"rendered": h.onboarding.RenderStatus(report),
	})
}

type applySettingsRequest struct {
	Candidates []models.Candidate `json:"candidates"`
}

// ApplySettings commits a candidate list directly, bypassing extraction but
// running the same validation pipeline.
func (h *OnboardingHandlers) ApplySettings(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := c.Param("tenant_id")
	principalID, _ := common.GetPrincipalIDFromContext(ctx)

	var req applySettingsRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	if len(req.Candidates) == 0 {
		return common.SendValidationError(c, "candidates", "at least one candidate is required")
	}

	result, err := h.onboarding.ApplyUpdates(ctx, tenantID, principalID, req.Candidates)
	if err != nil {
		if common.IsPersistenceError(err) {
			h.logger.Error("settings commit failed", zap.String("tenant_id", tenantID), zap.Error(err))
			return common.SendServerError(c, "Failed to persist settings")
		}
		return common.SendServerError(c, "Failed to apply settings")
	}
	return c.JSON(http.StatusOK, result)
}

type inboundMessage struct {
	TenantID string `json:"tenant_id"`
	RoomID   string `json:"room_id"`
	Text     string `json:"text"`
}

// HandleMessage is the conversational entrypoint used by chat-platform
// adapters. A message without a tenant ID is a DM; the tenant is resolved
// from the sender's ownership record. Authorization happens before the
// pipeline runs.
func (h *OnboardingHandlers) HandleMessage(c echo.Context) error {
	ctx := c.Request().Context()
	principalID, ok := common.GetPrincipalIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var msg inboundMessage
	if err := c.Bind(&msg); err != nil {
		return common.SendClientError(c, "Invalid request body")
	}
	if err := common.ValidateRequiredString(msg.Text, "text"); err != nil {
		return common.SendValidationError(c, "text", err.Error())
	}

	tenantID := msg.TenantID
	if tenantID == "" {
		record, err := h.ownership.FindTenantForOwner(ctx, principalID, h.agentID)
		if err != nil {
			h.logger.Error("ownership lookup failed", zap.String("principal_id", principalID), zap.Error(err))
			return common.SendServerError(c, "Failed to resolve tenant")
		}
		if record == nil {
			return c.JSON(http.StatusOK, services.PipelineResult{
				Reply: "No tenant is registered for you. Onboarding must be initiated from your community.",
			})
		}
		tenantID = record.TenantID
	}

	proceed, err := h.authorizeMutation(c, principalID, tenantID)
	if !proceed {
		return err
	}

	result, err := h.extraction.HandleMessage(ctx, tenantID, principalID, msg.Text)
	if err != nil {
		if common.IsPersistenceError(err) {
			h.logger.Error("pipeline persistence failure", zap.String("tenant_id", tenantID), zap.Error(err))
			return common.SendServerError(c, "Failed to persist settings")
		}
		h.logger.Error("pipeline failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return common.SendServerError(c, "Failed to process message")
	}
	return c.JSON(http.StatusOK, result)
}

// authorizeMutation admits the tenant owner or any principal at ADMIN or
// above. Runs before any settings mutation; a missing ownership record
// triggers recovery from the admin source. When proceed is false the
// response has already been written and the caller must stop.
func (h *OnboardingHandlers) authorizeMutation(c echo.Context, principalID, tenantID string) (proceed bool, err error) {
	ctx := c.Request().Context()

	record, err := h.ownership.Recover(ctx, tenantID, h.agentID)
	if err != nil {
		if errors.Is(err, common.ErrRecoveryFailure) {
			return false, c.JSON(http.StatusOK, services.PipelineResult{
				Reply: "This tenant is not configured for onboarding yet.",
			})
		}
		h.logger.Error("ownership recovery failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return false, common.SendServerError(c, "Failed to resolve tenant ownership")
	}

	if record.OwnerID == principalID {
		return true, nil
	}
	role, err := h.roles.GetRole(ctx, principalID, tenantID)
	if err != nil {
		return false, common.SendServerError(c, "Failed to check role")
	}
	if role.Rank() < models.RoleAdmin.Rank() {
		return false, common.SendForbiddenError(c, "Only the tenant owner or an admin may change settings")
	}
	return true, nil
}
