package services

import (
	"context"
	"fmt"

	"quartermaster/internal/common"
	"quartermaster/internal/models"
	"quartermaster/internal/repositories"

	"go.uber.org/zap"
)

// RoleService enforces the role-based authorization gate for tenant
// mutations.
type RoleService interface {
	// GetRole returns the principal's role in the tenant, NONE when absent.
	GetRole(ctx context.Context, principalID, tenantID string) (models.Role, error)

	// SetRole assigns newRole to targetID, checked against CanModifyRole
	// before any store access.
	SetRole(ctx context.Context, actorID, tenantID, targetID string, newRole models.Role) error

	// List returns every explicit role assignment in the tenant.
	List(ctx context.Context, tenantID string) ([]models.RoleRecord, error)
}

// CanModifyRole is the pure authorization rule for role mutations, total
// over every (acting, target, requested) combination:
//   - OWNER may set any role on any principal except an existing OWNER.
//   - ADMIN may act only on principals currently at NONE and may assign only
//     roles strictly below ADMIN.
//   - Everyone else: no.
func CanModifyRole(acting, targetCurrent, requested models.Role) bool {
	switch acting {
	case models.RoleOwner:
		return targetCurrent != models.RoleOwner
	case models.RoleAdmin:
		return targetCurrent == models.RoleNone && requested.Rank() < models.RoleAdmin.Rank()
	default:
		return false
	}
}

type roleService struct {
	roleRepo  repositories.RoleRepository
	auditRepo repositories.AuditLogsRepository
	logger    *zap.Logger
}

func NewRoleService(roleRepo repositories.RoleRepository, auditRepo repositories.AuditLogsRepository, logger *zap.Logger) RoleService {
	return &roleService{roleRepo: roleRepo, auditRepo: auditRepo, logger: logger}
}

func (s *roleService) GetRole(ctx context.Context, principalID, tenantID string) (models.Role, error) {
	record, ok, err := s.roleRepo.Get(ctx, tenantID, principalID)
	if err != nil {
		return models.RoleNone, err
	}
	if !ok {
		return models.RoleNone, nil
	}
	return record.Role, nil
}

func (s *roleService) SetRole(ctx context.Context, actorID, tenantID, targetID string, newRole models.Role) error {
	if targetID == "" {
		return fmt.Errorf("target principal ID is required")
	}

	actingRole, err := s.GetRole(ctx, actorID, tenantID)
	if err != nil {
		return err
	}
	targetRole, err := s.GetRole(ctx, targetID, tenantID)
	if err != nil {
		return err
	}

	if !CanModifyRole(actingRole, targetRole, newRole) {
		return &common.AuthorizationDenied{
			PrincipalID: actorID,
			TenantID:    tenantID,
			Reason:      fmt.Sprintf("%s may not change a %s principal to %s", actingRole, targetRole, newRole),
		}
	}

	record := models.RoleRecord{
		PrincipalID: targetID,
		TenantID:    tenantID,
		Role:        newRole,
		AssignedBy:  actorID,
	}
	if err := s.roleRepo.Set(ctx, tenantID, record); err != nil {
		return err
	}

	s.audit(ctx, &models.AuditLog{
		TenantID:  tenantID,
		Actor:     actorID,
		Action:    models.ActionRoleSet,
		Subject:   targetID,
		OldValues: map[string]string{"role": string(targetRole)},
		NewValues: map[string]string{"role": string(newRole)},
	})

	s.logger.Info("role changed",
		zap.String("tenant_id", tenantID),
		zap.String("actor", actorID),
		zap.String("target", targetID),
		zap.String("role", string(newRole)))
	return nil
}

func (s *roleService) List(ctx context.Context, tenantID string) ([]models.RoleRecord, error) {
	return s.roleRepo.List(ctx, tenantID)
}

// audit failures never block the mutation they describe.
func (s *roleService) audit(ctx context.Context, entry *models.AuditLog) {
	if s.auditRepo == nil {
		return
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed",
			zap.String("tenant_id", entry.TenantID),
			zap.String("action", entry.Action),
			zap.Error(err))
	}
}
