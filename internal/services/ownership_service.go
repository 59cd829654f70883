package services

import (
	"context"
	"fmt"
	"strings"

	"quartermaster/internal/common"
	"quartermaster/internal/models"
	"quartermaster/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminSource is the authoritative external source for "who administers
// this tenant", consulted only by ownership recovery.
type AdminSource interface {
	GetAdministrator(ctx context.Context, tenantID string) (string, error)
}

// OwnershipService tracks which principal owns which tenant.
type OwnershipService interface {
	// Register upserts the ownership record and seeds the owner's OWNER
	// role. Owner IDs are normalized to the canonical UUID form.
	Register(ctx context.Context, tenantID, ownerID, agentID string) (*models.OwnershipRecord, error)

	// FindTenantForOwner resolves which tenant a DM-initiated session is
	// for, scoped to records registered by agentID. Returns nil, nil when
	// nothing matches.
	FindTenantForOwner(ctx context.Context, ownerID, agentID string) (*models.OwnershipRecord, error)

	// Recover reconstructs a missing ownership record from the admin
	// source. Returns ErrRecoveryFailure when the source has no answer.
	Recover(ctx context.Context, tenantID, agentID string) (*models.OwnershipRecord, error)
}

type ownershipService struct {
	ownershipRepo repositories.OwnershipRepository
	roleRepo      repositories.RoleRepository
	adminSource   AdminSource
	auditRepo     repositories.AuditLogsRepository
	logger        *zap.Logger
}

func NewOwnershipService(
	ownershipRepo repositories.OwnershipRepository,
	roleRepo repositories.RoleRepository,
	adminSource AdminSource,
	auditRepo repositories.AuditLogsRepository,
	logger *zap.Logger,
) OwnershipService {
	return &ownershipService{
		ownershipRepo: ownershipRepo,
		roleRepo:      roleRepo,
		adminSource:   adminSource,
		auditRepo:     auditRepo,
		logger:        logger,
	}
}

// NormalizePrincipalID maps a raw platform ID into the canonical UUID form
// used across the system. IDs that already parse as UUIDs pass through
// unchanged; anything else is hashed deterministically within the agent's
// namespace, so the same raw ID always normalizes to the same principal.
func NormalizePrincipalID(agentID, raw string) string {
	raw = strings.TrimSpace(raw)
	if _, err := uuid.Parse(raw); err == nil {
		return raw
	}
	ns := uuid.NewSHA1(uuid.NameSpaceURL, []byte("quartermaster:"+agentID))
	return uuid.NewSHA1(ns, []byte(raw)).String()
}

func (s *ownershipService) Register(ctx context.Context, tenantID, ownerID, agentID string) (*models.OwnershipRecord, error) {
	return s.register(ctx, tenantID, ownerID, agentID, models.ActionOwnershipRegister)
}

// register is the shared upsert path; action distinguishes a platform-driven
// registration from a recovery so each event audits exactly once.
func (s *ownershipService) register(ctx context.Context, tenantID, ownerID, agentID, action string) (*models.OwnershipRecord, error) {
	if tenantID == "" || ownerID == "" {
		return nil, fmt.Errorf("tenant ID and owner ID are required")
	}

	record := &models.OwnershipRecord{
		TenantID:     tenantID,
		OwnerID:      NormalizePrincipalID(agentID, ownerID),
		RegisteredBy: agentID,
	}
	if existing, err := s.ownershipRepo.Get(ctx, tenantID); err != nil {
		return nil, err
	} else if existing != nil {
		record.CreatedAt = existing.CreatedAt
	}

	if err := s.ownershipRepo.Put(ctx, record); err != nil {
		return nil, err
	}

	ownerRole := models.RoleRecord{
		PrincipalID: record.OwnerID,
		TenantID:    tenantID,
		Role:        models.RoleOwner,
		AssignedBy:  agentID,
	}
	if err := s.roleRepo.Set(ctx, tenantID, ownerRole); err != nil {
		return nil, err
	}

	s.audit(ctx, &models.AuditLog{
		TenantID:  tenantID,
		Actor:     agentID,
		Action:    action,
		Subject:   record.OwnerID,
		NewValues: map[string]string{"owner_id": record.OwnerID},
	})

	s.logger.Info("tenant ownership registered",
		zap.String("tenant_id", tenantID),
		zap.String("owner_id", record.OwnerID),
		zap.String("agent_id", agentID))
	return record, nil
}

func (s *ownershipService) FindTenantForOwner(ctx context.Context, ownerID, agentID string) (*models.OwnershipRecord, error) {
	normalized := NormalizePrincipalID(agentID, ownerID)
	record, err := s.ownershipRepo.FindByOwner(ctx, agentID, normalized)
	if err != nil {
		return nil, err
	}
	if record == nil && normalized != ownerID {
		// Older records may have been indexed under the raw platform ID.
		return s.ownershipRepo.FindByOwner(ctx, agentID, ownerID)
	}
	return record, nil
}

func (s *ownershipService) Recover(ctx context.Context, tenantID, agentID string) (*models.OwnershipRecord, error) {
	if existing, err := s.ownershipRepo.Get(ctx, tenantID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	adminID, err := s.adminSource.GetAdministrator(ctx, tenantID)
	if err != nil {
		s.logger.Warn("admin source unavailable during recovery",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", common.ErrRecoveryFailure, err)
	}
	if adminID == "" {
		return nil, common.ErrRecoveryFailure
	}

	record, err := s.register(ctx, tenantID, adminID, agentID, models.ActionOwnershipRecover)
	if err != nil {
		return nil, err
	}

	s.logger.Info("tenant ownership recovered from admin source",
		zap.String("tenant_id", tenantID),
		zap.String("owner_id", record.OwnerID))
	return record, nil
}

func (s *ownershipService) audit(ctx context.Context, entry *models.AuditLog) {
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
