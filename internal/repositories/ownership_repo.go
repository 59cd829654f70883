package repositories

import (
	"context"
	"fmt"
	"time"

	"quartermaster/internal/caching"
	"quartermaster/internal/common"
	"quartermaster/internal/models"

	"go.uber.org/zap"
)

// OwnershipRepository persists tenant ownership records. Each record is
// written under two keys: the tenant document and a per-agent owner index so
// DM-initiated sessions can resolve "which tenant does this principal own"
// without scanning.
type OwnershipRepository interface {
	Get(ctx context.Context, tenantID string) (*models.OwnershipRecord, error)
	Put(ctx context.Context, record *models.OwnershipRecord) error
	FindByOwner(ctx context.Context, agentID, ownerID string) (*models.OwnershipRecord, error)
}

type ownershipRepo struct {
	kv     caching.KVStore
	logger *zap.Logger
}

func NewOwnershipRepo(kv caching.KVStore, logger *zap.Logger) OwnershipRepository {
	return &ownershipRepo{kv: kv, logger: logger}
}

// Get returns nil, nil when no record exists.
func (r *ownershipRepo) Get(ctx context.Context, tenantID string) (*models.OwnershipRecord, error) {
	key := ownershipKey(tenantID)
	var record models.OwnershipRecord
	found, err := r.kv.GetJSON(ctx, key, &record)
	if err != nil {
		return nil, &common.PersistenceError{Op: "ownership get", Key: key, Err: err}
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

func (r *ownershipRepo) Put(ctx context.Context, record *models.OwnershipRecord) error {
	if record.TenantID == "" || record.OwnerID == "" {
		return fmt.Errorf("ownership record requires tenant and owner IDs")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.UpdatedAt = time.Now().UTC()

	if err := setJSONWithRetry(ctx, r.kv, r.logger, "ownership put", ownershipKey(record.TenantID), record); err != nil {
		return err
	}
	// Index write failure leaves the tenant record authoritative; the DM
	// resolution path degrades until the next register.
	indexKey := ownerIndexKey(record.RegisteredBy, record.OwnerID)
	if err := r.kv.SetString(ctx, indexKey, record.TenantID); err != nil {
		r.logger.Warn("owner index write failed",
			zap.String("tenant_id", record.TenantID),
			zap.String("owner_id", record.OwnerID),
			zap.Error(err))
	}
	return nil
}

// FindByOwner resolves the tenant registered for ownerID by agentID. Scoped
// to the registering agent so agent instances sharing a store never leak
// each other's tenants. Returns nil, nil when nothing matches.
func (r *ownershipRepo) FindByOwner(ctx context.Context, agentID, ownerID string) (*models.OwnershipRecord, error) {
	tenantID, err := r.kv.GetString(ctx, ownerIndexKey(agentID, ownerID))
	if err != nil {
		return nil, &common.PersistenceError{Op: "owner lookup", Key: ownerIndexKey(agentID, ownerID), Err: err}
	}
	if tenantID == "" {
		return nil, nil
	}
	record, err := r.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if record != nil && record.RegisteredBy != agentID {
		return nil, nil
	}
	return record, nil
}
