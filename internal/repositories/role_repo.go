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

// RoleRepository persists the per-tenant role document. The whole document
// is rewritten on every change, through the same retry pattern as the
// settings state.
type RoleRepository interface {
	Get(ctx context.Context, tenantID, principalID string) (models.RoleRecord, bool, error)
	Set(ctx context.Context, tenantID string, record models.RoleRecord) error
	List(ctx context.Context, tenantID string) ([]models.RoleRecord, error)
}

type roleRepo struct {
	kv     caching.KVStore
	logger *zap.Logger
}

func NewRoleRepo(kv caching.KVStore, logger *zap.Logger) RoleRepository {
	return &roleRepo{kv: kv, logger: logger}
}

func (r *roleRepo) load(ctx context.Context, tenantID string) (*models.RoleSet, error) {
	key := rolesKey(tenantID)
	var set models.RoleSet
	found, err := r.kv.GetJSON(ctx, key, &set)
	if err != nil {
		return nil, &common.PersistenceError{Op: "roles load", Key: key, Err: err}
	}
	if !found {
		return &models.RoleSet{
			TenantID:    tenantID,
			Assignments: make(map[string]models.RoleRecord),
		}, nil
	}
	if set.Assignments == nil {
		set.Assignments = make(map[string]models.RoleRecord)
	}
	set.TenantID = tenantID
	return &set, nil
}

func (r *roleRepo) Get(ctx context.Context, tenantID, principalID string) (models.RoleRecord, bool, error) {
	set, err := r.load(ctx, tenantID)
	if err != nil {
		return models.RoleRecord{}, false, err
	}
	record, ok := set.Assignments[principalID]
	return record, ok, nil
}

func (r *roleRepo) Set(ctx context.Context, tenantID string, record models.RoleRecord) error {
	if record.PrincipalID == "" {
		return fmt.Errorf("role record requires a principal ID")
	}
	set, err := r.load(ctx, tenantID)
	if err != nil {
		return err
	}
	record.TenantID = tenantID
	record.UpdatedAt = time.Now().UTC()
	set.Assignments[record.PrincipalID] = record
	set.UpdatedAt = time.Now().UTC()
	return setJSONWithRetry(ctx, r.kv, r.logger, "roles set", rolesKey(tenantID), set)
}

func (r *roleRepo) List(ctx context.Context, tenantID string) ([]models.RoleRecord, error) {
	set, err := r.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	records := make([]models.RoleRecord, 0, len(set.Assignments))
	for _, record := range set.Assignments {
		records = append(records, record)
	}
	return records, nil
}
