package repositories

import (
	"context"
	"fmt"
	"time"

	"quartermaster/internal/caching"
	"quartermaster/internal/common"
	"quartermaster/internal/models"
	"quartermaster/internal/schema"

	"go.uber.org/zap"
)

// SettingsStateRepository is the read-modify-write wrapper over the KV
// cache for per-tenant settings documents.
type SettingsStateRepository interface {
	// Load returns the tenant's settings state, synthesizing and persisting
	// the schema defaults when absent. Idempotent: concurrent synthesizers
	// write identical defaults, so last-writer-wins converges.
	Load(ctx context.Context, tenantID string) (*models.SettingsState, error)

	// Commit applies updater to a fresh read of the state and writes the
	// result back in one set. The store has no CAS, so a concurrent commit
	// in the retry window can be lost; callers batch all fields of one
	// logical update into a single Commit to keep that window small.
	Commit(ctx context.Context, tenantID string, updater func(*models.SettingsState) error) (*models.SettingsState, error)

	// MarkPending / ClearPending maintain the in-progress marker scanned by
	// the reminder job.
	MarkPending(ctx context.Context, tenantID string) error
	ClearPending(ctx context.Context, tenantID string) error
	PendingTenants(ctx context.Context) ([]string, error)
}

type settingsStateRepo struct {
	kv     caching.KVStore
	schema *schema.Schema
	logger *zap.Logger
}

func NewSettingsStateRepo(kv caching.KVStore, sch *schema.Schema, logger *zap.Logger) SettingsStateRepository {
	return &settingsStateRepo{kv: kv, schema: sch, logger: logger}
}

func (r *settingsStateRepo) Load(ctx context.Context, tenantID string) (*models.SettingsState, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}
	key := settingsKey(tenantID)

	var state models.SettingsState
	found, err := r.kv.GetJSON(ctx, key, &state)
	if err != nil {
		return nil, &common.PersistenceError{Op: "load", Key: key, Err: err}
	}
	if !found {
		fresh := r.defaultState(tenantID)
		if err := setJSONWithRetry(ctx, r.kv, r.logger, "initialize", key, fresh); err != nil {
			return nil, err
		}
		if err := r.MarkPending(ctx, tenantID); err != nil {
			r.logger.Warn("failed to mark tenant pending", zap.String("tenant_id", tenantID), zap.Error(err))
		}
		r.logger.Info("synthesized default settings state", zap.String("tenant_id", tenantID))
		return fresh, nil
	}

	r.reconcile(&state)
	state.TenantID = tenantID
	return &state, nil
}

func (r *settingsStateRepo) Commit(ctx context.Context, tenantID string, updater func(*models.SettingsState) error) (*models.SettingsState, error) {
	state, err := r.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	next := state.Clone()
	if err := updater(next); err != nil {
		return nil, err
	}
	r.reconcile(next)
	next.UpdatedAt = time.Now().UTC()

	if err := setJSONWithRetry(ctx, r.kv, r.logger, "commit", settingsKey(tenantID), next); err != nil {
		return nil, err
	}
	return next, nil
}

func (r *settingsStateRepo) MarkPending(ctx context.Context, tenantID string) error {
	return r.kv.SetString(ctx, pendingKey(tenantID), time.Now().UTC().Format(time.RFC3339))
}

func (r *settingsStateRepo) ClearPending(ctx context.Context, tenantID string) error {
	return r.kv.Delete(ctx, pendingKey(tenantID))
}

func (r *settingsStateRepo) PendingTenants(ctx context.Context) ([]string, error) {
	keys, err := r.kv.Keys(ctx, PendingKeyPattern())
	if err != nil {
		return nil, err
	}
	tenants := make([]string, 0, len(keys))
	for _, k := range keys {
		if id := TenantIDFromPendingKey(k); id != "" {
			tenants = append(tenants, id)
		}
	}
	return tenants, nil
}

func (r *settingsStateRepo) defaultState(tenantID string) *models.SettingsState {
	values := make(map[string]*string, len(r.schema.Settings()))
	for _, st := range r.schema.Settings() {
		values[st.Key] = nil
	}
	return &models.SettingsState{
		TenantID:  tenantID,
		Values:    values,
		UpdatedAt: time.Now().UTC(),
	}
}

// reconcile brings a stored document in line with the current schema: keys
// added since the document was written appear unset, keys removed from the
// schema are dropped.
func (r *settingsStateRepo) reconcile(state *models.SettingsState) {
	if state.Values == nil {
		state.Values = make(map[string]*string)
	}
	for _, st := range r.schema.Settings() {
		if _, ok := state.Values[st.Key]; !ok {
			state.Values[st.Key] = nil
		}
	}
	for key := range state.Values {
		if _, ok := r.schema.Get(key); !ok {
			delete(state.Values, key)
		}
	}
}
