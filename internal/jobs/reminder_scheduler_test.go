package jobs

import (
	"context"
	"testing"
	"time"

	"quartermaster/internal/models"
	"quartermaster/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStateRepo struct {
	pending []string
	cleared []string
}

func (f *fakeStateRepo) Load(ctx context.Context, tenantID string) (*models.SettingsState, error) {
	return &models.SettingsState{TenantID: tenantID, Values: map[string]*string{}}, nil
}

func (f *fakeStateRepo) Commit(ctx context.Context, tenantID string, updater func(*models.SettingsState) error) (*models.SettingsState, error) {
	return nil, nil
}

func (f *fakeStateRepo) MarkPending(ctx context.Context, tenantID string) error {
	f.pending = append(f.pending, tenantID)
	return nil
}

func (f *fakeStateRepo) ClearPending(ctx context.Context, tenantID string) error {
	f.cleared = append(f.cleared, tenantID)
	return nil
}

func (f *fakeStateRepo) PendingTenants(ctx context.Context) ([]string, error) {
	return f.pending, nil
}

// fakeOnboarding reports a canned status per tenant.
type fakeOnboarding struct {
	reports map[string]*services.StatusReport
}

func (f *fakeOnboarding) Load(ctx context.Context, tenantID string) (*models.SettingsState, error) {
	return &models.SettingsState{TenantID: tenantID, Values: map[string]*string{}}, nil
}

func (f *fakeOnboarding) Status(state *models.SettingsState) *services.StatusReport {
	return f.reports[state.TenantID]
}

func (f *fakeOnboarding) ApplyUpdates(ctx context.Context, tenantID, actorID string, candidates []models.Candidate) (*services.ApplyResult, error) {
	return nil, nil
}

func (f *fakeOnboarding) RenderStatus(report *services.StatusReport) string {
	return ""
}

type recordingNotifier struct {
	notified map[string]string
}

func (n *recordingNotifier) Notify(ctx context.Context, tenantID, message string) error {
	if n.notified == nil {
		n.notified = make(map[string]string)
	}
	n.notified[tenantID] = message
	return nil
}

func TestReminderScan(t *testing.T) {
	repo := &fakeStateRepo{pending: []string{"tenant-stuck", "tenant-done"}}
	onboarding := &fakeOnboarding{reports: map[string]*services.StatusReport{
		"tenant-stuck": {
			NextIncomplete: &models.Setting{Key: "name", Name: "Community Name", Description: "What it is called."},
			State:          models.StateInProgress,
		},
		"tenant-done": {Complete: true, State: models.StateComplete},
	}}
	notifier := &recordingNotifier{}

	rs, err := NewReminderScheduler(repo, onboarding, notifier, time.Hour, zap.NewNop())
	require.NoError(t, err)
	rs.runOnce()

	// The stuck tenant was nudged with its next setting.
	require.Contains(t, notifier.notified, "tenant-stuck")
	assert.Contains(t, notifier.notified["tenant-stuck"], "Community Name")

	// The finished tenant was not nudged; its marker was dropped.
	assert.NotContains(t, notifier.notified, "tenant-done")
	assert.Equal(t, []string{"tenant-done"}, repo.cleared)
}

func TestReminderScanWithoutNotifier(t *testing.T) {
	repo := &fakeStateRepo{pending: []string{"tenant-stuck"}}
	onboarding := &fakeOnboarding{reports: map[string]*services.StatusReport{
		"tenant-stuck": {
			NextIncomplete: &models.Setting{Key: "name", Name: "Community Name", Description: "What it is called."},
			State:          models.StateInProgress,
		},
	}}

	rs, err := NewReminderScheduler(repo, onboarding, nil, time.Hour, zap.NewNop())
	require.NoError(t, err)
	rs.runOnce()

	assert.Empty(t, repo.cleared)
}
