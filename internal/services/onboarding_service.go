package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"quartermaster/internal/models"
	"quartermaster/internal/repositories"
	"quartermaster/internal/schema"

	"go.uber.org/zap"
)

// SettingStatus pairs a schema setting with its current value for display.
type SettingStatus struct {
	Setting    *models.Setting `json:"setting"`
	Value      *string         `json:"value"`
	Configured bool            `json:"configured"`
}

// StatusReport is the computed onboarding position of one tenant: the
// visible settings partitioned by configuredness, plus the next setting to
// prompt for. NextIncomplete is the first required, visible, unconfigured
// setting in schema declaration order whose dependencies are all satisfied.
type StatusReport struct {
	Configured      []SettingStatus        `json:"configured"`
	RequiredMissing []SettingStatus        `json:"required_missing"`
	OptionalMissing []SettingStatus        `json:"optional_missing"`
	NextIncomplete  *models.Setting        `json:"next_incomplete,omitempty"`
	Complete        bool                   `json:"complete"`
	State           models.OnboardingState `json:"state"`
}

// AcceptedUpdate is one committed field, with any notice from its onSet hook.
type AcceptedUpdate struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Notice string `json:"notice,omitempty"`
}

// RejectedUpdate names the field and the reason it was refused.
type RejectedUpdate struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// ApplyResult is the structured outcome of one ApplyUpdates call. Rejections
// are per-field and non-fatal; accepted values were committed in a single
// store write even when rejections occurred alongside them.
type ApplyResult struct {
	Accepted  []AcceptedUpdate `json:"accepted"`
	Rejected  []RejectedUpdate `json:"rejected"`
	Report    *StatusReport    `json:"report"`
	Completed bool             `json:"completed"`
}

// OnboardingService is the per-tenant configuration state machine:
// UNINITIALIZED -> IN_PROGRESS on first load, IN_PROGRESS -> COMPLETE when
// the completion invariant holds. COMPLETE is sticky for display, but
// updates keep being accepted afterwards.
type OnboardingService interface {
	Load(ctx context.Context, tenantID string) (*models.SettingsState, error)
	Status(state *models.SettingsState) *StatusReport
	ApplyUpdates(ctx context.Context, tenantID, actorID string, candidates []models.Candidate) (*ApplyResult, error)
	RenderStatus(report *StatusReport) string
}

// Snapshotter archives a completed tenant's settings; failures are logged,
// never surfaced.
type Snapshotter interface {
	Archive(ctx context.Context, tenantID string, report *StatusReport) error
}

type onboardingService struct {
	schema      *schema.Schema
	stateRepo   repositories.SettingsStateRepository
	auditRepo   repositories.AuditLogsRepository
	snapshotter Snapshotter
	logger      *zap.Logger
}

func NewOnboardingService(
	sch *schema.Schema,
	stateRepo repositories.SettingsStateRepository,
	auditRepo repositories.AuditLogsRepository,
	snapshotter Snapshotter,
	logger *zap.Logger,
) OnboardingService {
	return &onboardingService{
		schema:      sch,
		stateRepo:   stateRepo,
		auditRepo:   auditRepo,
		snapshotter: snapshotter,
		logger:      logger,
	}
}

func (s *onboardingService) Load(ctx context.Context, tenantID string) (*models.SettingsState, error) {
	return s.stateRepo.Load(ctx, tenantID)
}

func (s *onboardingService) Status(state *models.SettingsState) *StatusReport {
	report := &StatusReport{State: models.StateInProgress}
	values := state.Values

	requiredSatisfied := true
	for _, st := range s.schema.Settings() {
		if !s.schema.Visible(st, values) {
			continue
		}
		value := values[st.Key]
		configured := value != nil && s.schema.Valid(st, *value)
		status := SettingStatus{Setting: st, Value: value, Configured: configured}

		switch {
		case configured:
			report.Configured = append(report.Configured, status)
		case st.Required:
			report.RequiredMissing = append(report.RequiredMissing, status)
		default:
			report.OptionalMissing = append(report.OptionalMissing, status)
		}

		if st.Required {
			if !configured || !s.schema.DepsMet(st, values) {
				requiredSatisfied = false
			}
			if report.NextIncomplete == nil && !configured && s.schema.DepsMet(st, values) {
				report.NextIncomplete = st
			}
		}
	}

	if requiredSatisfied {
		report.Complete = true
		report.State = models.StateComplete
	}
	return report
}

func (s *onboardingService) ApplyUpdates(ctx context.Context, tenantID, actorID string, candidates []models.Candidate) (*ApplyResult, error) {
	state, err := s.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	wasComplete := s.Status(state).Complete

	result := &ApplyResult{}
	staged := make(map[string]string)
	effective := state.Clone().Values

	// Candidate validation is sequential in schema declaration order, so a
	// dependency and its dependent land together no matter how the extractor
	// ordered them; later settings see earlier staged values. Unknown keys
	// sort last and are rejected.
	for _, cand := range orderBySchema(s.schema, candidates) {
		key := strings.TrimSpace(cand.Key)
		value := strings.TrimSpace(cand.Value)

		st, ok := s.schema.Get(key)
		if !ok {
			result.Rejected = append(result.Rejected, RejectedUpdate{
				Key: key, Value: value, Reason: "unknown setting",
			})
			continue
		}
		if !s.schema.DepsMet(st, effective) {
			result.Rejected = append(result.Rejected, RejectedUpdate{
				Key: key, Value: value,
				Reason: fmt.Sprintf("requires %s to be configured first", strings.Join(st.DependsOn, ", ")),
			})
			continue
		}
		if !s.schema.Valid(st, value) {
			result.Rejected = append(result.Rejected, RejectedUpdate{
				Key: key, Value: value, Reason: fmt.Sprintf("invalid value for %s", st.Name),
			})
			continue
		}

		staged[key] = value
		v := value
		effective[key] = &v
	}

	committed := state
	if len(staged) > 0 {
		oldValues := make(map[string]string, len(staged))
		newValues := make(map[string]string, len(staged))

		// All accepted fields land in one commit to keep the lost-update
		// window as small as the store allows.
		committed, err = s.stateRepo.Commit(ctx, tenantID, func(next *models.SettingsState) error {
			for key, value := range staged {
				if prev := next.Values[key]; prev != nil {
					oldValues[key] = *prev
				}
				v := value
				next.Values[key] = &v
				newValues[key] = value
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		for _, st := range s.schema.Settings() {
			value, ok := staged[st.Key]
			if !ok {
				continue
			}
			notice := s.schema.RunOnSet(st, value)
			result.Accepted = append(result.Accepted, AcceptedUpdate{
				Key: st.Key, Value: value, Notice: notice,
			})
		}

		s.audit(ctx, &models.AuditLog{
			TenantID:  tenantID,
			Actor:     actorID,
			Action:    models.ActionSettingsUpdate,
			Subject:   strings.Join(sortedKeys(staged), ","),
			OldValues: maskSecrets(s.schema, oldValues),
			NewValues: maskSecrets(s.schema, newValues),
		})
	}

	result.Report = s.Status(committed)
	if result.Report.Complete && !wasComplete {
		result.Completed = true
		if err := s.stateRepo.ClearPending(ctx, tenantID); err != nil {
			s.logger.Warn("failed to clear pending marker", zap.String("tenant_id", tenantID), zap.Error(err))
		}
		if s.snapshotter != nil {
			if err := s.snapshotter.Archive(ctx, tenantID, result.Report); err != nil {
				s.logger.Warn("settings snapshot failed", zap.String("tenant_id", tenantID), zap.Error(err))
			}
		}
		s.logger.Info("tenant onboarding complete", zap.String("tenant_id", tenantID))
	}
	return result, nil
}

// RenderStatus produces the stable human-readable status block shown to
// principals.
func (s *onboardingService) RenderStatus(report *StatusReport) string {
	var b strings.Builder

	if len(report.Configured) > 0 {
		b.WriteString("Configured Settings:\n")
		for _, status := range report.Configured {
			b.WriteString(renderLine("✓", status))
		}
	}
	if len(report.RequiredMissing) > 0 {
		b.WriteString("Required Settings (Not Yet Configured):\n")
		for _, status := range report.RequiredMissing {
			b.WriteString(renderLine("○", status))
		}
	}
	if len(report.OptionalMissing) > 0 {
		b.WriteString("Optional Settings (Not Yet Configured):\n")
		for _, status := range report.OptionalMissing {
			b.WriteString(renderLine("○", status))
		}
	}

	if report.Complete {
		b.WriteString("All required settings are configured.\n")
	} else if report.NextIncomplete != nil {
		fmt.Fprintf(&b, "Next step: %s — %s\n", report.NextIncomplete.Name, report.NextIncomplete.Description)
	}
	return b.String()
}

func renderLine(mark string, status SettingStatus) string {
	st := status.Setting
	name := st.Name
	if st.Required {
		name += "*"
	}
	value := "Not set"
	if status.Value != nil {
		if st.Secret {
			value = "********"
		} else {
			value = *status.Value
		}
	}
	return fmt.Sprintf("%s %s: %s\n", mark, name, value)
}

func (s *onboardingService) audit(ctx context.Context, entry *models.AuditLog) {
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

func maskSecrets(sch *schema.Schema, values map[string]string) map[string]string {
	masked := make(map[string]string, len(values))
	for key, value := range values {
		if st, ok := sch.Get(key); ok && st.Secret {
			masked[key] = "********"
			continue
		}
		masked[key] = value
	}
	return masked
}

func orderBySchema(sch *schema.Schema, candidates []models.Candidate) []models.Candidate {
	index := make(map[string]int, len(sch.Settings()))
	for i, st := range sch.Settings() {
		index[st.Key] = i
	}

	ordered := make([]models.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		oi, iKnown := index[strings.TrimSpace(ordered[i].Key)]
		oj, jKnown := index[strings.TrimSpace(ordered[j].Key)]
		if iKnown && jKnown {
			return oi < oj
		}
		return iKnown && !jKnown
	})
	return ordered
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
