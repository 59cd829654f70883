package models

import (
	"time"
)

// OnboardingState is the lifecycle phase of a tenant's configuration.
type OnboardingState string

const (
	StateUninitialized OnboardingState = "UNINITIALIZED"
	StateInProgress    OnboardingState = "IN_PROGRESS"
	StateComplete      OnboardingState = "COMPLETE"
)

// SettingsState holds the per-tenant values for every schema key. A nil
// value means "not yet configured". The schema is the source of truth for
// which keys exist; Load reconciles stored documents against it.
type SettingsState struct {
	TenantID  string             `json:"tenant_id"`
	Values    map[string]*string `json:"values"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Value returns the stored value for key, or nil when unset or unknown.
func (s *SettingsState) Value(key string) *string {
	if s == nil || s.Values == nil {
		return nil
	}
	return s.Values[key]
}

// IsSet reports whether key holds a non-nil value.
func (s *SettingsState) IsSet(key string) bool {
	return s.Value(key) != nil
}

// Clone returns a deep copy so updaters can stage changes without mutating
// the loaded document.
func (s *SettingsState) Clone() *SettingsState {
	out := &SettingsState{
		TenantID:  s.TenantID,
		Values:    make(map[string]*string, len(s.Values)),
		UpdatedAt: s.UpdatedAt,
	}
	for k, v := range s.Values {
		if v == nil {
			out.Values[k] = nil
			continue
		}
		val := *v
		out.Values[k] = &val
	}
	return out
}
