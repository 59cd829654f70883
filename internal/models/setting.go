package models

// Setting describes one configurable key in a tenant's onboarding schema.
// The schema is immutable per deployment; per-tenant values live in
// SettingsState.
type Setting struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Public      bool     `json:"public"`
	Secret      bool     `json:"secret"`
	DependsOn   []string `json:"depends_on,omitempty"`

	// Validate reports whether a candidate value is acceptable. A nil
	// Validate accepts everything. Supplied by schema authors, so callers
	// must treat it as untrusted: evaluate through schema.Schema, which
	// recovers panics.
	Validate func(value string) bool `json:"-"`

	// VisibleIf is evaluated against the full value map. A setting that is
	// not visible is excluded from status display and next-step selection.
	VisibleIf func(values map[string]*string) bool `json:"-"`

	// OnSet runs after a value is committed and may return a notice for the
	// principal (for example "restart required").
	OnSet func(value string) string `json:"-"`
}

// Candidate is one proposed {key, value} update, typically produced by the
// text-extraction service or submitted directly over the API.
type Candidate struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
