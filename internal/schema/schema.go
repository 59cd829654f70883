package schema

import (
	"fmt"
	"strings"

	"quartermaster/internal/models"

	"go.uber.org/zap"
)

// Schema is the ordered, immutable set of settings a tenant must work
// through. Declaration order is prompt order. All predicate evaluation goes
// through this type so that a panicking predicate is recovered and treated
// as false instead of taking down the request.
type Schema struct {
	settings []*models.Setting
	index    map[string]*models.Setting
	logger   *zap.Logger
}

// New builds a Schema from an ordered setting list. It rejects duplicate
// keys and dependencies on keys that do not exist.
func New(logger *zap.Logger, settings ...*models.Setting) (*Schema, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Schema{
		settings: settings,
		index:    make(map[string]*models.Setting, len(settings)),
		logger:   logger,
	}
	for _, st := range settings {
		if st.Key == "" {
			return nil, fmt.Errorf("setting with empty key")
		}
		if _, dup := s.index[st.Key]; dup {
			return nil, fmt.Errorf("duplicate setting key %q", st.Key)
		}
		s.index[st.Key] = st
	}
	for _, st := range settings {
		for _, dep := range st.DependsOn {
			if _, ok := s.index[dep]; !ok {
				return nil, fmt.Errorf("setting %q depends on unknown key %q", st.Key, dep)
			}
		}
	}
	return s, nil
}

// Settings returns the settings in declaration order.
func (s *Schema) Settings() []*models.Setting {
	return s.settings
}

// Get looks up a setting by key.
func (s *Schema) Get(key string) (*models.Setting, bool) {
	st, ok := s.index[key]
	return st, ok
}

// Keys returns the schema keys in declaration order.
func (s *Schema) Keys() []string {
	keys := make([]string, 0, len(s.settings))
	for _, st := range s.settings {
		keys = append(keys, st.Key)
	}
	return keys
}

// Visible evaluates the setting's visibility predicate against the current
// values. A nil predicate means always visible; a panicking predicate is
// logged and counts as not visible.
func (s *Schema) Visible(st *models.Setting, values map[string]*string) (visible bool) {
	if st.VisibleIf == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("visibility predicate panicked",
				zap.String("setting", st.Key),
				zap.Any("panic", r))
			visible = false
		}
	}()
	return st.VisibleIf(values)
}

// Valid evaluates the setting's validator. A nil validator accepts any
// value; a panicking validator is logged and counts as invalid.
func (s *Schema) Valid(st *models.Setting, value string) (ok bool) {
	if st.Validate == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("validator panicked",
				zap.String("setting", st.Key),
				zap.Any("panic", r))
			ok = false
		}
	}()
	return st.Validate(value)
}

// DepsMet reports whether every dependency of the setting holds a non-nil
// value.
func (s *Schema) DepsMet(st *models.Setting, values map[string]*string) bool {
	for _, dep := range st.DependsOn {
		if values[dep] == nil {
			return false
		}
	}
	return true
}

// RunOnSet fires the setting's post-commit hook and returns its notice, if
// any. A panicking hook is logged and ignored.
func (s *Schema) RunOnSet(st *models.Setting, value string) (notice string) {
	if st.OnSet == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("onSet hook panicked",
				zap.String("setting", st.Key),
				zap.Any("panic", r))
			notice = ""
		}
	}()
	return st.OnSet(value)
}

// Description renders the schema as plain text for the extraction service:
// one line per setting with key, display name, requiredness and description.
func (s *Schema) Description() string {
	var b strings.Builder
	for _, st := range s.settings {
		b.WriteString(st.Key)
		b.WriteString(" (")
		b.WriteString(st.Name)
		if st.Required {
			b.WriteString(", required")
		}
		b.WriteString("): ")
		b.WriteString(st.Description)
		b.WriteString("\n")
	}
	return b.String()
}
