package schema

import (
	"fmt"
	"os"

	"quartermaster/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SettingFile is the YAML shape of one setting. Predicates are referenced
// declaratively: validators by name (see validators.go), visibility as a
// condition on another setting's value.
type SettingFile struct {
	Key         string         `yaml:"key"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Required    bool           `yaml:"required"`
	Public      bool           `yaml:"public"`
	Secret      bool           `yaml:"secret"`
	DependsOn   []string       `yaml:"depends_on"`
	Validate    string         `yaml:"validate"`
	VisibleIf   *VisibleIfFile `yaml:"visible_if"`
}

// VisibleIfFile makes a setting visible only when another setting is set,
// optionally to a specific value.
type VisibleIfFile struct {
	Key    string `yaml:"key"`
	Equals string `yaml:"equals"`
	AnySet bool   `yaml:"any_set"`
}

type schemaFile struct {
	Settings []SettingFile `yaml:"settings"`
}

// LoadFile reads a YAML schema file and builds a Schema.
func LoadFile(path string, logger *zap.Logger) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Load(data, logger)
}

// Load parses YAML schema bytes and builds a Schema.
func Load(data []byte, logger *zap.Logger) (*Schema, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}
	if len(file.Settings) == 0 {
		return nil, fmt.Errorf("schema file declares no settings")
	}

	settings := make([]*models.Setting, 0, len(file.Settings))
	for _, sf := range file.Settings {
		validate, err := LookupValidator(sf.Validate)
		if err != nil {
			return nil, fmt.Errorf("setting %q: %w", sf.Key, err)
		}
		st := &models.Setting{
			Key:         sf.Key,
			Name:        sf.Name,
			Description: sf.Description,
			Required:    sf.Required,
			Public:      sf.Public,
			Secret:      sf.Secret,
			DependsOn:   sf.DependsOn,
			Validate:    validate,
		}
		if cond := sf.VisibleIf; cond != nil {
			key, equals, anySet := cond.Key, cond.Equals, cond.AnySet
			st.VisibleIf = func(values map[string]*string) bool {
				v := values[key]
				if v == nil {
					return false
				}
				if anySet || equals == "" {
					return true
				}
				return *v == equals
			}
		}
		settings = append(settings, st)
	}
	return New(logger, settings...)
}
