package serializers

import (
	"fmt"
	"os"

	"Airlock/pkg/models"
	"Airlock/pkg/validators"

	"gopkg.in/yaml.v3"
)

// LoadConfigFromYAML merges the file over DefaultConfig and validates the
// result. An empty path yields the defaults.
func LoadConfigFromYAML(filePath string) (models.Config, error) {
	cfg := models.DefaultConfig()
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := validators.ValidateConfig(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WriteYAML stores v at path, replacing any previous content.
func WriteYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ReadYAML decodes the file at path into v.
func ReadYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}
