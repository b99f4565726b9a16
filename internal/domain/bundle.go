package domain

import (
	"errors"
	"fmt"
	"time"
)

// ConfigBundleVersion is the bundle format produced by Export and accepted by
// Import. Bump on incompatible changes to the bundle shape.
const ConfigBundleVersion = "1.0"

// Bundle validation errors.
var (
	ErrBundleVersion   = errors.New("unsupported bundle version")
	ErrEmptyConfigName = errors.New("configuration name cannot be empty")
)

// Configuration is a named setting carried alongside model groups in a bundle.
type Configuration struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the configuration entry.
func (c *Configuration) Validate() error {
	if c.Name == "" {
		return ErrEmptyConfigName
	}
	return nil
}

// ConfigBundle is a versioned snapshot of all model groups and named
// configurations, used for export/import of router state.
type ConfigBundle struct {
	Version        string          `json:"version"`
	ExportedAt     time.Time       `json:"exported_at"`
	ModelGroups    []*ModelGroup   `json:"model_groups"`
	Configurations []Configuration `json:"configurations"`
}

// Validate checks version compatibility and the validity of every entry.
// Import must reject the whole bundle on the first invalid entry so that no
// partial application can occur.
func (b *ConfigBundle) Validate() error {
	if b.Version != ConfigBundleVersion {
		return fmt.Errorf("%w: got %q, want %q", ErrBundleVersion, b.Version, ConfigBundleVersion)
	}
	for _, g := range b.ModelGroups {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("model group %q: %w", g.Name, err)
		}
	}
	for i := range b.Configurations {
		if err := b.Configurations[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
