package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/store"
)

// ConfigurationStore implements store.ConfigurationStore using PostgreSQL.
type ConfigurationStore struct {
	db store.DBTX
}

// NewConfigurationStore creates a new ConfigurationStore.
func NewConfigurationStore(db store.DBTX) *ConfigurationStore {
	return &ConfigurationStore{db: db}
}

var _ store.ConfigurationStore = (*ConfigurationStore)(nil)

// WithTx returns a ConfigurationStore bound to the given transaction.
func (s *ConfigurationStore) WithTx(tx *sql.Tx) store.ConfigurationStore {
	return &ConfigurationStore{db: tx}
}

// List returns all configurations ordered by name.
func (s *ConfigurationStore) List(ctx context.Context) ([]domain.Configuration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value, updated_at FROM configurations ORDER BY name ASC`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var configs []domain.Configuration
	for rows.Next() {
		var cfg domain.Configuration
		if err := rows.Scan(&cfg.Name, &cfg.Value, &cfg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan configuration row: %w", err)
		}
		cfg.UpdatedAt = cfg.UpdatedAt.UTC()
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating configuration rows: %w", err)
	}
	return configs, nil
}

// Upsert inserts or replaces a configuration by name.
func (s *ConfigurationStore) Upsert(ctx context.Context, cfg domain.Configuration) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO configurations (name, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, cfg.Name, cfg.Value, cfg.UpdatedAt); err != nil {
		return MapError(err)
	}
	return nil
}
