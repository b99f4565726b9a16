package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/store"
)

// ImportSummary reports what an import applied.
type ImportSummary struct {
	ModelGroups    int `json:"model_groups"`
	Configurations int `json:"configurations"`
}

// ConfigService exports and imports the router configuration as a versioned
// bundle of model groups and named settings.
type ConfigService struct {
	groups  store.ModelGroupStore
	configs store.ConfigurationStore
	logger  *slog.Logger
}

// NewConfigService creates a ConfigService.
func NewConfigService(
	groups store.ModelGroupStore,
	configs store.ConfigurationStore,
	logger *slog.Logger,
) *ConfigService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigService{
		groups:  groups,
		configs: configs,
		logger:  logger.With("component", "config_service"),
	}
}

// Export snapshots all model groups and configurations into a bundle.
func (s *ConfigService) Export(ctx context.Context) (*domain.ConfigBundle, error) {
	groups, err := s.groups.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	configs, err := s.configs.List(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.ConfigBundle{
		Version:        domain.ConfigBundleVersion,
		ExportedAt:     time.Now().UTC(),
		ModelGroups:    groups,
		Configurations: configs,
	}, nil
}

// Import validates the bundle and applies every entry in one transaction.
// Model groups merge by name; configurations merge by name. Either the whole
// bundle lands or none of it does.
func (s *ConfigService) Import(ctx context.Context, bundle *domain.ConfigBundle) (*ImportSummary, error) {
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	summary := &ImportSummary{}
	err := store.RunInTransaction(ctx, s.groups.DB(), func(ctx context.Context, tx *sql.Tx) error {
		return applyBundle(ctx, s.groups.WithTx(tx), s.configs.WithTx(tx), bundle, summary)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "configuration imported",
		"model_groups", summary.ModelGroups, "configurations", summary.Configurations)
	return summary, nil
}

// applyBundle upserts every bundle entry through the given stores.
func applyBundle(
	ctx context.Context,
	groups store.ModelGroupStore,
	configs store.ConfigurationStore,
	bundle *domain.ConfigBundle,
	summary *ImportSummary,
) error {
	for _, group := range bundle.ModelGroups {
		if err := groups.Upsert(ctx, group); err != nil {
			return fmt.Errorf("import model group %q: %w", group.Name, err)
		}
		summary.ModelGroups++
	}
	for _, cfg := range bundle.Configurations {
		if err := configs.Upsert(ctx, cfg); err != nil {
			return fmt.Errorf("import configuration %q: %w", cfg.Name, err)
		}
		summary.Configurations++
	}
	return nil
}
