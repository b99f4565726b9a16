package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/vipplay/contentgen/internal/domain"
	"github.com/vipplay/contentgen/internal/platform/logger"
	"github.com/vipplay/contentgen/internal/store"
)

const groupColumns = `id, name, description, models, strategy, weights,
	is_active, created_at, updated_at`

// ModelGroupStore implements store.ModelGroupStore using PostgreSQL. The
// models and weights lists are stored as JSONB to keep ordering intact.
type ModelGroupStore struct {
	db  store.DBTX
	sql *sql.DB
}

// NewModelGroupStore creates a new ModelGroupStore. The *sql.DB is retained
// so services can open transactions spanning this and other stores.
func NewModelGroupStore(db *sql.DB) *ModelGroupStore {
	return &ModelGroupStore{db: db, sql: db}
}

var _ store.ModelGroupStore = (*ModelGroupStore)(nil)

// WithTx returns a ModelGroupStore bound to the given transaction.
func (s *ModelGroupStore) WithTx(tx *sql.Tx) store.ModelGroupStore {
	return &ModelGroupStore{db: tx, sql: s.sql}
}

// DB returns the underlying database handle.
func (s *ModelGroupStore) DB() *sql.DB {
	return s.sql
}

// Create persists a new model group.
func (s *ModelGroupStore) Create(ctx context.Context, group *domain.ModelGroup) error {
	log := logger.FromContext(ctx)

	if err := group.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	models, weights, err := marshalLists(group)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO model_groups (` + groupColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		group.ID,
		group.Name,
		group.Description,
		models,
		group.Strategy,
		weights,
		group.IsActive,
		group.CreatedAt,
		group.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrGroupNameExists
		}
		log.Error("failed to save model group", "group_id", group.ID, "error", err)
		return MapError(err)
	}
	return nil
}

// GetByID retrieves a group by its unique ID.
func (s *ModelGroupStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ModelGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM model_groups WHERE id = $1`
	group, err := scanGroup(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrModelGroupNotFound
		}
		return nil, MapError(err)
	}
	return group, nil
}

// GetByName retrieves a group by its unique name.
func (s *ModelGroupStore) GetByName(ctx context.Context, name string) (*domain.ModelGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM model_groups WHERE name = $1`
	group, err := scanGroup(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrModelGroupNotFound
		}
		return nil, MapError(err)
	}
	return group, nil
}

// Update saves changes to an existing group.
func (s *ModelGroupStore) Update(ctx context.Context, group *domain.ModelGroup) error {
	log := logger.FromContext(ctx)

	if err := group.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	models, weights, err := marshalLists(group)
	if err != nil {
		return err
	}

	query := `
		UPDATE model_groups
		SET name = $1, description = $2, models = $3, strategy = $4,
			weights = $5, is_active = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := s.db.ExecContext(ctx, query,
		group.Name,
		group.Description,
		models,
		group.Strategy,
		weights,
		group.IsActive,
		group.UpdatedAt,
		group.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrGroupNameExists
		}
		log.Error("failed to update model group", "group_id", group.ID, "error", err)
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "model group"); err != nil {
		return store.ErrModelGroupNotFound
	}
	return nil
}

// Delete removes a group by ID.
func (s *ModelGroupStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM model_groups WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "model group"); err != nil {
		return store.ErrModelGroupNotFound
	}
	return nil
}

// List returns all groups ordered by creation time, optionally filtered by
// the active flag.
func (s *ModelGroupStore) List(ctx context.Context, activeOnly *bool) ([]*domain.ModelGroup, error) {
	var rows *sql.Rows
	var err error
	if activeOnly != nil {
		query := `SELECT ` + groupColumns + `
			FROM model_groups WHERE is_active = $1 ORDER BY created_at ASC`
		rows, err = s.db.QueryContext(ctx, query, *activeOnly)
	} else {
		query := `SELECT ` + groupColumns + ` FROM model_groups ORDER BY created_at ASC`
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var groups []*domain.ModelGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model group row: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating model group rows: %w", err)
	}
	return groups, nil
}

// Upsert applies a bundle entry. A row with the same ID updates in place,
// renames included; otherwise the entry merges by name, keeping the existing
// row's ID and created_at so references from jobs stay valid. Renaming a
// group to a name held by a different row fails with ErrGroupNameExists.
func (s *ModelGroupStore) Upsert(ctx context.Context, group *domain.ModelGroup) error {
	if err := group.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	models, weights, err := marshalLists(group)
	if err != nil {
		return err
	}

	update := `
		UPDATE model_groups
		SET name = $1, description = $2, models = $3, strategy = $4,
			weights = $5, is_active = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := s.db.ExecContext(ctx, update,
		group.Name,
		group.Description,
		models,
		group.Strategy,
		weights,
		group.IsActive,
		group.UpdatedAt,
		group.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrGroupNameExists
		}
		return MapError(err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	insert := `
		INSERT INTO model_groups (` + groupColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description, models = EXCLUDED.models,
			strategy = EXCLUDED.strategy, weights = EXCLUDED.weights,
			is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, insert,
		group.ID,
		group.Name,
		group.Description,
		models,
		group.Strategy,
		weights,
		group.IsActive,
		group.CreatedAt,
		group.UpdatedAt,
	)
	if err != nil {
		return MapError(err)
	}
	return nil
}

func marshalLists(group *domain.ModelGroup) (models, weights []byte, err error) {
	models, err = json.Marshal(group.Models)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal models list: %w", err)
	}
	if group.Weights != nil {
		weights, err = json.Marshal(group.Weights)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal weights list: %w", err)
		}
	}
	return models, weights, nil
}

func scanGroup(row rowScanner) (*domain.ModelGroup, error) {
	var (
		group   domain.ModelGroup
		models  []byte
		weights []byte
	)

	err := row.Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&models,
		&group.Strategy,
		&weights,
		&group.IsActive,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(models, &group.Models); err != nil {
		return nil, fmt.Errorf("failed to unmarshal models list: %w", err)
	}
	if len(weights) > 0 {
		if err := json.Unmarshal(weights, &group.Weights); err != nil {
			return nil, fmt.Errorf("failed to unmarshal weights list: %w", err)
		}
	}
	group.CreatedAt = group.CreatedAt.UTC()
	group.UpdatedAt = group.UpdatedAt.UTC()

	return &group, nil
}
