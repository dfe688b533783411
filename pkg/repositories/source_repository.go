package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/datapanel-io/datapanel-engine/pkg/apperrors"
	"github.com/datapanel-io/datapanel-engine/pkg/database"
	"github.com/datapanel-io/datapanel-engine/pkg/models"
)

// SourceRepository defines data access for the source registry, the
// only durable state in the engine.
type SourceRepository interface {
	// Create inserts a new source and assigns its id. created_at and
	// updated_at are set to the same instant.
	Create(ctx context.Context, src *models.Source) error

	// GetByID retrieves a source. Returns apperrors.ErrNotFound for
	// unknown ids.
	GetByID(ctx context.Context, id int64) (*models.Source, error)

	// List retrieves all sources ordered by id. Every call returns
	// fresh copies; callers may mutate the result freely.
	List(ctx context.Context) ([]*models.Source, error)

	// Update applies a partial patch and bumps updated_at. Returns the
	// updated row, or apperrors.ErrNotFound.
	Update(ctx context.Context, id int64, patch models.SourcePatch) (*models.Source, error)

	// Delete removes a source permanently. No tombstoning.
	Delete(ctx context.Context, id int64) error

	// RecordSyncResult writes the schema metadata produced by a
	// successful sync and refreshes updated_at. Failed syncs never call
	// this. Returns apperrors.ErrNotFound when the source vanished
	// mid-sync.
	RecordSyncResult(ctx context.Context, id int64, schemaInfo json.RawMessage, syncedAt time.Time) error
}

// sourceRepository implements SourceRepository using PostgreSQL.
type sourceRepository struct {
	db *database.DB
}

// NewSourceRepository creates a new source repository.
func NewSourceRepository(db *database.DB) SourceRepository {
	return &sourceRepository{db: db}
}

const sourceColumns = `id, name, source_type, connection_info, schema_info, is_active, created_at, updated_at`

// Create inserts a new source.
func (r *sourceRepository) Create(ctx context.Context, src *models.Source) error {
	now := time.Now().UTC()
	src.CreatedAt = now
	src.UpdatedAt = now

	query := `
		INSERT INTO data_sources (name, source_type, connection_info, schema_info, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		src.Name,
		src.Type,
		src.ConnectionInfo,
		src.SchemaInfo,
		src.IsActive,
		src.CreatedAt,
		src.UpdatedAt,
	).Scan(&src.ID)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}

	return nil
}

// GetByID retrieves a source by id.
func (r *sourceRepository) GetByID(ctx context.Context, id int64) (*models.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM data_sources WHERE id = $1`

	src, err := scanSource(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("source %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return src, nil
}

// List retrieves all sources ordered by id.
func (r *sourceRepository) List(ctx context.Context) ([]*models.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM data_sources ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sources: %w", err)
	}

	return sources, nil
}

// Update applies a partial patch, bumping updated_at unconditionally.
func (r *sourceRepository) Update(ctx context.Context, id int64, patch models.SourcePatch) (*models.Source, error) {
	// COALESCE keeps the stored value wherever the patch field is nil,
	// so a single statement covers every patch shape.
	query := `
		UPDATE data_sources
		SET name = COALESCE($2, name),
		    source_type = COALESCE($3, source_type),
		    connection_info = COALESCE($4, connection_info),
		    is_active = COALESCE($5, is_active),
		    updated_at = $6
		WHERE id = $1
		RETURNING ` + sourceColumns

	src, err := scanSource(r.db.QueryRow(ctx, query,
		id,
		patch.Name,
		(*string)(patch.Type),
		patch.ConnectionInfo,
		patch.IsActive,
		time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("source %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update source: %w", err)
	}

	return src, nil
}

// Delete removes a source by id.
func (r *sourceRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM data_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("source %d: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

// RecordSyncResult writes sync output back to the registry row.
func (r *sourceRepository) RecordSyncResult(ctx context.Context, id int64, schemaInfo json.RawMessage, syncedAt time.Time) error {
	query := `UPDATE data_sources SET schema_info = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, schemaInfo, syncedAt)
	if err != nil {
		return fmt.Errorf("failed to record sync result: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("source %d: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

// scanSource reads one source row. schema_info and connection_info are
// nullable in the table.
func scanSource(row pgx.Row) (*models.Source, error) {
	var src models.Source
	var connectionInfo *string
	var schemaInfo []byte

	err := row.Scan(
		&src.ID,
		&src.Name,
		&src.Type,
		&connectionInfo,
		&schemaInfo,
		&src.IsActive,
		&src.CreatedAt,
		&src.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if connectionInfo != nil {
		src.ConnectionInfo = *connectionInfo
	}
	if len(schemaInfo) > 0 {
		src.SchemaInfo = json.RawMessage(schemaInfo)
	}

	return &src, nil
}

// Ensure sourceRepository implements SourceRepository at compile time.
var _ SourceRepository = (*sourceRepository)(nil)
