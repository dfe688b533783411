package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/datapanel-io/datapanel-engine/pkg/models"
	"github.com/datapanel-io/datapanel-engine/pkg/preview"
)

// RowSampler fetches preview snapshots from live sources. Only
// postgresql sources are sampled today; other types report that no
// sampler exists rather than guessing at their wire formats.
type RowSampler struct {
	logger *zap.Logger
}

// NewRowSampler creates a row sampler.
func NewRowSampler(logger *zap.Logger) *RowSampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RowSampler{logger: logger}
}

// Fetch samples up to maxRows rows from the source's largest table.
func (s *RowSampler) Fetch(ctx context.Context, src *models.Source, maxRows int) (*preview.Snapshot, error) {
	if src.Type != models.SourceTypePostgreSQL {
		return nil, fmt.Errorf("no row sampler for source type %q", src.Type)
	}

	pool, err := pgxpool.New(ctx, src.ConnectionInfo)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	defer pool.Close()

	table, err := s.largestTable(ctx, pool)
	if err != nil {
		return nil, err
	}

	// Identifiers come from the catalog, not the caller, but quote them
	// anyway since table names may need it.
	query := fmt.Sprintf(`SELECT * FROM %q.%q LIMIT %d`, table.schema, table.name, maxRows)
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sample rows from %s.%s: %w", table.schema, table.name, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	snap := &preview.Snapshot{
		SourceID:  src.ID,
		Columns:   columns,
		Rows:      []map[string]any{},
		FetchedAt: time.Now().UTC(),
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read sampled row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		snap.Rows = append(snap.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sampled rows: %w", err)
	}

	s.logger.Debug("sampled source rows",
		zap.Int64("source_id", src.ID),
		zap.String("table", table.schema+"."+table.name),
		zap.Int("rows", len(snap.Rows)))

	return snap, nil
}

type sampledTable struct {
	schema string
	name   string
}

// largestTable picks the table with the highest planner row estimate,
// which is the one a dashboard preview most plausibly wants.
func (s *RowSampler) largestTable(ctx context.Context, pool *pgxpool.Pool) (*sampledTable, error) {
	const query = `
		SELECT n.nspname, c.relname
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind = 'r'
		  AND n.nspname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY c.reltuples DESC, n.nspname, c.relname
		LIMIT 1
	`

	var t sampledTable
	if err := pool.QueryRow(ctx, query).Scan(&t.schema, &t.name); err != nil {
		return nil, fmt.Errorf("find table to sample: %w", err)
	}
	return &t, nil
}

// Ensure RowSampler satisfies the preview fetcher contract.
var _ preview.Fetcher = (*RowSampler)(nil)
