package connector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// postgresConnector discovers schema metadata from a PostgreSQL source.
type postgresConnector struct {
	logger *zap.Logger
}

// NewPostgresConnector creates a PostgreSQL connector.
// If logger is nil, a no-op logger is used.
func NewPostgresConnector(logger *zap.Logger) Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresConnector{logger: logger}
}

// Connect dials the source database and returns table metadata with
// planner row estimates. reltuples is an estimate, not an exact count;
// exact counts would require scanning every table.
func (c *postgresConnector) Connect(ctx context.Context, connectionInfo string) (json.RawMessage, error) {
	pool, err := pgxpool.New(ctx, connectionInfo)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	const query = `
		SELECT
			t.table_schema,
			t.table_name,
			COALESCE(c.reltuples::bigint, 0) AS row_count
		FROM information_schema.tables t
		LEFT JOIN pg_class c ON c.relname = t.table_name
		LEFT JOIN pg_namespace n ON n.oid = c.relnamespace AND n.nspname = t.table_schema
		WHERE t.table_type = 'BASE TABLE'
		  AND t.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY t.table_schema, t.table_name
	`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	meta := SchemaMetadata{Tables: []TableMetadata{}}
	for rows.Next() {
		var tbl TableMetadata
		if err := rows.Scan(&tbl.Schema, &tbl.Name, &tbl.RowCount); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		// Planner estimates report -1 for never-analyzed tables.
		if tbl.RowCount < 0 {
			tbl.RowCount = 0
		}
		meta.Tables = append(meta.Tables, tbl)
		meta.RowCount += tbl.RowCount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	meta.TableCount = len(meta.Tables)

	c.logger.Debug("discovered postgres schema",
		zap.Int("tables", meta.TableCount),
		zap.Int64("estimated_rows", meta.RowCount))

	out, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal schema metadata: %w", err)
	}
	return out, nil
}
