package connector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver for database/sql
	"go.uber.org/zap"
)

// sqlServerConnector discovers schema metadata from a SQL Server source.
type sqlServerConnector struct {
	logger *zap.Logger
}

// NewSQLServerConnector creates a SQL Server connector.
// If logger is nil, a no-op logger is used.
func NewSQLServerConnector(logger *zap.Logger) Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sqlServerConnector{logger: logger}
}

// Connect dials the source database and returns table metadata with
// partition row counts from sys.partitions.
func (c *sqlServerConnector) Connect(ctx context.Context, connectionInfo string) (json.RawMessage, error) {
	db, err := sql.Open("sqlserver", connectionInfo)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}

	const query = `
		SELECT
			s.name AS schema_name,
			t.name AS table_name,
			SUM(p.rows) AS row_count
		FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.partitions p ON p.object_id = t.object_id AND p.index_id IN (0, 1)
		GROUP BY s.name, t.name
		ORDER BY s.name, t.name
	`

	rows, err := db.QueryContext(ctx, query)
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
		meta.Tables = append(meta.Tables, tbl)
		meta.RowCount += tbl.RowCount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	meta.TableCount = len(meta.Tables)

	c.logger.Debug("discovered sqlserver schema",
		zap.Int("tables", meta.TableCount),
		zap.Int64("rows", meta.RowCount))

	out, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal schema metadata: %w", err)
	}
	return out, nil
}
