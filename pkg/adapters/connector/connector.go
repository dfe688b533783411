package connector

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/datapanel-io/datapanel-engine/pkg/models"
)

// Connector refreshes schema metadata for one source type. The
// connection blob is opaque to the rest of the engine; only the
// connector for the matching type ever interprets it.
type Connector interface {
	// Connect dials the external system and returns its schema metadata
	// as an opaque JSON document. The caller owns timeout and
	// cancellation through ctx.
	Connect(ctx context.Context, connectionInfo string) (json.RawMessage, error)
}

// Factory creates connectors by source type.
type Factory interface {
	// New returns the connector registered for the given type, or an
	// error naming the unsupported type.
	New(srcType models.SourceType) (Connector, error)

	// Types returns all registered connector types.
	Types() []models.SourceType
}

type registryFactory struct {
	connectors map[models.SourceType]Connector
}

// NewFactory returns a factory with the built-in connectors registered:
// postgresql (pgx) and sqlserver (go-mssqldb). File-backed and API
// types have no connector here; syncing them fails with a connector
// error until one is registered.
func NewFactory(logger *zap.Logger) Factory {
	return &registryFactory{
		connectors: map[models.SourceType]Connector{
			models.SourceTypePostgreSQL: NewPostgresConnector(logger),
			models.SourceTypeSQLServer:  NewSQLServerConnector(logger),
		},
	}
}

func (f *registryFactory) New(srcType models.SourceType) (Connector, error) {
	c, ok := f.connectors[srcType]
	if !ok {
		return nil, fmt.Errorf("no connector registered for source type %q", srcType)
	}
	return c, nil
}

func (f *registryFactory) Types() []models.SourceType {
	types := make([]models.SourceType, 0, len(f.connectors))
	for t := range f.connectors {
		types = append(types, t)
	}
	return types
}

// Ensure registryFactory implements Factory at compile time.
var _ Factory = (*registryFactory)(nil)

// SchemaMetadata is the document shape the built-in connectors produce.
// Consumers treat it as opaque JSON; the struct exists so connectors
// agree on field names (the volume estimator reads row_count).
type SchemaMetadata struct {
	Tables     []TableMetadata `json:"tables"`
	TableCount int             `json:"table_count"`
	RowCount   int64           `json:"row_count"`
}

// TableMetadata describes one discovered table.
type TableMetadata struct {
	Schema   string `json:"schema"`
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}
