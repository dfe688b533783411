package models

import (
	"encoding/json"
	"time"
)

// SourceType tags a data source with the external system it fronts.
// The registry treats unknown types as opaque; only display heuristics
// (icon, color, fallback volume) care about the closed set below.
type SourceType string

const (
	SourceTypeMySQL      SourceType = "mysql"
	SourceTypePostgreSQL SourceType = "postgresql"
	SourceTypeSQLServer  SourceType = "sqlserver"
	SourceTypeMongoDB    SourceType = "mongodb"
	SourceTypeCloud      SourceType = "cloud"
	SourceTypeAPI        SourceType = "api"
	SourceTypeCSV        SourceType = "csv"
	SourceTypeExcel      SourceType = "excel"
	SourceTypeSQLDump    SourceType = "sql"
)

// Source represents a registered external data source.
// ConnectionInfo is an opaque blob owned by the connector layer; the
// registry never parses it. SchemaInfo is written only by a successful
// sync and consumed read-only by the volume estimator.
type Source struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Type           SourceType      `json:"type"`
	ConnectionInfo string          `json:"connection_info,omitempty"`
	SchemaInfo     json.RawMessage `json:"schema_info,omitempty"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// SourcePatch carries a partial update. Nil fields are left untouched;
// every applied patch bumps UpdatedAt.
type SourcePatch struct {
	Name           *string     `json:"name,omitempty"`
	Type           *SourceType `json:"type,omitempty"`
	ConnectionInfo *string     `json:"connection_info,omitempty"`
	IsActive       *bool       `json:"is_active,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p SourcePatch) IsEmpty() bool {
	return p.Name == nil && p.Type == nil && p.ConnectionInfo == nil && p.IsActive == nil
}

// sourceTypeInfo holds the per-type display heuristics. Kept as one table
// so a new type cannot pick up an icon without also declaring its
// fallback volume.
type sourceTypeInfo struct {
	icon           string
	color          string
	fallbackVolume string
}

var sourceTypeTable = map[SourceType]sourceTypeInfo{
	SourceTypeMySQL:      {icon: "database", color: "blue", fallbackVolume: "Est. 1.2M rows"},
	SourceTypePostgreSQL: {icon: "server", color: "indigo", fallbackVolume: "Est. 3.4M rows"},
	SourceTypeSQLServer:  {icon: "hard-drive", color: "gray", fallbackVolume: "Est. 2.1M rows"},
	SourceTypeMongoDB:    {icon: "database", color: "green", fallbackVolume: "Est. 5.8M docs"},
	SourceTypeCloud:      {icon: "cloud", color: "sky", fallbackVolume: "Est. 850K rows"},
	SourceTypeAPI:        {icon: "cloud", color: "purple", fallbackVolume: "Est. 420K rows"},
	SourceTypeCSV:        {icon: "file-text", color: "orange", fallbackVolume: "Est. 150K rows"},
	SourceTypeExcel:      {icon: "file-text", color: "emerald", fallbackVolume: "Est. 75K rows"},
	SourceTypeSQLDump:    {icon: "file-code", color: "slate", fallbackVolume: "Est. 500K rows"},
}

// Icon returns the display icon name for the type, defaulting for
// unknown types instead of relying on a missing-key zero value.
func (t SourceType) Icon() string {
	if info, ok := sourceTypeTable[t]; ok {
		return info.icon
	}
	return "database"
}

// Color returns the display color for the type.
func (t SourceType) Color() string {
	if info, ok := sourceTypeTable[t]; ok {
		return info.color
	}
	return "gray"
}

// FallbackVolume returns the canned volume estimate used when
// schema_info is missing or unparsable. Unknown types get "N/A".
func (t SourceType) FallbackVolume() string {
	if info, ok := sourceTypeTable[t]; ok {
		return info.fallbackVolume
	}
	return "N/A"
}

// Known reports whether the type is in the registered set. Creation with
// an unknown type still succeeds; callers use this only for display.
func (t SourceType) Known() bool {
	_, ok := sourceTypeTable[t]
	return ok
}
