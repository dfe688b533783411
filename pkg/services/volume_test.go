package services

import (
	"encoding/json"
	"testing"

	"github.com/datapanel-io/datapanel-engine/pkg/models"
)

func TestEstimateVolume(t *testing.T) {
	tests := []struct {
		name       string
		srcType    models.SourceType
		schemaInfo string
		want       string
	}{
		{"millions", models.SourceTypePostgreSQL, `{"row_count": 1500000}`, "1.5M rows"},
		{"thousands", models.SourceTypeMySQL, `{"row_count": 23400}`, "23.4K rows"},
		{"small", models.SourceTypeCSV, `{"row_count": 512}`, "512 rows"},
		{"zero", models.SourceTypeAPI, `{"row_count": 0}`, "0 rows"},
		{"string count", models.SourceTypeMongoDB, `{"row_count": "2000000"}`, "2.0M rows"},
		{"sql dump prefers total_rows", models.SourceTypeSQLDump, `{"total_rows": 3000000, "row_count": 5}`, "3.0M rows"},
		{"sql dump falls back to row_count", models.SourceTypeSQLDump, `{"row_count": 4500}`, "4.5K rows"},
		{"total_rows ignored for others", models.SourceTypePostgreSQL, `{"total_rows": 9000000}`, "Est. 3.4M rows"},
		{"missing metadata", models.SourceTypeCSV, "", "Est. 150K rows"},
		{"unparsable metadata", models.SourceTypeMySQL, `not json`, "Est. 1.2M rows"},
		{"no count field", models.SourceTypeExcel, `{"sheets": 3}`, "Est. 75K rows"},
		{"non-numeric count", models.SourceTypeCloud, `{"row_count": "lots"}`, "Est. 850K rows"},
		{"unknown type no metadata", models.SourceType("graph"), "", "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.schemaInfo != "" {
				raw = json.RawMessage(tt.schemaInfo)
			}
			if got := EstimateVolume(tt.srcType, raw); got != tt.want {
				t.Errorf("EstimateVolume(%s, %s) = %q, want %q", tt.srcType, tt.schemaInfo, got, tt.want)
			}
		})
	}
}

func TestEstimateVolumeIdempotent(t *testing.T) {
	raw := json.RawMessage(`{"row_count": 777000}`)
	first := EstimateVolume(models.SourceTypePostgreSQL, raw)
	second := EstimateVolume(models.SourceTypePostgreSQL, raw)
	if first != second {
		t.Errorf("repeated estimates differ: %q vs %q", first, second)
	}
}

func TestTotalVolume(t *testing.T) {
	sources := []*models.Source{
		{Type: models.SourceTypePostgreSQL, SchemaInfo: json.RawMessage(`{"row_count": 1000000}`)},
		{Type: models.SourceTypeMySQL, SchemaInfo: json.RawMessage(`{"row_count": 500000}`)},
		{Type: models.SourceTypeCSV},                                              // no metadata, contributes zero
		{Type: models.SourceTypeAPI, SchemaInfo: json.RawMessage(`{"bad": true}`)}, // no count, contributes zero
	}

	if got := TotalVolume(sources); got != "1.5M rows" {
		t.Errorf("TotalVolume = %q, want %q", got, "1.5M rows")
	}
}

func TestTotalVolumeEmpty(t *testing.T) {
	if got := TotalVolume(nil); got != "0 rows" {
		t.Errorf("TotalVolume(nil) = %q, want %q", got, "0 rows")
	}

	unparsable := []*models.Source{{Type: models.SourceTypeMySQL, SchemaInfo: json.RawMessage(`x`)}}
	if got := TotalVolume(unparsable); got != "0 rows" {
		t.Errorf("TotalVolume(unparsable) = %q, want %q", got, "0 rows")
	}
}
