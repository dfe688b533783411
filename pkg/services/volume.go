package services

import (
	"encoding/json"
	"fmt"

	"github.com/datapanel-io/datapanel-engine/pkg/jsonutil"
	"github.com/datapanel-io/datapanel-engine/pkg/models"
)

// EstimateVolume derives a human-scale volume label from a source's
// schema metadata. Metadata that fails to parse, or that carries no row
// count, degrades to the per-type fallback table rather than an error:
// display continuity matters more than strict correctness here.
func EstimateVolume(srcType models.SourceType, schemaInfo json.RawMessage) string {
	if n, ok := rowCountFromSchema(srcType, schemaInfo); ok {
		return formatRowCount(n)
	}
	return srcType.FallbackVolume()
}

// TotalVolume sums row counts across all sources whose metadata parsed
// successfully. Non-parsing sources contribute zero, not an error.
func TotalVolume(sources []*models.Source) string {
	var total int64
	for _, src := range sources {
		if n, ok := rowCountFromSchema(src.Type, src.SchemaInfo); ok {
			total += n
		}
	}
	return formatRowCount(total)
}

// rowCountFromSchema extracts the row count from opaque schema
// metadata. SQL dump imports record total_rows across all statements
// with a per-table row_count fallback; every other connector writes
// row_count directly.
func rowCountFromSchema(srcType models.SourceType, schemaInfo json.RawMessage) (int64, bool) {
	if len(schemaInfo) == 0 {
		return 0, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(schemaInfo, &fields); err != nil {
		return 0, false
	}

	if srcType == models.SourceTypeSQLDump {
		if n, ok := jsonutil.FlexibleInt64Value(fields["total_rows"]); ok {
			return n, true
		}
	}

	return jsonutil.FlexibleInt64Value(fields["row_count"])
}

// formatRowCount renders a count at human scale: 1.5M, 23.4K, or the
// raw number below a thousand.
func formatRowCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM rows", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK rows", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d rows", n)
	}
}
