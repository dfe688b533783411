package preview

import (
	"fmt"
	"strings"
	"time"

	"github.com/datapanel-io/datapanel-engine/pkg/apperrors"
)

// Mode selects which window of the snapshot a preview shows.
type Mode string

const (
	ModeFirst Mode = "first"
	ModeLast  Mode = "last"
	ModeRange Mode = "range"
)

// Spec is a caller-supplied windowing and filtering request. It is
// ephemeral; nothing about it is persisted.
type Spec struct {
	Mode  Mode `json:"mode"`
	Count int  `json:"count,omitempty"` // for first/last
	Start int  `json:"start,omitempty"` // for range, inclusive
	End   int  `json:"end,omitempty"`   // for range, inclusive

	// VisibleColumns restricts output to a subset of the snapshot's
	// columns. Empty means all columns.
	VisibleColumns []string `json:"visible_columns,omitempty"`

	// SearchTerm keeps only rows where some visible column's
	// stringified value contains the term, case-insensitively.
	SearchTerm string `json:"search_term,omitempty"`
}

// Snapshot is a materialized, bounded row set fetched once by a
// collaborator and queried repeatedly. Columns preserves the source's
// column order.
type Snapshot struct {
	SourceID  int64            `json:"source_id"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// Row is one rendered preview row. Index is the row's position in the
// original snapshot, not in the filtered output, so a displayed row can
// be correlated back to its source offset.
type Row struct {
	Index  int            `json:"index"`
	Values map[string]any `json:"values"`
}

// Result is the rendered preview.
type Result struct {
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
	TotalRows int      `json:"total_rows"` // snapshot size before windowing
}

// Render applies the spec to the snapshot in a fixed order: window,
// then column selection, then search filter. Deterministic: same
// snapshot and spec always produce the same output.
func Render(snap *Snapshot, spec Spec) (*Result, error) {
	if err := validate(spec); err != nil {
		return nil, err
	}

	start, end := window(spec, len(snap.Rows))
	columns := visibleColumns(snap.Columns, spec.VisibleColumns)

	term := strings.ToLower(spec.SearchTerm)
	rows := make([]Row, 0, end-start)
	for i := start; i < end; i++ {
		values := make(map[string]any, len(columns))
		for _, col := range columns {
			if v, ok := snap.Rows[i][col]; ok {
				values[col] = v
			}
		}
		if term != "" && !rowMatches(values, columns, term) {
			continue
		}
		rows = append(rows, Row{Index: i, Values: values})
	}

	return &Result{
		Columns:   columns,
		Rows:      rows,
		TotalRows: len(snap.Rows),
	}, nil
}

func validate(spec Spec) error {
	switch spec.Mode {
	case ModeFirst, ModeLast:
		if spec.Count < 0 {
			return fmt.Errorf("count must not be negative: %w", apperrors.ErrValidation)
		}
	case ModeRange:
		if spec.Start > spec.End {
			return fmt.Errorf("range start %d exceeds end %d: %w", spec.Start, spec.End, apperrors.ErrValidation)
		}
		if spec.Start < 0 {
			return fmt.Errorf("range start must not be negative: %w", apperrors.ErrValidation)
		}
	default:
		return fmt.Errorf("unknown preview mode %q: %w", spec.Mode, apperrors.ErrValidation)
	}
	return nil
}

// window returns the half-open [start, end) slice bounds for the mode,
// clamped to the snapshot.
func window(spec Spec, n int) (int, int) {
	switch spec.Mode {
	case ModeFirst:
		end := spec.Count
		if end > n {
			end = n
		}
		return 0, end
	case ModeLast:
		start := n - spec.Count
		if start < 0 {
			start = 0
		}
		return start, n
	default: // ModeRange, validated above
		start := spec.Start
		if start > n {
			start = n
		}
		end := spec.End + 1
		if end > n {
			end = n
		}
		return start, end
	}
}

// visibleColumns intersects the requested columns with the snapshot's,
// preserving the snapshot's original order. Empty request means all.
func visibleColumns(snapshot, requested []string) []string {
	if len(requested) == 0 {
		out := make([]string, len(snapshot))
		copy(out, snapshot)
		return out
	}

	want := make(map[string]struct{}, len(requested))
	for _, col := range requested {
		want[col] = struct{}{}
	}

	out := make([]string, 0, len(requested))
	for _, col := range snapshot {
		if _, ok := want[col]; ok {
			out = append(out, col)
		}
	}
	return out
}

func rowMatches(values map[string]any, columns []string, lowerTerm string) bool {
	for _, col := range columns {
		v, ok := values[col]
		if !ok || v == nil {
			continue
		}
		if strings.Contains(strings.ToLower(fmt.Sprintf("%v", v)), lowerTerm) {
			return true
		}
	}
	return false
}
