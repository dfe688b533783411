package services

import (
	"fmt"
	"time"

	"github.com/datapanel-io/datapanel-engine/pkg/models"
)

// StatusLabel is the operational status shown for a source.
type StatusLabel string

const (
	StatusConnected StatusLabel = "connected"
	StatusPaused    StatusLabel = "paused"
	StatusError     StatusLabel = "error"
)

// SourceStatus is the inferred operational status of a source. It is
// computed fresh on every read and never persisted.
type SourceStatus struct {
	Label      StatusLabel `json:"label"`
	IsError    bool        `json:"is_error"`
	Diagnostic string      `json:"diagnostic,omitempty"`
}

// InferStatus derives a source's status from its active flag and the
// age of its last successful sync. There is no live health channel from
// connectors; staleness is the only proxy. A source synced once and
// then never again correctly degrades to Error after the threshold,
// even though no sync attempt failed.
func InferStatus(src *models.Source, now time.Time, staleAfter time.Duration) SourceStatus {
	if !src.IsActive {
		return SourceStatus{Label: StatusPaused}
	}

	if src.UpdatedAt.IsZero() {
		return SourceStatus{
			Label:      StatusError,
			IsError:    true,
			Diagnostic: "never synchronized, verify connection",
		}
	}

	if now.Sub(src.UpdatedAt) > staleAfter {
		days := int(staleAfter.Hours() / 24)
		return SourceStatus{
			Label:      StatusError,
			IsError:    true,
			Diagnostic: fmt.Sprintf("inactive for more than %d days, verify connection", days),
		}
	}

	return SourceStatus{Label: StatusConnected}
}
