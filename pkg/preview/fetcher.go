package preview

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/datapanel-io/datapanel-engine/pkg/apperrors"
	"github.com/datapanel-io/datapanel-engine/pkg/logging"
	"github.com/datapanel-io/datapanel-engine/pkg/models"
)

// Fetcher materializes a bounded snapshot for a source. Implementations
// talk to the source's backing store and return at most maxRows rows.
type Fetcher interface {
	Fetch(ctx context.Context, source *models.Source, maxRows int) (*Snapshot, error)
}

// Service answers preview requests against cached snapshots, fetching a
// snapshot on first use. Rendering itself is pure; all the state lives
// in the store.
type Service struct {
	store        *Store
	fetcher      Fetcher
	maxRows      int
	defaultCount int
	logger       *zap.Logger
}

// NewService creates a preview service. fetcher may be nil, in which
// case only pre-populated snapshots can be previewed. defaultCount is
// the window size applied when a first/last spec omits the count.
func NewService(store *Store, fetcher Fetcher, maxRows, defaultCount int, logger *zap.Logger) *Service {
	return &Service{
		store:        store,
		fetcher:      fetcher,
		maxRows:      maxRows,
		defaultCount: defaultCount,
		logger:       logger,
	}
}

// Preview renders the spec against the source's snapshot. The first
// call per source fetches and caches the snapshot; later calls reuse it
// unchanged, so repeated requests with the same spec are deterministic.
func (s *Service) Preview(ctx context.Context, src *models.Source, spec Spec) (*Result, error) {
	if (spec.Mode == ModeFirst || spec.Mode == ModeLast) && spec.Count == 0 {
		spec.Count = s.defaultCount
	}

	snap, ok := s.store.Get(src.ID)
	if !ok {
		var err error
		snap, err = s.fetch(ctx, src)
		if err != nil {
			return nil, err
		}
	}
	return Render(snap, spec)
}

func (s *Service) fetch(ctx context.Context, src *models.Source) (*Snapshot, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("source %d: %w", src.ID, apperrors.ErrNoSnapshot)
	}

	snap, err := s.fetcher.Fetch(ctx, src, s.maxRows)
	if err != nil {
		s.logger.Warn("Snapshot fetch failed",
			zap.Int64("source_id", src.ID),
			zap.String("reason", logging.SanitizeError(err)))
		return nil, fmt.Errorf("%s: %w", logging.SanitizeError(err), apperrors.ErrNoSnapshot)
	}

	s.store.Put(snap)
	s.logger.Info("Snapshot cached",
		zap.Int64("source_id", src.ID),
		zap.Int("rows", len(snap.Rows)))
	return snap, nil
}
