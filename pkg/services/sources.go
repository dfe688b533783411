package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/datapanel-io/datapanel-engine/pkg/apperrors"
	"github.com/datapanel-io/datapanel-engine/pkg/logging"
	"github.com/datapanel-io/datapanel-engine/pkg/models"
	"github.com/datapanel-io/datapanel-engine/pkg/repositories"
)

// CreateSourceInput is the validated draft for a new source.
// IsActive defaults to true when nil.
type CreateSourceInput struct {
	Name           string            `json:"name"`
	Type           models.SourceType `json:"type"`
	ConnectionInfo string            `json:"connection_info"`
	IsActive       *bool             `json:"is_active,omitempty"`
}

// DecoratedSource is a registry record enriched for display. Status and
// VolumeLabel are computed fresh on every read and never persisted.
type DecoratedSource struct {
	*models.Source
	Status      SourceStatus `json:"status"`
	VolumeLabel string       `json:"volume_label"`
	Icon        string       `json:"icon"`
	Color       string       `json:"color"`
}

// ListStats aggregates the dashboard header numbers across the listing.
type ListStats struct {
	ActiveCount   int        `json:"active_count"`
	PausedCount   int        `json:"paused_count"`
	ErrorCount    int        `json:"error_count"`
	TotalVolume   string     `json:"total_volume"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	LastSyncLabel string     `json:"last_sync_label"`
}

// SourceListing is the decorated result of ListSources.
type SourceListing struct {
	Sources []DecoratedSource `json:"sources"`
	Stats   ListStats         `json:"stats"`
}

// SnapshotEvicter drops ephemeral preview state for a source. Satisfied
// by the preview snapshot store; deleting a source must not leave its
// snapshot behind.
type SnapshotEvicter interface {
	Evict(sourceID int64)
}

// SourceService defines registry operations over data sources.
type SourceService interface {
	// Create validates and registers a new source.
	Create(ctx context.Context, input CreateSourceInput) (*models.Source, error)

	// Get retrieves a single source without decoration.
	Get(ctx context.Context, id int64) (*models.Source, error)

	// List returns all sources ordered by id, decorated with status and
	// volume labels plus aggregate stats.
	List(ctx context.Context) (*SourceListing, error)

	// Update applies a partial patch under the source's lock.
	Update(ctx context.Context, id int64, patch models.SourcePatch) (*models.Source, error)

	// Delete removes a source permanently and evicts its preview
	// snapshot. In-flight syncs are not cancelled; the orchestrator
	// detects the vanished record on completion.
	Delete(ctx context.Context, id int64) error
}

// sourceService implements SourceService.
type sourceService struct {
	repo       repositories.SourceRepository
	locks      *keyedLocks
	snapshots  SnapshotEvicter
	staleAfter time.Duration
	logger     *zap.Logger
}

// NewSourceService creates a source service. snapshots may be nil when
// no preview store is wired (CLI tools, tests).
func NewSourceService(
	repo repositories.SourceRepository,
	locks *keyedLocks,
	snapshots SnapshotEvicter,
	staleAfter time.Duration,
	logger *zap.Logger,
) SourceService {
	return &sourceService{
		repo:       repo,
		locks:      locks,
		snapshots:  snapshots,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// Create validates and registers a new source. An unknown type is
// accepted; the registry treats types as opaque and only display
// heuristics distinguish them.
func (s *sourceService) Create(ctx context.Context, input CreateSourceInput) (*models.Source, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("source name is required: %w", apperrors.ErrValidation)
	}
	if input.Type == "" {
		return nil, fmt.Errorf("source type is required: %w", apperrors.ErrValidation)
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	src := &models.Source{
		Name:           input.Name,
		Type:           input.Type,
		ConnectionInfo: input.ConnectionInfo,
		IsActive:       active,
	}

	if err := s.repo.Create(ctx, src); err != nil {
		return nil, err
	}

	s.logger.Info("Created source",
		zap.Int64("id", src.ID),
		zap.String("name", src.Name),
		zap.String("type", string(src.Type)),
		zap.String("connection_info", logging.SanitizeConnectionInfo(src.ConnectionInfo)),
	)

	return src, nil
}

// Get retrieves a single source.
func (s *sourceService) Get(ctx context.Context, id int64) (*models.Source, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the decorated listing. The repository hands back fresh
// copies, so no per-id lock is taken: listing never blocks on an
// in-flight sync or edit.
func (s *sourceService) List(ctx context.Context) (*SourceListing, error) {
	sources, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	listing := &SourceListing{
		Sources: make([]DecoratedSource, 0, len(sources)),
		Stats:   ListStats{TotalVolume: TotalVolume(sources)},
	}

	for _, src := range sources {
		status := InferStatus(src, now, s.staleAfter)

		switch status.Label {
		case StatusPaused:
			listing.Stats.PausedCount++
		case StatusError:
			listing.Stats.ErrorCount++
		default:
			listing.Stats.ActiveCount++
		}

		if src.SchemaInfo != nil {
			if listing.Stats.LastSyncAt == nil || src.UpdatedAt.After(*listing.Stats.LastSyncAt) {
				t := src.UpdatedAt
				listing.Stats.LastSyncAt = &t
			}
		}

		listing.Sources = append(listing.Sources, DecoratedSource{
			Source:      src,
			Status:      status,
			VolumeLabel: EstimateVolume(src.Type, src.SchemaInfo),
			Icon:        src.Type.Icon(),
			Color:       src.Type.Color(),
		})
	}

	listing.Stats.LastSyncLabel = lastSyncLabel(listing.Stats.LastSyncAt, now)

	return listing, nil
}

// lastSyncLabel renders the most recent sync time at human scale for
// the dashboard header.
func lastSyncLabel(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}

	age := now.Sub(*t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(age.Hours()/24))
	}
}

// Update applies a partial patch under the source's lock, so an edit
// cannot interleave with a sync completion write on the same record.
func (s *sourceService) Update(ctx context.Context, id int64, patch models.SourcePatch) (*models.Source, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("update patch is empty: %w", apperrors.ErrValidation)
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, fmt.Errorf("source name cannot be blank: %w", apperrors.ErrValidation)
	}
	if patch.Type != nil && *patch.Type == "" {
		return nil, fmt.Errorf("source type cannot be blank: %w", apperrors.ErrValidation)
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	src, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Updated source", zap.Int64("id", id))
	return src, nil
}

// Delete removes a source and its ephemeral preview state.
func (s *sourceService) Delete(ctx context.Context, id int64) error {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.snapshots != nil {
		s.snapshots.Evict(id)
	}

	s.logger.Info("Deleted source", zap.Int64("id", id))
	return nil
}

// Ensure sourceService implements SourceService at compile time.
var _ SourceService = (*sourceService)(nil)
