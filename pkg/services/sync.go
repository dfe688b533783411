package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datapanel-io/datapanel-engine/pkg/adapters/connector"
	"github.com/datapanel-io/datapanel-engine/pkg/apperrors"
	"github.com/datapanel-io/datapanel-engine/pkg/config"
	"github.com/datapanel-io/datapanel-engine/pkg/logging"
	"github.com/datapanel-io/datapanel-engine/pkg/models"
	"github.com/datapanel-io/datapanel-engine/pkg/repositories"
)

// SyncOrchestrator drives synchronization runs. Jobs are in-memory
// only: at most one live job per source id, retained for a short
// display-grace window after completion, gone on restart.
type SyncOrchestrator interface {
	// StartSync launches a sync for the source. Fails with
	// apperrors.ErrAlreadyRunning while a live job exists for the id
	// (including the grace window), or apperrors.ErrNotFound for an
	// unknown source. Connector failures are never returned here; they
	// surface through PollSync on the job.
	//
	// ctx governs the connector call: cancel it and the job finalizes
	// as Failed rather than hanging. HTTP callers should pass a
	// context detached from the request so the run outlives the
	// response.
	StartSync(ctx context.Context, sourceID int64) (*models.SyncJobStatus, error)

	// PollSync returns the current state of the live job for the
	// source, or apperrors.ErrNoSuchJob once the grace window expired.
	PollSync(sourceID int64) (*models.SyncJobStatus, error)
}

// syncJob is the mutable runtime state behind a SyncJobStatus.
type syncJob struct {
	mu     sync.Mutex
	status models.SyncJobStatus
}

func (j *syncJob) snapshot() *models.SyncJobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.status
	return &s
}

// advanceProgress raises progress toward the ceiling. Progress is
// monotonic and never moves once the job is terminal.
func (j *syncJob) advanceProgress(step, ceiling int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.State != models.SyncStateRunning {
		return
	}
	next := j.status.Progress + step
	if next > ceiling {
		next = ceiling
	}
	if next > j.status.Progress {
		j.status.Progress = next
	}
}

func (j *syncJob) finalize(state models.SyncJobState, progress int, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.State.Terminal() {
		return
	}
	now := time.Now()
	j.status.State = state
	j.status.Message = message
	j.status.FinishedAt = &now
	if progress > j.status.Progress {
		j.status.Progress = progress
	}
}

// syncOrchestrator implements SyncOrchestrator.
type syncOrchestrator struct {
	repo       repositories.SourceRepository
	connectors connector.Factory
	locks      *keyedLocks
	cfg        config.SyncConfig
	logger     *zap.Logger

	mu   sync.Mutex
	jobs map[int64]*syncJob
}

// NewSyncOrchestrator creates a sync orchestrator. The locks table must
// be the same instance the source service uses, so completion writes
// and registry edits serialize per id.
func NewSyncOrchestrator(
	repo repositories.SourceRepository,
	connectors connector.Factory,
	locks *keyedLocks,
	cfg config.SyncConfig,
	logger *zap.Logger,
) SyncOrchestrator {
	return &syncOrchestrator{
		repo:       repo,
		connectors: connectors,
		locks:      locks,
		cfg:        cfg,
		logger:     logger,
		jobs:       make(map[int64]*syncJob),
	}
}

// StartSync registers the job and launches the run.
func (o *syncOrchestrator) StartSync(ctx context.Context, sourceID int64) (*models.SyncJobStatus, error) {
	src, err := o.repo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if _, exists := o.jobs[sourceID]; exists {
		o.mu.Unlock()
		return nil, fmt.Errorf("source %d: %w", sourceID, apperrors.ErrAlreadyRunning)
	}
	job := &syncJob{status: models.SyncJobStatus{
		JobID:     uuid.New().String(),
		SourceID:  sourceID,
		State:     models.SyncStateRunning,
		StartedAt: time.Now(),
	}}
	o.jobs[sourceID] = job
	o.mu.Unlock()

	o.logger.Info("Sync started",
		zap.Int64("source_id", sourceID),
		zap.String("job_id", job.status.JobID),
		zap.String("type", string(src.Type)))

	go o.run(ctx, src, job)

	return job.snapshot(), nil
}

// PollSync returns the live job for the source id.
func (o *syncOrchestrator) PollSync(sourceID int64) (*models.SyncJobStatus, error) {
	o.mu.Lock()
	job, ok := o.jobs[sourceID]
	o.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("source %d: %w", sourceID, apperrors.ErrNoSuchJob)
	}
	return job.snapshot(), nil
}

// run executes one sync: progress ticks toward the ceiling while the
// connector works, then the result is written back under the source's
// lock. Failed runs leave the registry record untouched.
func (o *syncOrchestrator) run(ctx context.Context, src *models.Source, job *syncJob) {
	defer o.scheduleExpiry(src.ID, job)

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout())
	defer cancel()

	conn, err := o.connectors.New(src.Type)
	if err != nil {
		// Reported verbatim, same as any connector failure.
		o.fail(src.ID, job, err.Error())
		return
	}

	stopTicks := o.tickProgress(job)
	schemaInfo, connErr := conn.Connect(runCtx, src.ConnectionInfo)
	stopTicks()

	if connErr != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			o.fail(src.ID, job, fmt.Sprintf("%s (%s)", apperrors.ErrSyncTimeout.Error(), o.cfg.Timeout()))
		case errors.Is(runCtx.Err(), context.Canceled):
			o.fail(src.ID, job, "sync canceled by caller")
		default:
			// Connector errors pass through verbatim. No automatic
			// retry: the user issues a fresh StartSync.
			o.fail(src.ID, job, logging.SanitizeError(connErr))
		}
		return
	}

	// The completion write uses its own context: the run already
	// succeeded and the write must not be lost to a late cancellation.
	writeCtx, cancelWrite := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelWrite()

	o.locks.Lock(src.ID)
	err = o.repo.RecordSyncResult(writeCtx, src.ID, schemaInfo, time.Now().UTC())
	o.locks.Unlock(src.ID)

	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Deleted mid-sync: reported distinctly from a connector
			// failure so operators can tell the two apart.
			o.fail(src.ID, job, apperrors.ErrSourceRemoved.Error())
			return
		}
		o.fail(src.ID, job, fmt.Sprintf("failed to record sync result: %v", err))
		return
	}

	job.finalize(models.SyncStateSucceeded, 100, "schema metadata refreshed")
	o.logger.Info("Sync succeeded", zap.Int64("source_id", src.ID))
}

// tickProgress advances the job toward the ceiling until the returned
// stop function is called. Progress reflects a real in-flight connector
// call; 100 is only ever set by actual completion.
func (o *syncOrchestrator) tickProgress(job *syncJob) (stop func()) {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(o.cfg.ProgressInterval())
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				job.advanceProgress(5, o.cfg.ProgressCeiling)
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

func (o *syncOrchestrator) fail(sourceID int64, job *syncJob, message string) {
	job.finalize(models.SyncStateFailed, 0, message)
	o.logger.Warn("Sync failed",
		zap.Int64("source_id", sourceID),
		zap.String("reason", message))
}

// scheduleExpiry discards the job after the display-grace window, at
// which point PollSync reports NoSuchJob and the id accepts a new sync.
func (o *syncOrchestrator) scheduleExpiry(sourceID int64, job *syncJob) {
	time.AfterFunc(o.cfg.Grace(), func() {
		o.mu.Lock()
		if o.jobs[sourceID] == job {
			delete(o.jobs, sourceID)
		}
		o.mu.Unlock()
	})
}

// Ensure syncOrchestrator implements SyncOrchestrator at compile time.
var _ SyncOrchestrator = (*syncOrchestrator)(nil)
