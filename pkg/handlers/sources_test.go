package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/datapanel-io/datapanel-engine/pkg/apperrors"
	"github.com/datapanel-io/datapanel-engine/pkg/models"
	"github.com/datapanel-io/datapanel-engine/pkg/preview"
	"github.com/datapanel-io/datapanel-engine/pkg/services"
)

// stubSourceService is a canned SourceService for handler tests.
type stubSourceService struct {
	source  *models.Source
	listing *services.SourceListing
	err     error
}

func (s *stubSourceService) Create(ctx context.Context, input services.CreateSourceInput) (*models.Source, error) {
	return s.source, s.err
}

func (s *stubSourceService) Get(ctx context.Context, id int64) (*models.Source, error) {
	return s.source, s.err
}

func (s *stubSourceService) List(ctx context.Context) (*services.SourceListing, error) {
	return s.listing, s.err
}

func (s *stubSourceService) Update(ctx context.Context, id int64, patch models.SourcePatch) (*models.Source, error) {
	return s.source, s.err
}

func (s *stubSourceService) Delete(ctx context.Context, id int64) error {
	return s.err
}

// stubOrchestrator is a canned SyncOrchestrator for handler tests.
type stubOrchestrator struct {
	status *models.SyncJobStatus
	err    error
}

func (s *stubOrchestrator) StartSync(ctx context.Context, sourceID int64) (*models.SyncJobStatus, error) {
	return s.status, s.err
}

func (s *stubOrchestrator) PollSync(sourceID int64) (*models.SyncJobStatus, error) {
	return s.status, s.err
}

func newTestHandler(sources services.SourceService, orch services.SyncOrchestrator, previews *preview.Service) *http.ServeMux {
	if previews == nil {
		previews = preview.NewService(preview.NewStore(100), nil, 100, 10, zap.NewNop())
	}
	mux := http.NewServeMux()
	NewSourcesHandler(sources, orch, previews, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func testSource() *models.Source {
	now := time.Now().UTC()
	return &models.Source{
		ID: 1, Name: "orders", Type: models.SourceTypePostgreSQL,
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
}

func TestListSourcesHandler(t *testing.T) {
	listing := &services.SourceListing{
		Sources: []services.DecoratedSource{{
			Source:      testSource(),
			Status:      services.SourceStatus{Label: services.StatusConnected},
			VolumeLabel: "1.5M rows",
			Icon:        "server",
			Color:       "indigo",
		}},
		Stats: services.ListStats{ActiveCount: 1, TotalVolume: "1.5M rows"},
	}
	mux := newTestHandler(&stubSourceService{listing: listing}, &stubOrchestrator{}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sources", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got services.SourceListing
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Sources) != 1 || got.Sources[0].VolumeLabel != "1.5M rows" {
		t.Errorf("unexpected listing: %+v", got)
	}
	if got.Stats.TotalVolume != "1.5M rows" {
		t.Errorf("stats.TotalVolume = %q", got.Stats.TotalVolume)
	}
}

func TestCreateSourceHandler(t *testing.T) {
	mux := newTestHandler(&stubSourceService{source: testSource()}, &stubOrchestrator{}, nil)

	body := bytes.NewBufferString(`{"name": "orders", "type": "postgresql"}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sources", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
}

func TestCreateSourceHandlerBadJSON(t *testing.T) {
	mux := newTestHandler(&stubSourceService{}, &stubOrchestrator{}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sources", bytes.NewBufferString("{")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSourceIDValidation(t *testing.T) {
	mux := newTestHandler(&stubSourceService{source: testSource()}, &stubOrchestrator{}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sources/abc", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", fmt.Errorf("name required: %w", apperrors.ErrValidation), http.StatusBadRequest, "validation_failed"},
		{"not found", fmt.Errorf("source 1: %w", apperrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{"internal", fmt.Errorf("connection pool exhausted"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestHandler(&stubSourceService{err: tt.err}, &stubOrchestrator{}, nil)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sources/1", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body["error"] != tt.wantCode {
				t.Errorf("error code = %q, want %q", body["error"], tt.wantCode)
			}
		})
	}
}

func TestStartSyncHandler(t *testing.T) {
	status := &models.SyncJobStatus{
		JobID: "7f9c24e5-1351-4b4a-a6c1-3f5a9e2b8d70", SourceID: 1,
		State: models.SyncStateRunning, StartedAt: time.Now(),
	}
	mux := newTestHandler(&stubSourceService{source: testSource()}, &stubOrchestrator{status: status}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sources/1/sync", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	var got models.SyncJobStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.JobID != status.JobID || got.State != models.SyncStateRunning {
		t.Errorf("unexpected job status: %+v", got)
	}
}

func TestStartSyncHandlerConflict(t *testing.T) {
	orch := &stubOrchestrator{err: fmt.Errorf("source 1: %w", apperrors.ErrAlreadyRunning)}
	mux := newTestHandler(&stubSourceService{source: testSource()}, orch, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sources/1/sync", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestPollSyncHandlerNoJob(t *testing.T) {
	orch := &stubOrchestrator{err: fmt.Errorf("source 1: %w", apperrors.ErrNoSuchJob)}
	mux := newTestHandler(&stubSourceService{source: testSource()}, orch, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sources/1/sync", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["error"] != "no_such_job" {
		t.Errorf("error code = %q, want no_such_job", body["error"])
	}
}

func TestPreviewHandler(t *testing.T) {
	store := preview.NewStore(100)
	store.Put(&preview.Snapshot{
		SourceID: 1,
		Columns:  []string{"id", "name"},
		Rows: []map[string]any{
			{"id": 1, "name": "alpha"},
			{"id": 2, "name": "beta"},
			{"id": 3, "name": "gamma"},
		},
		FetchedAt: time.Now(),
	})
	previews := preview.NewService(store, nil, 100, 10, zap.NewNop())
	mux := newTestHandler(&stubSourceService{source: testSource()}, &stubOrchestrator{}, previews)

	body := bytes.NewBufferString(`{"mode": "first", "count": 2}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sources/1/preview", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var got preview.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Rows) != 2 || got.TotalRows != 3 {
		t.Errorf("unexpected preview result: %+v", got)
	}
}

func TestPreviewHandlerNoSnapshot(t *testing.T) {
	mux := newTestHandler(&stubSourceService{source: testSource()}, &stubOrchestrator{}, nil)

	body := bytes.NewBufferString(`{"mode": "first", "count": 2}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sources/1/preview", body))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var respBody map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &respBody); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if respBody["error"] != "no_snapshot" {
		t.Errorf("error code = %q, want no_snapshot", respBody["error"])
	}
}

func TestPreviewHandlerBadSpec(t *testing.T) {
	store := preview.NewStore(100)
	store.Put(&preview.Snapshot{SourceID: 1, Columns: []string{"id"}, Rows: []map[string]any{{"id": 1}}})
	previews := preview.NewService(store, nil, 100, 10, zap.NewNop())
	mux := newTestHandler(&stubSourceService{source: testSource()}, &stubOrchestrator{}, previews)

	body := bytes.NewBufferString(`{"mode": "range", "start": 9, "end": 2}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sources/1/preview", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
