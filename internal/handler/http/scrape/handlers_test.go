package scrape_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	handler "github.com/WilliamHoest/trackanything-admin/internal/handler/http/scrape"
	scrapeUC "github.com/WilliamHoest/trackanything-admin/internal/usecase/scrape"
)

type stubService struct {
	report   *scrapeUC.Report
	runErr   error
	startErr error

	ranID     int64
	startedID int64
}

func (s *stubService) StartBrand(_ context.Context, brandID int64) error {
	s.startedID = brandID
	return s.startErr
}

func (s *stubService) RunBrand(_ context.Context, brandID int64) (*scrapeUC.Report, error) {
	s.ranID = brandID
	return s.report, s.runErr
}

func TestTriggerHandler_SyncRunReturnsReport(t *testing.T) {
	started := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	stub := &stubService{report: &scrapeUC.Report{
		RunID:           "b7-deadbeef",
		BrandID:         7,
		Status:          scrapeUC.StatusSuccess,
		CandidatesFound: 12,
		MentionsCreated: 4,
		StartedAt:       started,
		Duration:        3 * time.Second,
	}}
	h := handler.TriggerHandler{Svc: stub}

	req := httptest.NewRequest(http.MethodPost, "/scrape/brand/7", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	if stub.ranID != 7 {
		t.Errorf("ran brand = %d, want 7", stub.ranID)
	}

	var body handler.ReportDTO
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.RunID != "b7-deadbeef" {
		t.Errorf("RunID = %q, want %q", body.RunID, "b7-deadbeef")
	}
	if body.Status != scrapeUC.StatusSuccess {
		t.Errorf("Status = %q, want %q", body.Status, scrapeUC.StatusSuccess)
	}
	if body.MentionsCreated != 4 {
		t.Errorf("MentionsCreated = %d, want 4", body.MentionsCreated)
	}
	if body.DurationMS != 3000 {
		t.Errorf("DurationMS = %d, want 3000", body.DurationMS)
	}
}

func TestTriggerHandler_BackgroundReturnsAccepted(t *testing.T) {
	stub := &stubService{}
	h := handler.TriggerHandler{Svc: stub}

	req := httptest.NewRequest(http.MethodPost, "/scrape/brand/7?background=true", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusAccepted)
	}
	if stub.startedID != 7 {
		t.Errorf("started brand = %d, want 7", stub.startedID)
	}
	if stub.ranID != 0 {
		t.Errorf("RunBrand called synchronously for background request")
	}

	var body handler.AcceptedDTO
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "accepted" {
		t.Errorf("Status = %q, want %q", body.Status, "accepted")
	}
}

func TestTriggerHandler_LockedConflictCarriesStartedAt(t *testing.T) {
	held := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	stub := &stubService{startErr: &scrapeUC.LockedError{StartedAt: held}}
	h := handler.TriggerHandler{Svc: stub}

	req := httptest.NewRequest(http.MethodPost, "/scrape/brand/7?background=true", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusConflict)
	}

	var body handler.ConflictDTO
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.StartedAt == nil || !body.StartedAt.Equal(held) {
		t.Errorf("StartedAt = %v, want %v", body.StartedAt, held)
	}
}

func TestTriggerHandler_SyncLockedCarriesStartedAt(t *testing.T) {
	held := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	stub := &stubService{runErr: &scrapeUC.LockedError{StartedAt: held}}
	h := handler.TriggerHandler{Svc: stub}

	req := httptest.NewRequest(http.MethodPost, "/scrape/brand/7", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusConflict)
	}

	var body handler.ConflictDTO
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.StartedAt == nil || !body.StartedAt.Equal(held) {
		t.Errorf("StartedAt = %v, want %v", body.StartedAt, held)
	}
}

func TestTriggerHandler_SyncLockedWithoutStartTime(t *testing.T) {
	stub := &stubService{runErr: scrapeUC.ErrLocked}
	h := handler.TriggerHandler{Svc: stub}

	req := httptest.NewRequest(http.MethodPost, "/scrape/brand/7", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusConflict)
	}

	var body handler.ConflictDTO
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.StartedAt != nil {
		t.Errorf("StartedAt = %v, want omitted", body.StartedAt)
	}
}

func TestTriggerHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "unknown brand", err: entity.ErrNotFound, wantCode: http.StatusNotFound},
		{name: "inactive brand", err: entity.ErrBrandInactive, wantCode: http.StatusConflict},
		{name: "pipeline failure", err: errors.New("provider meltdown"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubService{runErr: tt.err}
			h := handler.TriggerHandler{Svc: stub}

			req := httptest.NewRequest(http.MethodPost, "/scrape/brand/7", nil)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d", rr.Code, tt.wantCode)
			}
		})
	}
}

func TestTriggerHandler_InvalidID(t *testing.T) {
	for _, path := range []string{"/scrape/brand/abc", "/scrape/brand/0", "/scrape/brand/-3"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rr := httptest.NewRecorder()
		handler.TriggerHandler{Svc: &stubService{}}.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("path %q: status code = %d, want %d", path, rr.Code, http.StatusBadRequest)
		}
	}
}
