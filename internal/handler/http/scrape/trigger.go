package scrape

import (
	"context"
	"errors"
	"net/http"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/handler/http/pathutil"
	"github.com/WilliamHoest/trackanything-admin/internal/handler/http/respond"
	scrapeUC "github.com/WilliamHoest/trackanything-admin/internal/usecase/scrape"
)

// Service is the slice of the scrape usecase the handlers need.
// *scrape.Service satisfies it.
type Service interface {
	StartBrand(ctx context.Context, brandID int64) error
	RunBrand(ctx context.Context, brandID int64) (*scrapeUC.Report, error)
}

// TriggerHandler runs a scrape for one brand. By default the run executes
// inline and the response carries the full run report; with ?background=true
// the run is detached and the response is an immediate 202.
type TriggerHandler struct{ Svc Service }

func (h TriggerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/scrape/brand/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	if r.URL.Query().Get("background") == "true" {
		h.startBackground(w, r, id)
		return
	}

	report, err := h.Svc.RunBrand(r.Context(), id)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, reportDTO(report))
	case errors.Is(err, scrapeUC.ErrLocked):
		respond.JSON(w, http.StatusConflict, lockConflict(err))
	case errors.Is(err, entity.ErrNotFound):
		respond.SafeError(w, http.StatusNotFound, err)
	case errors.Is(err, entity.ErrBrandInactive):
		respond.Error(w, http.StatusConflict, err)
	default:
		respond.SafeError(w, http.StatusInternalServerError, err)
	}
}

func (h TriggerHandler) startBackground(w http.ResponseWriter, r *http.Request, id int64) {
	err := h.Svc.StartBrand(r.Context(), id)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusAccepted, AcceptedDTO{BrandID: id, Status: "accepted"})
	case errors.Is(err, scrapeUC.ErrLocked):
		respond.JSON(w, http.StatusConflict, lockConflict(err))
	case errors.Is(err, entity.ErrNotFound):
		respond.SafeError(w, http.StatusNotFound, err)
	case errors.Is(err, entity.ErrBrandInactive):
		respond.Error(w, http.StatusConflict, err)
	default:
		respond.SafeError(w, http.StatusInternalServerError, err)
	}
}

func lockConflict(err error) ConflictDTO {
	dto := ConflictDTO{Error: "scrape already in progress"}
	var locked *scrapeUC.LockedError
	if errors.As(err, &locked) {
		dto.StartedAt = &locked.StartedAt
	}
	return dto
}
