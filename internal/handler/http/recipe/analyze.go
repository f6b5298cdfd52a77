package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/WilliamHoest/trackanything-admin/internal/handler/http/respond"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/analyzer"
)

// Analyzer is the slice of the recipe analyzer the handlers need.
// *analyzer.Analyzer satisfies it.
type Analyzer interface {
	AnalyzeURL(ctx context.Context, articleURL string) (*analyzer.Result, error)
	RefreshDomain(ctx context.Context, domain string) (*analyzer.Result, error)
}

// AnalyzeHandler derives and stores a recipe from a sample article URL.
type AnalyzeHandler struct{ Svc Analyzer }

func (h AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.URL == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	result, err := h.Svc.AnalyzeURL(r.Context(), req.URL)
	if err != nil {
		respond.SafeError(w, http.StatusBadGateway, err)
		return
	}
	respond.JSON(w, http.StatusOK, toAnalysisDTO(result))
}

// RefreshHandler re-analyzes a domain that already has a recipe.
type RefreshHandler struct{ Svc Analyzer }

func (h RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.Domain == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("domain is required"))
		return
	}

	result, err := h.Svc.RefreshDomain(r.Context(), req.Domain)
	if err != nil {
		respond.SafeError(w, http.StatusBadGateway, err)
		return
	}
	respond.JSON(w, http.StatusOK, toAnalysisDTO(result))
}
