package recipe

import (
	"net/http"

	"github.com/WilliamHoest/trackanything-admin/internal/repository"
)

// Register registers all recipe admin HTTP handlers with the given mux.
// The analyzer endpoints fetch remote pages and run LLM calls, so they are
// wrapped with limit, typically a per-IP rate limiter. A nil limit applies
// no wrapping.
func Register(mux *http.ServeMux, svc Analyzer, repo repository.RecipeRepository, limit func(http.Handler) http.Handler) {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	mux.Handle("GET    /recipes", ListHandler{repo})
	mux.Handle("GET    /recipes/lookup", LookupHandler{repo})
	mux.Handle("POST   /recipes/analyze", limit(AnalyzeHandler{svc}))
	mux.Handle("POST   /recipes/refresh", limit(RefreshHandler{svc}))
	mux.Handle("DELETE /recipes/", DeleteHandler{repo})
}
