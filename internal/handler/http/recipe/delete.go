package recipe

import (
	"errors"
	"net/http"
	"strings"

	"github.com/WilliamHoest/trackanything-admin/internal/handler/http/respond"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/urlutil"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
)

// DeleteHandler removes the recipe stored for exactly the given domain.
// No subdomain fallback here; deletes must be precise.
type DeleteHandler struct{ Repo repository.RecipeRepository }

func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	domain := urlutil.Hostname(strings.TrimPrefix(r.URL.Path, "/recipes/"))
	if domain == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid domain"))
		return
	}
	if err := h.Repo.Delete(r.Context(), domain); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
