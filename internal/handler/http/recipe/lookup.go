package recipe

import (
	"errors"
	"net/http"

	"github.com/WilliamHoest/trackanything-admin/internal/handler/http/respond"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/urlutil"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
)

// LookupHandler resolves the recipe that applies to a host, walking from the
// host itself down to its registrable domain so nyheder.tv2.dk falls back to
// a recipe stored for tv2.dk.
type LookupHandler struct{ Repo repository.RecipeRepository }

func (h LookupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	if domain == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("domain query param required"))
		return
	}

	candidates := urlutil.DomainCandidates(domain)
	if len(candidates) == 0 {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid domain"))
		return
	}

	for _, candidate := range candidates {
		recipe, err := h.Repo.GetByDomain(r.Context(), candidate)
		if err != nil {
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}
		if recipe != nil {
			respond.JSON(w, http.StatusOK, toDTO(recipe))
			return
		}
	}
	respond.SafeError(w, http.StatusNotFound, errors.New("recipe not found"))
}
