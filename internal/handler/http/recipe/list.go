package recipe

import (
	"net/http"

	"github.com/WilliamHoest/trackanything-admin/internal/handler/http/respond"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
)

type ListHandler struct{ Repo repository.RecipeRepository }

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list, err := h.Repo.ListAll(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]DTO, 0, len(list))
	for _, e := range list {
		out = append(out, toDTO(e))
	}
	respond.JSON(w, http.StatusOK, out)
}
