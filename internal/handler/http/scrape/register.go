package scrape

import (
	"net/http"
)

// Register registers the scrape trigger endpoint with the given mux.
func Register(mux *http.ServeMux, svc Service) {
	mux.Handle("POST   /scrape/brand/", TriggerHandler{svc})
}
