package handlers

import (
	"net/http"

	"github.com/lvlagency/gforms-gtm/internal/constants"
)

// VersionHandler handles requests to the /version endpoint.
func VersionHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Version string `json:"version"`
	}{Version: constants.Version})
}
