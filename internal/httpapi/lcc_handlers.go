package httpapi

import (
	"net/http"
	"strings"

	"meams.org/internal/asset"
	"meams.org/internal/lcc"
)

// handleLCC derives the life-cycle-cost classification for one equipment
// record on demand. Nothing is persisted.
func (a *API) handleLCC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/lcc/")
	if !asset.ValidID(id) {
		writeError(w, r, http.StatusBadRequest, kindInvalidIDFormat, "invalid asset identifier")
		return
	}

	eq, err := a.assets.GetEquipment(r.Context(), id)
	if err != nil {
		handleAssetError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, lcc.Analyze(eq))
}
