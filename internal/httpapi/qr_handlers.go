package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"meams.org/internal/asset"
	"meams.org/internal/audit"
)

// handleQRGenerate issues (or re-reads) the asset's tracking identity.
// Idempotent: repeated calls return the same tracking ID for the life of the
// printed label.
func (a *API) handleQRGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/qr/generate/")
	if !asset.ValidID(id) {
		writeError(w, r, http.StatusBadRequest, kindInvalidIDFormat, "invalid asset identifier")
		return
	}

	res, err := a.assets.GetAny(r.Context(), id)
	if err != nil {
		handleAssetError(w, r, err)
		return
	}

	issued, err := a.qr.Issue(r.Context(), res.Kind, id)
	if err != nil {
		handleAssetError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "qr.issue", map[string]any{
		"asset_id": id,
		"kind":     string(res.Kind),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"trackingId":  issued.TrackingID,
		"trackingUrl": issued.TrackingURL,
		"qrImageUrl":  issued.QRImageURL,
	})
}

// handleQRImage renders the printable PNG label for the asset.
func (a *API) handleQRImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/qr/image/")
	if !asset.ValidID(id) {
		writeError(w, r, http.StatusBadRequest, kindInvalidIDFormat, "invalid asset identifier")
		return
	}

	res, err := a.assets.GetAny(r.Context(), id)
	if err != nil {
		handleAssetError(w, r, err)
		return
	}

	png, err := a.qr.RenderImage(r.Context(), res.Kind, id)
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, kindNotFound, "asset not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "label rendering failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
