package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"meams.org/internal/asset"
	"meams.org/internal/audit"
	"meams.org/internal/stream"
)

// handleSupplyScan serves the credentialed supply stock card. The response is
// always 200: without a valid token the body IS the login challenge, never a
// 401 or a redirect.
func (a *API) handleSupplyScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/scan/supply/")
	if !asset.ValidID(id) {
		writeError(w, r, http.StatusBadRequest, kindInvalidIDFormat, "invalid asset identifier")
		return
	}

	if !a.scanAuthorized(r) {
		a.pages.SupplyChallenge(w, id, "")
		return
	}

	sup, err := a.assets.GetSupply(r.Context(), id)
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			a.pages.NotFound(w)
			return
		}
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "asset store unavailable")
		return
	}

	_ = audit.LogEvent(r.Context(), "scan.supply", map[string]any{"id": id})
	a.pages.SupplyView(w, sup)
}

// scanAuthorized checks the scan credential without writing a response. Any
// verification failure means "show the challenge again".
func (a *API) scanAuthorized(r *http.Request) bool {
	token := requestToken(r)
	if token == "" {
		return false
	}
	claims, err := a.auth.Verify(token)
	if err != nil {
		return false
	}
	if _, err := a.auth.Lookup(r.Context(), claims.Subject); err != nil {
		return false
	}
	return true
}

// handleEquipmentScan serves the open equipment view and publishes a scan
// event to live listeners.
func (a *API) handleEquipmentScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/scan/equipment/")
	if !asset.ValidID(id) {
		writeError(w, r, http.StatusBadRequest, kindInvalidIDFormat, "invalid asset identifier")
		return
	}

	eq, err := a.assets.GetEquipment(r.Context(), id)
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			a.pages.NotFound(w)
			return
		}
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "asset store unavailable")
		return
	}

	if a.stream != nil {
		a.stream.Publish(eq.ID, stream.EquipmentScan(eq))
	}

	_ = audit.LogEvent(r.Context(), "scan.equipment", map[string]any{"id": id})
	a.pages.EquipmentView(w, eq)
}

// handleStockCard serves the complete transaction history. Unauthenticated:
// the source system left this page open and that asymmetry is kept.
func (a *API) handleStockCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/stock-card/")
	if !asset.ValidID(id) {
		writeError(w, r, http.StatusBadRequest, kindInvalidIDFormat, "invalid asset identifier")
		return
	}

	sup, err := a.assets.GetSupply(r.Context(), id)
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			a.pages.NotFound(w)
			return
		}
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "asset store unavailable")
		return
	}
	a.pages.StockCard(w, sup)
}

// handleTrack resolves a printed tracking URL to the live asset view with a
// 30-second refresh. Unknown or malformed tracking IDs get the fixed 404
// page.
func (a *API) handleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	trackingID := strings.TrimPrefix(r.URL.Path, "/track/")
	if trackingID == "" || strings.Contains(trackingID, "/") {
		a.pages.NotFound(w)
		return
	}

	res, err := a.qr.Resolve(r.Context(), trackingID)
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			a.pages.NotFound(w)
			return
		}
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "asset store unavailable")
		return
	}
	a.pages.TrackView(w, res)
}
