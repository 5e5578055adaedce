package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"meams.org/internal/asset"
	"meams.org/internal/audit"
)

func (a *API) handleSuppliesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.assets.ListSupplies(r.Context())
		if err != nil {
			handleAssetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		if _, ok := a.requireAdmin(w, r); !ok {
			return
		}
		var sup asset.Supply
		if err := decodeJSON(w, r, &sup); err != nil {
			writeError(w, r, http.StatusBadRequest, kindInvalidInput, err.Error())
			return
		}
		if err := a.assets.CreateSupply(r.Context(), &sup); err != nil {
			handleAssetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "supply.create", map[string]any{"id": sup.ID, "name": sup.Name})
		w.Header().Set("Location", "/api/supplies/"+sup.ID)
		writeJSON(w, http.StatusCreated, sup)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleSupplyResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/supplies/")
	if id, ok := strings.CutSuffix(path, "/transactions"); ok {
		a.appendTransaction(w, r, strings.TrimSuffix(id, "/"))
		return
	}
	if !asset.ValidID(path) {
		writeError(w, r, http.StatusBadRequest, kindInvalidIDFormat, "invalid asset identifier")
		return
	}

	switch r.Method {
	case http.MethodGet:
		sup, err := a.assets.GetSupply(r.Context(), path)
		if err != nil {
			handleAssetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sup)
	case http.MethodPut:
		if _, ok := a.requireAdmin(w, r); !ok {
			return
		}
		var sup asset.Supply
		if err := decodeJSON(w, r, &sup); err != nil {
			writeError(w, r, http.StatusBadRequest, kindInvalidInput, err.Error())
			return
		}
		sup.ID = path
		if err := a.assets.UpdateSupply(r.Context(), &sup); err != nil {
			handleAssetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "supply.update", map[string]any{"id": sup.ID})
		writeJSON(w, http.StatusOK, sup)
	case http.MethodDelete:
		if _, ok := a.requireAdmin(w, r); !ok {
			return
		}
		if err := a.assets.DeleteSupply(r.Context(), path); err != nil {
			handleAssetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "supply.delete", map[string]any{"id": path})
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// appendTransaction adds one stock-card row; the row's balance becomes the
// supply's current quantity.
func (a *API) appendTransaction(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !asset.ValidID(id) {
		writeError(w, r, http.StatusBadRequest, kindInvalidIDFormat, "invalid asset identifier")
		return
	}

	var tx asset.Transaction
	if err := decodeJSON(w, r, &tx); err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, err.Error())
		return
	}
	if tx.ReceiptIn < 0 || tx.IssueOut < 0 || tx.Balance < 0 {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, "transaction amounts must be >= 0")
		return
	}
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}

	if err := a.assets.AppendTransaction(r.Context(), id, tx); err != nil {
		handleAssetError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "supply.transaction.append", map[string]any{
		"id":      id,
		"balance": tx.Balance,
	})
	writeJSON(w, http.StatusCreated, tx)
}

func (a *API) handleEquipmentCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.assets.ListEquipment(r.Context())
		if err != nil {
			handleAssetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		if _, ok := a.requireAdmin(w, r); !ok {
			return
		}
		var eq asset.Equipment
		if err := decodeJSON(w, r, &eq); err != nil {
			writeError(w, r, http.StatusBadRequest, kindInvalidInput, err.Error())
			return
		}
		if err := a.assets.CreateEquipment(r.Context(), &eq); err != nil {
			handleAssetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "equipment.create", map[string]any{"id": eq.ID, "name": eq.Name})
		w.Header().Set("Location", "/api/equipment/"+eq.ID)
		writeJSON(w, http.StatusCreated, eq)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEquipmentResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/equipment/")
	if id, ok := strings.CutSuffix(path, "/repairs"); ok {
		a.appendRepair(w, r, strings.TrimSuffix(id, "/"))
		return
	}
	if !asset.ValidID(path) {
		writeError(w, r, http.StatusBadRequest, kindInvalidIDFormat, "invalid asset identifier")
		return
	}

	switch r.Method {
	case http.MethodGet:
		eq, err := a.assets.GetEquipment(r.Context(), path)
		if err != nil {
			handleAssetError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, eq)
	case http.MethodPut:
		if _, ok := a.requireAdmin(w, r); !ok {
			return
		}
		var eq asset.Equipment
		if err := decodeJSON(w, r, &eq); err != nil {
			writeError(w, r, http.StatusBadRequest, kindInvalidInput, err.Error())
			return
		}
		eq.ID = path
		if err := a.assets.UpdateEquipment(r.Context(), &eq); err != nil {
			handleAssetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "equipment.update", map[string]any{"id": eq.ID})
		writeJSON(w, http.StatusOK, eq)
	case http.MethodDelete:
		if _, ok := a.requireAdmin(w, r); !ok {
			return
		}
		if err := a.assets.DeleteEquipment(r.Context(), path); err != nil {
			handleAssetError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "equipment.delete", map[string]any{"id": path})
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) appendRepair(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !asset.ValidID(id) {
		writeError(w, r, http.StatusBadRequest, kindInvalidIDFormat, "invalid asset identifier")
		return
	}

	var rep asset.Repair
	if err := decodeJSON(w, r, &rep); err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, err.Error())
		return
	}
	if rep.AmountUsed < 0 {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, "amount_used must be >= 0")
		return
	}
	if rep.Date.IsZero() {
		rep.Date = time.Now().UTC()
	}

	if err := a.assets.AppendRepair(r.Context(), id, rep); err != nil {
		handleAssetError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "equipment.repair.append", map[string]any{"id": id})
	writeJSON(w, http.StatusCreated, rep)
}

func handleAssetError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, asset.ErrInvalidID):
		writeError(w, r, http.StatusBadRequest, kindInvalidIDFormat, "invalid asset identifier")
	case errors.Is(err, asset.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, err.Error())
	case errors.Is(err, asset.ErrConflict):
		writeError(w, r, http.StatusBadRequest, kindConflict, "asset already exists")
	case errors.Is(err, asset.ErrNotFound):
		writeError(w, r, http.StatusNotFound, kindNotFound, "asset not found")
	default:
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "asset store unavailable")
	}
}
