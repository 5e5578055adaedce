package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"meams.org/internal/audit"
	"meams.org/internal/auth"
)

const generatedPasswordLength = 12

type createAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type accountCreatedResponse struct {
	Account *auth.Account `json:"account"`
	// Password is returned exactly once, on creation or reset, when the
	// server generated it.
	Password string `json:"password,omitempty"`
}

func (a *API) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.listAccounts(w, r)
	case http.MethodPost:
		a.createAccount(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAccountResource(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, kindNotFound, "resource not found")
		return
	}

	if username, ok := strings.CutSuffix(path, "/reset-password"); ok {
		username = strings.TrimSuffix(username, "/")
		if username == "" || r.Method != http.MethodPost {
			writeError(w, r, http.StatusNotFound, kindNotFound, "resource not found")
			return
		}
		a.resetPassword(w, r, username)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, kindNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getAccount(w, r, path)
	case http.MethodPut:
		a.updateAccount(w, r, path)
	case http.MethodDelete:
		a.deleteAccount(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := a.accounts.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "account store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": accounts})
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, err.Error())
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, "username and email are required")
		return
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = auth.RoleStaff
	}
	if role != auth.RoleAdmin && role != auth.RoleStaff {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, "role must be admin or staff")
		return
	}

	password := req.Password
	generated := false
	if password == "" {
		var err error
		password, err = auth.GeneratePassword(generatedPasswordLength)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "password generation failed")
			return
		}
		generated = true
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "password hashing failed")
		return
	}

	acct := &auth.Account{
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
		Active:       true,
		PasswordHash: hash,
		FirstLogin:   true,
	}
	if err := a.accounts.Create(r.Context(), acct); err != nil {
		handleAccountError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "account.create", map[string]any{
		"username": acct.Username,
		"role":     acct.Role,
	})

	resp := accountCreatedResponse{Account: acct}
	if generated {
		resp.Password = password
	}
	w.Header().Set("Location", "/api/accounts/"+acct.Username)
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request, username string) {
	acct, err := a.accounts.FindByUsername(r.Context(), username)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

type updateAccountRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
}

func (a *API) updateAccount(w http.ResponseWriter, r *http.Request, username string) {
	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, err.Error())
		return
	}

	acct, err := a.accounts.FindByUsername(r.Context(), username)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	if req.Email != nil {
		acct.Email = strings.TrimSpace(*req.Email)
	}
	if req.FullName != nil {
		acct.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		role := strings.TrimSpace(*req.Role)
		if role != auth.RoleAdmin && role != auth.RoleStaff {
			writeError(w, r, http.StatusBadRequest, kindInvalidInput, "role must be admin or staff")
			return
		}
		acct.Role = role
	}
	if req.Active != nil {
		acct.Active = *req.Active
	}

	if err := a.accounts.Update(r.Context(), acct); err != nil {
		handleAccountError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "account.update", map[string]any{
		"username": acct.Username,
		"active":   acct.Active,
		"role":     acct.Role,
	})
	writeJSON(w, http.StatusOK, acct)
}

func (a *API) deleteAccount(w http.ResponseWriter, r *http.Request, username string) {
	if err := a.accounts.Delete(r.Context(), username); err != nil {
		handleAccountError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "account.delete", map[string]any{"username": username})
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request, username string) {
	acct, err := a.accounts.FindByUsername(r.Context(), username)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}

	password, err := auth.GeneratePassword(generatedPasswordLength)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "password generation failed")
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "password hashing failed")
		return
	}
	if err := a.accounts.UpdatePassword(r.Context(), acct.Username, hash, true); err != nil {
		handleAccountError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "account.password.reset", map[string]any{"username": acct.Username})
	writeJSON(w, http.StatusOK, accountCreatedResponse{Account: acct, Password: password})
}

func handleAccountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusBadRequest, kindConflict, "username or email already in use")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, kindNotFound, "account not found")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "account store unavailable")
	}
}
