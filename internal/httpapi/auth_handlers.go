package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"meams.org/internal/audit"
	"meams.org/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	Username   string    `json:"username"`
	Role       string    `json:"role"`
	FirstLogin bool      `json:"first_login,omitempty"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, err.Error())
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, "username and password are required")
		return
	}

	principal, err := a.auth.Authenticate(r.Context(), username, req.Password)
	if err != nil {
		a.rejectLogin(w, r, "auth.login.denied", username, err)
		return
	}

	token, expiresAt, err := a.auth.Issue(principal)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "token issuance failed")
		return
	}

	resp := tokenResponse{Token: token, ExpiresAt: expiresAt, Username: principal.Username, Role: principal.Role}
	if !principal.Builtin {
		if acct, err := a.accounts.FindByUsername(r.Context(), principal.Username); err == nil {
			resp.FirstLogin = acct.FirstLogin
		}
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"username": principal.Username,
		"role":     principal.Role,
	})
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) rejectLogin(w http.ResponseWriter, r *http.Request, event, identifier string, err error) {
	_ = audit.LogEvent(r.Context(), event, map[string]any{"identifier": identifier})
	if errors.Is(err, auth.ErrAccountDisabled) {
		writeError(w, r, http.StatusForbidden, kindAccountDeactivated, "account is deactivated")
		return
	}
	writeError(w, r, http.StatusUnauthorized, kindInvalidCredentials, "invalid username or password")
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	username := ""
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		username = p.Username
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{"username": username})
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, kindInvalidCredentials, "missing bearer token")
		return
	}

	fresh, expiresAt, err := a.auth.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountDisabled):
			writeError(w, r, http.StatusForbidden, kindAccountDeactivated, "account is deactivated")
		case errors.Is(err, auth.ErrNotFound):
			writeError(w, r, http.StatusNotFound, kindNotFound, "account no longer exists")
		default:
			writeError(w, r, http.StatusUnauthorized, kindInvalidCredentials, "invalid or expired token")
		}
		return
	}

	principal, _ := auth.PrincipalFromContext(r.Context())
	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{"username": principal.Username})
	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     fresh,
		ExpiresAt: expiresAt,
		Username:  principal.Username,
		Role:      principal.Role,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, kindInvalidCredentials, "authentication required")
		return
	}
	if principal.Builtin {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, "built-in accounts cannot change password")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, err.Error())
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, "new password must be at least 8 characters")
		return
	}

	if err := a.auth.ChangePassword(r.Context(), principal.Username, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrWrongPassword):
			writeError(w, r, http.StatusBadRequest, kindWrongPassword, "current password is incorrect")
		case errors.Is(err, auth.ErrNotFound):
			writeError(w, r, http.StatusNotFound, kindNotFound, "account not found")
		default:
			writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "password change failed")
		}
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.password.change", map[string]any{"username": principal.Username})
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type scanAccessRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type scanAccessResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// handleVerifyScanAccess is the sibling endpoint the supply scan challenge
// page submits to. It accepts a username or an email address and issues a
// regular short-lived token.
func (a *API) handleVerifyScanAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req scanAccessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, err.Error())
		return
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, kindInvalidInput, "identifier and password are required")
		return
	}

	principal, err := a.auth.Authenticate(r.Context(), identifier, req.Password)
	if err != nil {
		a.rejectLogin(w, r, "scan.access.denied", identifier, err)
		return
	}

	token, expiresAt, err := a.auth.Issue(principal)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "token issuance failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "scan.access.granted", map[string]any{"username": principal.Username})
	writeJSON(w, http.StatusOK, scanAccessResponse{AccessToken: token, ExpiresAt: expiresAt})
}
