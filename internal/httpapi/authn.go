package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"meams.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// Paths served without a gateway token. The supply scan page performs its own
// credential challenge, and the equipment scan, tracking and stock-card pages
// are deliberately open (field technicians and printed labels carry no
// session). Everything else behind /api, /listen and /lcc requires a
// principal.
var publicPaths = []string{
	"/login",
	"/verify-scan-access",
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/openapi.yaml",
	"/",
}

var publicPrefixes = []string{
	"/track/",
	"/scan/",
	"/stock-card/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := requestToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, kindInvalidCredentials, "missing bearer token")
			return
		}

		claims, err := a.auth.Verify(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, kindInvalidCredentials, "invalid or expired token")
			return
		}

		principal, err := a.auth.Lookup(r.Context(), claims.Subject)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrAccountDisabled):
				writeError(w, r, http.StatusForbidden, kindAccountDeactivated, "account is deactivated")
			default:
				// Anything unexpected during the credential check flattens
				// to 401 so the gateway never leaks store internals.
				writeError(w, r, http.StatusUnauthorized, kindInvalidCredentials, "invalid or expired token")
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin resolves the caller and rejects non-admin principals. Returns
// false after writing the response when the caller may not proceed.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, kindInvalidCredentials, "authentication required")
		return auth.Principal{}, false
	}
	if !principal.IsAdmin() {
		writeError(w, r, http.StatusForbidden, kindAdminRequired, "administrator role required")
		return auth.Principal{}, false
	}
	return principal, true
}

// requestToken extracts the bearer token from the Authorization header, or
// from the token query parameter when the header is absent. Scan pages and
// event-stream clients cannot always set headers, so both forms are accepted;
// the header wins when both are present.
func requestToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get(authHeader)); header != "" {
		if strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
			if token := strings.TrimSpace(header[len(bearer):]); token != "" {
				return token
			}
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
