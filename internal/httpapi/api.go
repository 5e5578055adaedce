package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"meams.org/api/spec"
	"meams.org/internal/asset"
	"meams.org/internal/auth"
	"meams.org/internal/obs"
	"meams.org/internal/qr"
	"meams.org/internal/stream"
	"meams.org/internal/web"
)

// ReadyProbe — readiness check backed by the database pool, if any.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the collaborators the HTTP layer is assembled from.
type Options struct {
	Auth     *auth.Service
	Accounts auth.AccountStore
	Assets   asset.Store
	QR       *qr.Registry
	Stream   *stream.Stream
	Pages    *web.Renderer

	Ready       ReadyProbe
	Version     string
	CORSOrigins []string
	RateBurst   int
	RatePerSec  int
}

// API — the HTTP layer.
type API struct {
	mux      *http.ServeMux
	auth     *auth.Service
	accounts auth.AccountStore
	assets   asset.Store
	qr       *qr.Registry
	stream   *stream.Stream
	pages    *web.Renderer

	readyProbe  ReadyProbe
	version     string
	corsOrigins []string
	rateBurst   int
	ratePerSec  int

	// keepaliveInterval paces SSE keepalive comments; tests shrink it.
	keepaliveInterval time.Duration
}

func New(opts Options) *API {
	a := &API{
		mux:               http.NewServeMux(),
		auth:              opts.Auth,
		accounts:          opts.Accounts,
		assets:            opts.Assets,
		qr:                opts.QR,
		stream:            opts.Stream,
		pages:             opts.Pages,
		readyProbe:        opts.Ready,
		version:           opts.Version,
		corsOrigins:       opts.CORSOrigins,
		rateBurst:         opts.RateBurst,
		ratePerSec:        opts.RatePerSec,
		keepaliveInterval: 30 * time.Second,
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// OpenAPI YAML
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// identity
	a.mux.HandleFunc("/login", a.handleLogin)
	a.mux.HandleFunc("/logout", a.handleLogout)
	a.mux.HandleFunc("/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/auth/change-password", a.handleChangePassword)
	a.mux.HandleFunc("/verify-scan-access", a.handleVerifyScanAccess)

	// account administration
	a.mux.HandleFunc("/api/accounts", a.handleAccountsCollection)
	a.mux.HandleFunc("/api/accounts/", a.handleAccountResource)

	// asset records
	a.mux.HandleFunc("/api/supplies", a.handleSuppliesCollection)
	a.mux.HandleFunc("/api/supplies/", a.handleSupplyResource)
	a.mux.HandleFunc("/api/equipment", a.handleEquipmentCollection)
	a.mux.HandleFunc("/api/equipment/", a.handleEquipmentResource)

	// QR identity
	a.mux.HandleFunc("/api/qr/generate/", a.handleQRGenerate)
	a.mux.HandleFunc("/api/qr/image/", a.handleQRImage)

	// scan-facing pages and streams
	a.mux.HandleFunc("/scan/supply/", a.handleSupplyScan)
	a.mux.HandleFunc("/scan/equipment/", a.handleEquipmentScan)
	a.mux.HandleFunc("/stock-card/", a.handleStockCard)
	a.mux.HandleFunc("/track/", a.handleTrack)
	a.mux.HandleFunc("/listen/equipment/", a.handleListen)
	a.mux.HandleFunc("/lcc/", a.handleLCC)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "meams-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "meams-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
