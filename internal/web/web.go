// Package web renders the scan-facing HTML pages. Every page is a single
// self-contained document so it survives being opened from a phone camera's
// QR handler with no surrounding app shell.
package web

import (
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"time"

	"meams.org/internal/asset"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

const (
	recentTransactions = 5
	recentRepairs      = 5
)

// Renderer executes the embedded page templates.
type Renderer struct {
	tmpl    *template.Template
	baseURL string
}

// New parses the embedded templates. baseURL is used for absolute links such
// as the full-history page.
func New(baseURL string) (*Renderer, error) {
	funcs := template.FuncMap{
		"unit": PluralizeUnit,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "—"
			}
			return t.Format("2006-01-02")
		},
		"money": func(v float64) string {
			return fmt.Sprintf("%.2f", v)
		},
		"imageURI": func(data []byte) template.URL {
			return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(data))
		},
	}
	tmpl, err := template.New("web").Funcs(funcs).ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, baseURL: baseURL}, nil
}

func (r *Renderer) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	// Past WriteHeader there is no recovery path; a failed execute leaves a
	// truncated page, which the template tests guard against.
	_ = r.tmpl.ExecuteTemplate(w, name, data)
}

type challengeData struct {
	AssetID string
	Error   string
}

// SupplyChallenge writes the login page for a credentialed supply scan. The
// page is the challenge: it is served with 200, and a failed submission comes
// back as the same page with an inline error.
func (r *Renderer) SupplyChallenge(w http.ResponseWriter, assetID, errMsg string) {
	r.render(w, http.StatusOK, "challenge.html.tmpl", challengeData{AssetID: assetID, Error: errMsg})
}

type supplyData struct {
	Supply         *asset.Supply
	QuantityLabel  string
	Recent         []asset.Transaction
	HasMore        bool
	FullHistoryURL string
	AutoRefresh    bool
}

func (r *Renderer) supplyData(s *asset.Supply, autoRefresh bool) supplyData {
	history := latestTransactions(s.Transactions)
	recent := history
	if len(recent) > recentTransactions {
		recent = recent[:recentTransactions]
	}
	return supplyData{
		Supply:         s,
		QuantityLabel:  fmt.Sprintf("%d %s", s.Quantity, PluralizeUnit(s.Unit, s.Quantity)),
		Recent:         recent,
		HasMore:        len(history) > recentTransactions,
		FullHistoryURL: r.baseURL + "/stock-card/" + s.ID,
		AutoRefresh:    autoRefresh,
	}
}

// SupplyView writes the live stock-card page for an authenticated supply scan.
func (r *Renderer) SupplyView(w http.ResponseWriter, s *asset.Supply) {
	r.render(w, http.StatusOK, "supply.html.tmpl", r.supplyData(s, false))
}

type equipmentData struct {
	Equipment   *asset.Equipment
	Recent      []asset.Repair
	AutoRefresh bool
}

func (r *Renderer) equipmentData(eq *asset.Equipment, autoRefresh bool) equipmentData {
	recent := latestRepairs(eq.Repairs)
	if len(recent) > recentRepairs {
		recent = recent[:recentRepairs]
	}
	return equipmentData{Equipment: eq, Recent: recent, AutoRefresh: autoRefresh}
}

// EquipmentView writes the open equipment page served to field technicians.
func (r *Renderer) EquipmentView(w http.ResponseWriter, eq *asset.Equipment) {
	r.render(w, http.StatusOK, "equipment.html.tmpl", r.equipmentData(eq, false))
}

type stockCardData struct {
	Supply        *asset.Supply
	QuantityLabel string
	History       []asset.Transaction
}

// StockCard writes the complete transaction history, newest first.
func (r *Renderer) StockCard(w http.ResponseWriter, s *asset.Supply) {
	r.render(w, http.StatusOK, "stockcard.html.tmpl", stockCardData{
		Supply:        s,
		QuantityLabel: fmt.Sprintf("%d %s", s.Quantity, PluralizeUnit(s.Unit, s.Quantity)),
		History:       latestTransactions(s.Transactions),
	})
}

// TrackView writes the auto-refreshing page behind a tracking URL. The
// rendered body is the matching asset view wrapped with a 30-second refresh.
func (r *Renderer) TrackView(w http.ResponseWriter, res *asset.Resolved) {
	if res.Kind == asset.KindEquipment {
		r.render(w, http.StatusOK, "equipment.html.tmpl", r.equipmentData(res.Equipment, true))
		return
	}
	r.render(w, http.StatusOK, "supply.html.tmpl", r.supplyData(res.Supply, true))
}

// NotFound writes the fixed 404 page used by all scan-facing endpoints.
func (r *Renderer) NotFound(w http.ResponseWriter) {
	r.render(w, http.StatusNotFound, "notfound.html.tmpl", nil)
}

func latestTransactions(in []asset.Transaction) []asset.Transaction {
	out := make([]asset.Transaction, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func latestRepairs(in []asset.Repair) []asset.Repair {
	out := make([]asset.Repair, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}
