// Package qr issues durable tracking IDs and renders the printable labels
// that point at them. A printed code encodes the tracking URL; its meaning
// must never change for the lifetime of the asset it is bound to.
package qr

import (
	"context"
	"errors"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"meams.org/internal/asset"
	"meams.org/internal/ids"
)

// qrSize is the square pixel size of rendered labels. Low error correction
// keeps modules large enough for small thermal-printed stickers.
const qrSize = 256

// Registry binds tracking IDs to assets and renders their QR labels.
type Registry struct {
	store   asset.Store
	baseURL string
}

// NewRegistry constructs a Registry. baseURL is the externally visible
// origin, e.g. https://meams.example.org.
func NewRegistry(store asset.Store, baseURL string) *Registry {
	return &Registry{store: store, baseURL: strings.TrimRight(baseURL, "/")}
}

// Issued describes a tracking ID and the URLs derived from it.
type Issued struct {
	TrackingID  string `json:"tracking_id"`
	TrackingURL string `json:"tracking_url"`
	QRImageURL  string `json:"qr_image_url"`
}

// EnsureTrackingID returns the asset's tracking ID, generating and binding
// one if none exists. Idempotent under concurrency: at most one ID is ever
// bound and every caller observes it.
func (r *Registry) EnsureTrackingID(ctx context.Context, kind asset.Kind, assetID string) (string, error) {
	candidate, err := ids.NewTrackingID()
	if err != nil {
		return "", err
	}
	return r.store.BindTrackingID(ctx, kind, assetID, candidate)
}

// Issue ensures a tracking ID and returns it with its derived URLs.
func (r *Registry) Issue(ctx context.Context, kind asset.Kind, assetID string) (Issued, error) {
	trackingID, err := r.EnsureTrackingID(ctx, kind, assetID)
	if err != nil {
		return Issued{}, err
	}
	return Issued{
		TrackingID:  trackingID,
		TrackingURL: r.TrackingURL(trackingID),
		QRImageURL:  r.baseURL + "/api/qr/image/" + assetID,
	}, nil
}

// TrackingURL returns the absolute URL a printed label resolves to.
func (r *Registry) TrackingURL(trackingID string) string {
	return r.baseURL + "/track/" + trackingID
}

// RenderImage ensures a tracking ID and returns the label as PNG bytes.
func (r *Registry) RenderImage(ctx context.Context, kind asset.Kind, assetID string) ([]byte, error) {
	trackingID, err := r.EnsureTrackingID(ctx, kind, assetID)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(r.TrackingURL(trackingID), qrcode.Low, qrSize)
	if err != nil {
		return nil, err
	}
	return png, nil
}

// Resolve reverse-looks-up the asset a tracking ID is bound to.
func (r *Registry) Resolve(ctx context.Context, trackingID string) (*asset.Resolved, error) {
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return nil, asset.ErrNotFound
	}
	res, err := r.store.FindByTrackingID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			return nil, asset.ErrNotFound
		}
		return nil, err
	}
	return res, nil
}
