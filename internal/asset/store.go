package asset

import "context"

// Store defines the document-store operations the service depends on.
// Tracking-ID binding is conditional (set only while unset) so concurrent
// QR generation for the same asset always converges on a single ID.
type Store interface {
	CreateSupply(ctx context.Context, s *Supply) error
	GetSupply(ctx context.Context, id string) (*Supply, error)
	ListSupplies(ctx context.Context) ([]*Supply, error)
	UpdateSupply(ctx context.Context, s *Supply) error
	DeleteSupply(ctx context.Context, id string) error
	AppendTransaction(ctx context.Context, id string, tx Transaction) error

	CreateEquipment(ctx context.Context, e *Equipment) error
	GetEquipment(ctx context.Context, id string) (*Equipment, error)
	ListEquipment(ctx context.Context) ([]*Equipment, error)
	UpdateEquipment(ctx context.Context, e *Equipment) error
	DeleteEquipment(ctx context.Context, id string) error
	AppendRepair(ctx context.Context, id string, rep Repair) error

	// GetAny resolves an ID against both collections, supplies first.
	GetAny(ctx context.Context, id string) (*Resolved, error)

	// BindTrackingID atomically sets candidate as the asset's tracking ID if
	// none is bound yet, then returns whichever ID is bound afterwards.
	BindTrackingID(ctx context.Context, kind Kind, id, candidate string) (string, error)

	// FindByTrackingID reverse-looks-up an asset by its printed tracking ID.
	FindByTrackingID(ctx context.Context, trackingID string) (*Resolved, error)
}
