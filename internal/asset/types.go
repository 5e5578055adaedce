package asset

import (
	"regexp"
	"time"
)

// Kind discriminates the two asset collections.
type Kind string

const (
	KindSupply    Kind = "supply"
	KindEquipment Kind = "equipment"
)

// Document is an embedded attachment carried on an asset record.
type Document struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data,omitempty"`
}

// Transaction is one row of a supply's stock card.
type Transaction struct {
	Date      time.Time `json:"date"`
	ReceiptIn int       `json:"receipt_in"`
	IssueOut  int       `json:"issue_out"`
	Balance   int       `json:"balance"`
}

// Supply is a consumable item tracked by quantity.
type Supply struct {
	ID           string        `json:"id"`
	ItemCode     string        `json:"item_code"`
	Name         string        `json:"name"`
	Category     string        `json:"category"`
	Location     string        `json:"location"`
	Status       string        `json:"status"`
	Quantity     int           `json:"quantity"`
	Unit         string        `json:"unit"`
	TrackingID   string        `json:"qr_tracking_id,omitempty"`
	Image        []byte        `json:"image,omitempty"`
	Documents    []Document    `json:"documents,omitempty"`
	Transactions []Transaction `json:"transactions,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Repair is one row of an equipment's repair history.
type Repair struct {
	Date       time.Time `json:"date"`
	Details    string    `json:"details"`
	AmountUsed float64   `json:"amount_used"`
}

// Report is an open condition report attached to an equipment record.
type Report struct {
	Date    time.Time `json:"date"`
	Details string    `json:"details"`
}

// Equipment is a durable item tracked by purchase value and repair history.
type Equipment struct {
	ID              string     `json:"id"`
	ItemCode        string     `json:"item_code"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	Location        string     `json:"location"`
	Status          string     `json:"status"`
	UsefulLifeYears int        `json:"useful_life_years"`
	PurchaseAmount  float64    `json:"purchase_amount"`
	PurchaseDate    time.Time  `json:"purchase_date"`
	Report          *Report    `json:"report,omitempty"`
	Repairs         []Repair   `json:"repairs,omitempty"`
	TrackingID      string     `json:"qr_tracking_id,omitempty"`
	Image           []byte     `json:"image,omitempty"`
	Documents       []Document `json:"documents,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Resolved is the result of a tracking-ID or cross-collection lookup.
// Exactly one of Supply / Equipment is non-nil.
type Resolved struct {
	Kind      Kind
	Supply    *Supply
	Equipment *Equipment
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether raw is an acceptable asset identifier. Rejecting
// malformed IDs early keeps lookups from revealing store internals.
func ValidID(raw string) bool {
	return idPattern.MatchString(raw)
}
