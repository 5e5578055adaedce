package asset

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemory implements Store with in-process concurrency safety. It backs the
// test suite and DSN-less development runs.
type InMemory struct {
	mu        sync.RWMutex
	supplies  map[string]*Supply
	equipment map[string]*Equipment
}

// NewInMemory creates an empty asset store.
func NewInMemory() *InMemory {
	return &InMemory{
		supplies:  make(map[string]*Supply),
		equipment: make(map[string]*Equipment),
	}
}

var _ Store = (*InMemory)(nil)

func (s *InMemory) CreateSupply(ctx context.Context, sup *Supply) error {
	if sup.Name == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sup.ID == "" {
		sup.ID = uuid.NewString()
	} else if !ValidID(sup.ID) {
		return ErrInvalidID
	}
	if _, ok := s.supplies[sup.ID]; ok {
		return ErrConflict
	}
	now := time.Now().UTC()
	sup.CreatedAt = now
	sup.UpdatedAt = now
	cp := cloneSupply(sup)
	s.supplies[sup.ID] = cp
	return nil
}

func (s *InMemory) GetSupply(ctx context.Context, id string) (*Supply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sup, ok := s.supplies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSupply(sup), nil
}

func (s *InMemory) ListSupplies(ctx context.Context) ([]*Supply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Supply, 0, len(s.supplies))
	for _, sup := range s.supplies {
		out = append(out, cloneSupply(sup))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemCode < out[j].ItemCode })
	return out, nil
}

func (s *InMemory) UpdateSupply(ctx context.Context, sup *Supply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.supplies[sup.ID]
	if !ok {
		return ErrNotFound
	}
	existing.ItemCode = sup.ItemCode
	existing.Name = sup.Name
	existing.Category = sup.Category
	existing.Location = sup.Location
	existing.Status = sup.Status
	existing.Quantity = sup.Quantity
	existing.Unit = sup.Unit
	// Tracking IDs are bound through BindTrackingID only; updates never
	// touch them.
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) DeleteSupply(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.supplies[id]; !ok {
		return ErrNotFound
	}
	delete(s.supplies, id)
	return nil
}

func (s *InMemory) AppendTransaction(ctx context.Context, id string, tx Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sup, ok := s.supplies[id]
	if !ok {
		return ErrNotFound
	}
	sup.Transactions = append(sup.Transactions, tx)
	sup.Quantity = tx.Balance
	sup.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) CreateEquipment(ctx context.Context, eq *Equipment) error {
	if eq.Name == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if eq.ID == "" {
		eq.ID = uuid.NewString()
	} else if !ValidID(eq.ID) {
		return ErrInvalidID
	}
	if _, ok := s.equipment[eq.ID]; ok {
		return ErrConflict
	}
	now := time.Now().UTC()
	eq.CreatedAt = now
	eq.UpdatedAt = now
	cp := cloneEquipment(eq)
	s.equipment[eq.ID] = cp
	return nil
}

func (s *InMemory) GetEquipment(ctx context.Context, id string) (*Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eq, ok := s.equipment[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneEquipment(eq), nil
}

func (s *InMemory) ListEquipment(ctx context.Context) ([]*Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Equipment, 0, len(s.equipment))
	for _, eq := range s.equipment {
		out = append(out, cloneEquipment(eq))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemCode < out[j].ItemCode })
	return out, nil
}

func (s *InMemory) UpdateEquipment(ctx context.Context, eq *Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.equipment[eq.ID]
	if !ok {
		return ErrNotFound
	}
	existing.ItemCode = eq.ItemCode
	existing.Name = eq.Name
	existing.Category = eq.Category
	existing.Location = eq.Location
	existing.Status = eq.Status
	existing.UsefulLifeYears = eq.UsefulLifeYears
	existing.PurchaseAmount = eq.PurchaseAmount
	existing.PurchaseDate = eq.PurchaseDate
	existing.Report = eq.Report
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) DeleteEquipment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.equipment[id]; !ok {
		return ErrNotFound
	}
	delete(s.equipment, id)
	return nil
}

func (s *InMemory) AppendRepair(ctx context.Context, id string, rep Repair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	eq, ok := s.equipment[id]
	if !ok {
		return ErrNotFound
	}
	eq.Repairs = append(eq.Repairs, rep)
	eq.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) GetAny(ctx context.Context, id string) (*Resolved, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sup, ok := s.supplies[id]; ok {
		return &Resolved{Kind: KindSupply, Supply: cloneSupply(sup)}, nil
	}
	if eq, ok := s.equipment[id]; ok {
		return &Resolved{Kind: KindEquipment, Equipment: cloneEquipment(eq)}, nil
	}
	return nil, ErrNotFound
}

func (s *InMemory) BindTrackingID(ctx context.Context, kind Kind, id, candidate string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case KindSupply:
		sup, ok := s.supplies[id]
		if !ok {
			return "", ErrNotFound
		}
		if sup.TrackingID == "" {
			sup.TrackingID = candidate
			sup.UpdatedAt = time.Now().UTC()
		}
		return sup.TrackingID, nil
	case KindEquipment:
		eq, ok := s.equipment[id]
		if !ok {
			return "", ErrNotFound
		}
		if eq.TrackingID == "" {
			eq.TrackingID = candidate
			eq.UpdatedAt = time.Now().UTC()
		}
		return eq.TrackingID, nil
	default:
		return "", ErrInvalidInput
	}
}

// ClearTrackingID releases a bound tracking ID. Not part of Store: tracking
// IDs are durable by contract and only operator tooling (and tests) may
// release one, typically after a physical label is destroyed.
func (s *InMemory) ClearTrackingID(ctx context.Context, kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case KindSupply:
		sup, ok := s.supplies[id]
		if !ok {
			return ErrNotFound
		}
		sup.TrackingID = ""
	case KindEquipment:
		eq, ok := s.equipment[id]
		if !ok {
			return ErrNotFound
		}
		eq.TrackingID = ""
	default:
		return ErrInvalidInput
	}
	return nil
}

func (s *InMemory) FindByTrackingID(ctx context.Context, trackingID string) (*Resolved, error) {
	if trackingID == "" {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sup := range s.supplies {
		if sup.TrackingID == trackingID {
			return &Resolved{Kind: KindSupply, Supply: cloneSupply(sup)}, nil
		}
	}
	for _, eq := range s.equipment {
		if eq.TrackingID == trackingID {
			return &Resolved{Kind: KindEquipment, Equipment: cloneEquipment(eq)}, nil
		}
	}
	return nil, ErrNotFound
}

func cloneSupply(in *Supply) *Supply {
	out := *in
	out.Transactions = append([]Transaction(nil), in.Transactions...)
	out.Documents = append([]Document(nil), in.Documents...)
	out.Image = append([]byte(nil), in.Image...)
	return &out
}

func cloneEquipment(in *Equipment) *Equipment {
	out := *in
	out.Repairs = append([]Repair(nil), in.Repairs...)
	out.Documents = append([]Document(nil), in.Documents...)
	out.Image = append([]byte(nil), in.Image...)
	if in.Report != nil {
		rep := *in.Report
		out.Report = &rep
	}
	return &out
}
