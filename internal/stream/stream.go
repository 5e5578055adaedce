// Package stream fans scan events out to live dashboard listeners. The
// registry is process-local: multi-instance deployments need sticky routing
// or an external bus, which is out of scope here.
package stream

import (
	"context"
	"sync"
	"time"

	"meams.org/internal/asset"
	"meams.org/internal/obs"
)

// queueCapacity bounds each listener queue. The feed is telemetry, not a
// durable log: on overflow the oldest event is dropped.
const queueCapacity = 16

// Event is a snapshot of an asset's state at the moment its scan URL was
// resolved. Not persisted.
type Event struct {
	Type        string    `json:"type"`
	ScanType    string    `json:"scan_type"`
	EquipmentID string    `json:"equipment_id"`
	ItemCode    string    `json:"item_code"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	Location    string    `json:"location"`
	UsefulLife  int       `json:"useful_life_years,omitempty"`
	Amount      float64   `json:"purchase_amount,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// EquipmentScan builds the event published when an equipment scan page is
// served.
func EquipmentScan(eq *asset.Equipment) Event {
	return Event{
		Type:        "scan",
		ScanType:    "equipment",
		EquipmentID: eq.ID,
		ItemCode:    eq.ItemCode,
		Name:        eq.Name,
		Category:    eq.Category,
		Status:      eq.Status,
		Location:    eq.Location,
		UsefulLife:  eq.UsefulLifeYears,
		Amount:      eq.PurchaseAmount,
		Timestamp:   time.Now().UTC(),
	}
}

// Stream routes events to listeners keyed by asset ID.
type Stream struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan Event
	next int
}

// New initialises an empty registry.
func New() *Stream {
	return &Stream{subs: make(map[string]map[int]chan Event)}
}

// Subscribe registers a listener for one asset and returns its event channel.
// The channel is closed and unregistered when ctx ends; the last listener's
// departure removes the asset's registry entry entirely.
func (s *Stream) Subscribe(ctx context.Context, assetID string) <-chan Event {
	ch := make(chan Event, queueCapacity)

	s.mu.Lock()
	id := s.next
	s.next++
	listeners, ok := s.subs[assetID]
	if !ok {
		listeners = make(map[int]chan Event)
		s.subs[assetID] = listeners
	}
	listeners[id] = ch
	s.mu.Unlock()
	obs.ListenerOpened()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if listeners, ok := s.subs[assetID]; ok {
			delete(listeners, id)
			if len(listeners) == 0 {
				delete(s.subs, assetID)
			}
		}
		close(ch)
		s.mu.Unlock()
		obs.ListenerClosed()
	}()

	return ch
}

// Publish delivers the event to every listener currently registered for the
// asset. Sends never block: a full queue sheds its oldest event first, and a
// listener that still cannot accept is skipped. Holding the read lock across
// the non-blocking sends keeps Publish from racing channel close.
func (s *Stream) Publish(assetID string, evt Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	listeners, ok := s.subs[assetID]
	if !ok {
		return
	}
	for _, ch := range listeners {
		select {
		case ch <- evt:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}
	obs.EventPublished()
}

// Listeners reports how many listeners are registered for the asset.
func (s *Stream) Listeners(assetID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs[assetID])
}

// Assets reports how many assets currently have at least one listener.
func (s *Stream) Assets() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
