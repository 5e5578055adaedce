package stream

import (
	"context"
	"testing"
	"time"

	"meams.org/internal/asset"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestPublishReachesSubscribersInOrder(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1 := s.Subscribe(ctx, "ASSET-E1")
	ch2 := s.Subscribe(ctx, "ASSET-E1")

	first := Event{Type: "scan", ScanType: "equipment", EquipmentID: "ASSET-E1", Name: "first"}
	second := Event{Type: "scan", ScanType: "equipment", EquipmentID: "ASSET-E1", Name: "second"}
	s.Publish("ASSET-E1", first)
	s.Publish("ASSET-E1", second)

	for _, ch := range []<-chan Event{ch1, ch2} {
		got := <-ch
		if got.Name != "first" {
			t.Fatalf("expected first event, got %q", got.Name)
		}
		got = <-ch
		if got.Name != "second" {
			t.Fatalf("expected second event, got %q", got.Name)
		}
	}
}

func TestPublishIsScopedToAsset(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	other := s.Subscribe(ctx, "ASSET-E2")
	s.Publish("ASSET-E1", Event{EquipmentID: "ASSET-E1"})

	select {
	case evt := <-other:
		t.Fatalf("listener for another asset received %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishWithoutListenersIsNoop(t *testing.T) {
	s := New()
	s.Publish("ASSET-E1", Event{EquipmentID: "ASSET-E1"})
	if s.Assets() != 0 {
		t.Fatalf("expected empty registry, got %d assets", s.Assets())
	}
}

func TestUnsubscribeCleansRegistry(t *testing.T) {
	s := New()

	const n = 5
	cancels := make([]context.CancelFunc, 0, n)
	for i := 0; i < n; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancels = append(cancels, cancel)
		s.Subscribe(ctx, "ASSET-E1")
	}
	if got := s.Listeners("ASSET-E1"); got != n {
		t.Fatalf("listeners = %d, want %d", got, n)
	}

	for _, cancel := range cancels {
		cancel()
	}
	waitFor(t, func() bool { return s.Assets() == 0 })

	// A publish racing the teardown must not fault.
	s.Publish("ASSET-E1", Event{EquipmentID: "ASSET-E1"})
}

func TestSlowListenerDropsOldest(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx, "ASSET-E1")
	for i := 0; i < queueCapacity+3; i++ {
		s.Publish("ASSET-E1", Event{EquipmentID: "ASSET-E1", UsefulLife: i})
	}

	got := <-ch
	if got.UsefulLife == 0 {
		t.Fatal("expected oldest events shed, got the first one")
	}
	// The newest event survived.
	last := got
	for {
		select {
		case evt := <-ch:
			last = evt
			continue
		default:
		}
		break
	}
	if last.UsefulLife != queueCapacity+2 {
		t.Fatalf("newest event missing, last = %d", last.UsefulLife)
	}
}

func TestSubscribeChannelClosesOnCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx, "ASSET-E1")
	cancel()

	waitFor(t, func() bool {
		select {
		case _, open := <-ch:
			return !open
		default:
			return false
		}
	})
}

func TestEquipmentScanSnapshot(t *testing.T) {
	eq := &asset.Equipment{
		ID:              "ASSET-E1",
		ItemCode:        "EQ-001",
		Name:            "Infusion Pump",
		Category:        "Clinical",
		Status:          "Operational",
		Location:        "Ward 3",
		UsefulLifeYears: 8,
		PurchaseAmount:  250000,
	}
	evt := EquipmentScan(eq)
	if evt.Type != "scan" || evt.ScanType != "equipment" {
		t.Fatalf("unexpected envelope: %+v", evt)
	}
	if evt.EquipmentID != "ASSET-E1" || evt.Name != "Infusion Pump" {
		t.Fatalf("snapshot fields missing: %+v", evt)
	}
	if evt.Timestamp.IsZero() {
		t.Fatal("expected timestamp set")
	}
}
