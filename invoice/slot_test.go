package invoice

import (
	"context"
	"testing"
	"time"
)

func TestSlotRejectsWhileHeld(t *testing.T) {
	slot := NewSlot()
	ctx := context.Background()
	if err := slot.Acquire(ctx, BusyReject); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !slot.Held() {
		t.Fatalf("expected slot held")
	}
	if err := slot.Acquire(ctx, BusyReject); KindFromError(err) != KindSurfaceBusy {
		t.Fatalf("expected surface_busy, got %v", err)
	}
	slot.Release()
	if slot.Held() {
		t.Fatalf("expected slot free")
	}
	if err := slot.Acquire(ctx, BusyReject); err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	slot.Release()
	slot.Release()
}

func TestSlotWaitHonorsContext(t *testing.T) {
	slot := NewSlot()
	if err := slot.Acquire(context.Background(), BusyWait); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := slot.Acquire(ctx, BusyWait); KindFromError(err) != KindSurfaceBusy {
		t.Fatalf("expected surface_busy after timeout, got %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- slot.Acquire(context.Background(), BusyWait)
	}()
	slot.Release()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("waiting acquire: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected waiter to acquire released slot")
	}
}

func TestParseBusyPolicy(t *testing.T) {
	if p, err := ParseBusyPolicy(""); err != nil || p != BusyReject {
		t.Fatalf("expected reject default, got %q %v", p, err)
	}
	if p, err := ParseBusyPolicy("WAIT"); err != nil || p != BusyWait {
		t.Fatalf("expected wait, got %q %v", p, err)
	}
	if _, err := ParseBusyPolicy("queue-forever"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
