package invoice

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// BusyPolicy decides what a second export does while the surface is held.
type BusyPolicy string

const (
	BusyReject BusyPolicy = "reject"
	BusyWait   BusyPolicy = "wait"
)

// ParseBusyPolicy resolves a policy name. Empty means reject.
func ParseBusyPolicy(value string) (BusyPolicy, error) {
	switch BusyPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", BusyReject:
		return BusyReject, nil
	case BusyWait:
		return BusyWait, nil
	default:
		return "", NewError(KindValidation, fmt.Sprintf("unsupported busy policy: %s", value), nil)
	}
}

// Slot is a single-slot lock over the shared render surface.
type Slot struct {
	sem  *semaphore.Weighted
	held atomic.Bool
}

// NewSlot creates a free slot.
func NewSlot() *Slot {
	return &Slot{sem: semaphore.NewWeighted(1)}
}

// Acquire takes the slot. BusyReject fails fast with a surface_busy error;
// BusyWait blocks until the slot frees or ctx is done.
func (s *Slot) Acquire(ctx context.Context, policy BusyPolicy) error {
	if s == nil || s.sem == nil {
		return NewError(KindInternal, "surface slot is nil", nil)
	}
	if policy == BusyWait {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return NewError(KindSurfaceBusy, "render surface is busy", err)
		}
		s.held.Store(true)
		return nil
	}
	if !s.sem.TryAcquire(1) {
		return NewError(KindSurfaceBusy, "render surface is busy", nil)
	}
	s.held.Store(true)
	return nil
}

// Release frees the slot. Releasing a free slot is a no-op.
func (s *Slot) Release() {
	if s == nil || s.sem == nil {
		return
	}
	if s.held.CompareAndSwap(true, false) {
		s.sem.Release(1)
	}
}

// Held reports whether the slot is taken.
func (s *Slot) Held() bool {
	if s == nil {
		return false
	}
	return s.held.Load()
}
