package notify

import (
	"context"
	"sort"
	"sync"
)

// Board keeps the latest event per operation ID, the way a toast layer
// replaces a keyed toast instead of stacking a new one.
type Board struct {
	mu     sync.RWMutex
	events map[string]Event
	seq    map[string]uint64
	next   uint64
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{
		events: make(map[string]Event),
		seq:    make(map[string]uint64),
	}
}

// Send records evt, replacing any earlier event with the same operation ID.
func (b *Board) Send(ctx context.Context, evt Event) error {
	_ = ctx
	if b == nil {
		return nil
	}
	key := evt.OperationID
	b.mu.Lock()
	b.next++
	b.events[key] = evt
	b.seq[key] = b.next
	b.mu.Unlock()
	return nil
}

// Get returns the current event for an operation ID.
func (b *Board) Get(operationID string) (Event, bool) {
	if b == nil {
		return Event{}, false
	}
	b.mu.RLock()
	evt, ok := b.events[operationID]
	b.mu.RUnlock()
	return evt, ok
}

// Events returns the current events, most recently updated first.
func (b *Board) Events() []Event {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.events))
	for key := range b.events {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return b.seq[keys[i]] > b.seq[keys[j]]
	})
	out := make([]Event, 0, len(keys))
	for _, key := range keys {
		out = append(out, b.events[key])
	}
	return out
}

// Dismiss drops the event for an operation ID.
func (b *Board) Dismiss(operationID string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	delete(b.events, operationID)
	delete(b.seq, operationID)
	b.mu.Unlock()
}
