package invoice

import (
	"context"
	"errors"
	"sync"
)

// MemoryDelivery keeps delivered documents in memory. The HTTP layer uses it
// to stream the PDF back to the requester.
type MemoryDelivery struct {
	mu   sync.RWMutex
	docs []Document
}

// NewMemoryDelivery creates an empty in-memory delivery.
func NewMemoryDelivery() *MemoryDelivery {
	return &MemoryDelivery{}
}

// Deliver stores a copy of doc.
func (d *MemoryDelivery) Deliver(ctx context.Context, doc Document) error {
	_ = ctx
	if d == nil {
		return NewError(KindInternal, "memory delivery is nil", nil)
	}
	doc.Bytes = append([]byte(nil), doc.Bytes...)
	d.mu.Lock()
	d.docs = append(d.docs, doc)
	d.mu.Unlock()
	return nil
}

// Last returns the most recently delivered document.
func (d *MemoryDelivery) Last() (Document, bool) {
	if d == nil {
		return Document{}, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.docs) == 0 {
		return Document{}, false
	}
	return d.docs[len(d.docs)-1], true
}

// Documents returns every delivered document in order.
func (d *MemoryDelivery) Documents() []Document {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Document(nil), d.docs...)
}

// MultiDelivery hands the document to each delivery in order and stops at
// the first failure.
type MultiDelivery []Delivery

func (m MultiDelivery) Deliver(ctx context.Context, doc Document) error {
	delivered := 0
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Deliver(ctx, doc); err != nil {
			return err
		}
		delivered++
	}
	if delivered == 0 {
		return errors.New("no delivery configured")
	}
	return nil
}
