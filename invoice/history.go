package invoice

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal result of an export attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// ExportRecord is an audit entry written after an export job ends.
type ExportRecord struct {
	ID            string    `json:"id"`
	InvoiceID     string    `json:"invoiceId"`
	InvoiceNumber string    `json:"invoiceNumber,omitempty"`
	Filename      string    `json:"filename,omitempty"`
	ArchiveKey    string    `json:"archiveKey,omitempty"`
	Outcome       Outcome   `json:"outcome"`
	ErrorKind     ErrorKind `json:"errorKind,omitempty"`
	Error         string    `json:"error,omitempty"`
	Bytes         int       `json:"bytes"`
	StartedAt     time.Time `json:"startedAt"`
	CompletedAt   time.Time `json:"completedAt"`
}

// ArchiveKey names the archived copy of a document. Each job gets its own
// key so a repeat export of the same invoice keeps the earlier file.
func ArchiveKey(jobID, filename string) string {
	if jobID == "" {
		return filename
	}
	return jobID + "/" + filename
}

// Key returns the archive key of the record's document, falling back to the
// filename for records written before keys existed.
func (r ExportRecord) Key() string {
	if r.ArchiveKey != "" {
		return r.ArchiveKey
	}
	return r.Filename
}

// HistoryFilter narrows history queries.
type HistoryFilter struct {
	InvoiceID string
	Outcome   Outcome
	Limit     int
}

func (f HistoryFilter) matches(rec ExportRecord) bool {
	if f.InvoiceID != "" && rec.InvoiceID != f.InvoiceID {
		return false
	}
	if f.Outcome != "" && rec.Outcome != f.Outcome {
		return false
	}
	return true
}

// HistoryTracker persists export records.
type HistoryTracker interface {
	Record(ctx context.Context, rec ExportRecord) (ExportRecord, error)
	Get(ctx context.Context, id string) (ExportRecord, error)
	List(ctx context.Context, filter HistoryFilter) ([]ExportRecord, error)
}

// MemoryHistory stores export records in memory (test/dev only).
type MemoryHistory struct {
	mu      sync.RWMutex
	records map[string]ExportRecord
}

// NewMemoryHistory creates an in-memory history tracker.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{records: make(map[string]ExportRecord)}
}

// Record stores rec, assigning an ID when missing.
func (h *MemoryHistory) Record(ctx context.Context, rec ExportRecord) (ExportRecord, error) {
	_ = ctx
	if h == nil {
		return ExportRecord{}, NewError(KindInternal, "history tracker is nil", nil)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	h.mu.Lock()
	h.records[rec.ID] = rec
	h.mu.Unlock()
	return rec, nil
}

// Get returns a record by ID.
func (h *MemoryHistory) Get(ctx context.Context, id string) (ExportRecord, error) {
	_ = ctx
	if h == nil {
		return ExportRecord{}, NewError(KindInternal, "history tracker is nil", nil)
	}
	h.mu.RLock()
	rec, ok := h.records[id]
	h.mu.RUnlock()
	if !ok {
		return ExportRecord{}, NewError(KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	return rec, nil
}

// List returns matching records, newest first.
func (h *MemoryHistory) List(ctx context.Context, filter HistoryFilter) ([]ExportRecord, error) {
	_ = ctx
	if h == nil {
		return nil, NewError(KindInternal, "history tracker is nil", nil)
	}
	h.mu.RLock()
	out := make([]ExportRecord, 0, len(h.records))
	for _, rec := range h.records {
		if filter.matches(rec) {
			out = append(out, rec)
		}
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Expired returns the records that completed before cutoff.
func (h *MemoryHistory) Expired(ctx context.Context, cutoff time.Time) ([]ExportRecord, error) {
	_ = ctx
	if h == nil {
		return nil, NewError(KindInternal, "history tracker is nil", nil)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ExportRecord, 0)
	for _, rec := range h.records {
		if rec.CompletedAt.Before(cutoff) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Prune deletes records that completed before cutoff.
func (h *MemoryHistory) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	_ = ctx
	if h == nil {
		return 0, NewError(KindInternal, "history tracker is nil", nil)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var removed int64
	for id, rec := range h.records {
		if rec.CompletedAt.Before(cutoff) {
			delete(h.records, id)
			removed++
		}
	}
	return removed, nil
}
