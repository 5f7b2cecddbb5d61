package trackerbun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-invoices/invoice"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// History stores export records in a Bun-backed database.
type History struct {
	DB          *bun.DB
	Now         func() time.Time
	IDGenerator func() string
}

// NewHistory creates a Bun-backed history tracker.
func NewHistory(db *bun.DB) *History {
	return &History{DB: db, Now: time.Now, IDGenerator: uuid.NewString}
}

// Migrate creates the export table when missing.
func (h *History) Migrate(ctx context.Context) error {
	if err := h.check(); err != nil {
		return err
	}
	_, err := h.DB.NewCreateTable().Model((*recordModel)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}
	if err := h.addArchiveKeyColumn(ctx); err != nil {
		return err
	}
	_, err = h.DB.NewCreateIndex().Model((*recordModel)(nil)).
		Index("invoice_exports_invoice_idx").
		Column("invoice_id").
		IfNotExists().
		Exec(ctx)
	return err
}

// addArchiveKeyColumn upgrades tables created before archive keys existed.
func (h *History) addArchiveKeyColumn(ctx context.Context) error {
	var columns []string
	if err := h.DB.NewRaw("SELECT name FROM pragma_table_info('invoice_exports')").Scan(ctx, &columns); err != nil {
		return err
	}
	for _, name := range columns {
		if name == "archive_key" {
			return nil
		}
	}
	_, err := h.DB.NewAddColumn().Model((*recordModel)(nil)).
		ColumnExpr("archive_key VARCHAR").
		Exec(ctx)
	return err
}

// Record inserts an export record.
func (h *History) Record(ctx context.Context, rec invoice.ExportRecord) (invoice.ExportRecord, error) {
	if err := h.check(); err != nil {
		return invoice.ExportRecord{}, err
	}
	if rec.ID == "" {
		rec.ID = h.nextID()
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = h.now()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.CompletedAt
	}

	model := modelFromRecord(rec)
	if _, err := h.DB.NewInsert().Model(&model).Exec(ctx); err != nil {
		return invoice.ExportRecord{}, err
	}
	return rec, nil
}

// Get returns a record by ID.
func (h *History) Get(ctx context.Context, id string) (invoice.ExportRecord, error) {
	if err := h.check(); err != nil {
		return invoice.ExportRecord{}, err
	}
	if id == "" {
		return invoice.ExportRecord{}, invoice.NewError(invoice.KindValidation, "export ID is required", nil)
	}

	model := new(recordModel)
	err := h.DB.NewSelect().Model(model).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invoice.ExportRecord{}, invoice.NewError(invoice.KindNotFound, fmt.Sprintf("export %q not found", id), nil)
		}
		return invoice.ExportRecord{}, err
	}
	return model.toRecord(), nil
}

// List returns records matching a filter, newest first.
func (h *History) List(ctx context.Context, filter invoice.HistoryFilter) ([]invoice.ExportRecord, error) {
	if err := h.check(); err != nil {
		return nil, err
	}

	models := make([]recordModel, 0)
	query := h.DB.NewSelect().Model(&models)
	if filter.InvoiceID != "" {
		query = query.Where("invoice_id = ?", filter.InvoiceID)
	}
	if filter.Outcome != "" {
		query = query.Where("outcome = ?", filter.Outcome)
	}
	query = query.Order("started_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	records := make([]invoice.ExportRecord, 0, len(models))
	for _, model := range models {
		records = append(records, model.toRecord())
	}
	return records, nil
}

// Expired returns the records Prune would delete for cutoff.
func (h *History) Expired(ctx context.Context, cutoff time.Time) ([]invoice.ExportRecord, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	models := make([]recordModel, 0)
	if err := h.DB.NewSelect().Model(&models).Where("completed_at < ?", cutoff).Scan(ctx); err != nil {
		return nil, err
	}
	records := make([]invoice.ExportRecord, 0, len(models))
	for _, model := range models {
		records = append(records, model.toRecord())
	}
	return records, nil
}

// Prune deletes records that completed before cutoff and returns the number
// removed.
func (h *History) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	res, err := h.DB.NewDelete().Model((*recordModel)(nil)).
		Where("completed_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

type recordModel struct {
	bun.BaseModel `bun:"table:invoice_exports,alias:ie"`

	ID            string    `bun:",pk"`
	InvoiceID     string    `bun:"invoice_id,notnull"`
	InvoiceNumber string    `bun:"invoice_number"`
	Filename      string    `bun:"filename"`
	ArchiveKey    string    `bun:"archive_key"`
	Outcome       string    `bun:"outcome,notnull"`
	ErrorKind     string    `bun:"error_kind"`
	Error         string    `bun:"error"`
	Bytes         int64     `bun:"bytes"`
	StartedAt     time.Time `bun:"started_at"`
	CompletedAt   time.Time `bun:"completed_at,nullzero"`
}

func modelFromRecord(rec invoice.ExportRecord) recordModel {
	return recordModel{
		ID:            rec.ID,
		InvoiceID:     rec.InvoiceID,
		InvoiceNumber: rec.InvoiceNumber,
		Filename:      rec.Filename,
		ArchiveKey:    rec.ArchiveKey,
		Outcome:       string(rec.Outcome),
		ErrorKind:     string(rec.ErrorKind),
		Error:         rec.Error,
		Bytes:         int64(rec.Bytes),
		StartedAt:     rec.StartedAt,
		CompletedAt:   rec.CompletedAt,
	}
}

func (m recordModel) toRecord() invoice.ExportRecord {
	return invoice.ExportRecord{
		ID:            m.ID,
		InvoiceID:     m.InvoiceID,
		InvoiceNumber: m.InvoiceNumber,
		Filename:      m.Filename,
		ArchiveKey:    m.ArchiveKey,
		Outcome:       invoice.Outcome(m.Outcome),
		ErrorKind:     invoice.ErrorKind(m.ErrorKind),
		Error:         m.Error,
		Bytes:         int(m.Bytes),
		StartedAt:     m.StartedAt,
		CompletedAt:   m.CompletedAt,
	}
}

func (h *History) check() error {
	if h == nil || h.DB == nil {
		return invoice.NewError(invoice.KindInternal, "history database not configured", nil)
	}
	return nil
}

func (h *History) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *History) nextID() string {
	if h.IDGenerator != nil {
		return h.IDGenerator()
	}
	return uuid.NewString()
}
