package command

import (
	"context"
	"os"
	"path/filepath"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	storefs "github.com/goliatone/go-invoices/adapters/store/fs"
	"github.com/goliatone/go-invoices/invoice"
)

// DefaultExportRetention is how long export history is kept when a prune
// command does not say otherwise.
const DefaultExportRetention = 30 * 24 * time.Hour

// HistoryPruner removes export records that completed before cutoff.
type HistoryPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExpiredLister reports the records a prune with the same cutoff removes.
type ExpiredLister interface {
	Expired(ctx context.Context, cutoff time.Time) ([]invoice.ExportRecord, error)
}

// ExportArchive holds the archived PDFs behind export records.
type ExportArchive interface {
	List(ctx context.Context) ([]storefs.Meta, error)
	Delete(ctx context.Context, key string) error
}

// PruneExportsHandler removes old export history and the archived PDFs it
// points to. It runs from cron or the CLI as well as the dispatcher.
type PruneExportsHandler struct {
	Pruner HistoryPruner
	// Archive is optional. Without it only history rows are removed.
	Archive ExportArchive
	MaxAge  time.Duration
	Config  gcmd.HandlerConfig
	Clock   func() time.Time
}

func NewPruneExportsHandler(pruner HistoryPruner, maxAge time.Duration) *PruneExportsHandler {
	if maxAge <= 0 {
		maxAge = DefaultExportRetention
	}
	return &PruneExportsHandler{
		Pruner: pruner,
		MaxAge: maxAge,
		Config: gcmd.HandlerConfig{Expression: "0 3 * * *"},
	}
}

func (h *PruneExportsHandler) Execute(ctx context.Context, msg PruneExports) error {
	if h == nil || h.Pruner == nil {
		return errors.New("history pruner is required", errors.CategoryInternal).
			WithTextCode("PRUNER_REQUIRED")
	}
	now := msg.Now
	if now.IsZero() {
		if h.Clock != nil {
			now = h.Clock()
		} else {
			now = time.Now()
		}
	}
	maxAge := msg.MaxAge
	if maxAge == 0 {
		maxAge = h.MaxAge
	}
	if maxAge <= 0 {
		maxAge = DefaultExportRetention
	}

	cutoff := now.Add(-maxAge)
	if err := h.pruneArchive(ctx, cutoff); err != nil {
		return err
	}
	count, err := h.Pruner.Prune(ctx, cutoff)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = count
	}
	if res := gcmd.ResultFromContext[int64](ctx); res != nil {
		res.Store(count)
	}
	return nil
}

// pruneArchive deletes the documents of expired records, then any archived
// file older than cutoff whose record is already gone. Rows stay until their
// files are deleted so a failed run is retried.
func (h *PruneExportsHandler) pruneArchive(ctx context.Context, cutoff time.Time) error {
	if h.Archive == nil {
		return nil
	}
	if lister, ok := h.Pruner.(ExpiredLister); ok {
		expired, err := lister.Expired(ctx, cutoff)
		if err != nil {
			return err
		}
		for _, rec := range expired {
			if rec.Outcome != invoice.OutcomeSucceeded || rec.Key() == "" {
				continue
			}
			if err := h.Archive.Delete(ctx, rec.Key()); err != nil {
				return errors.Wrap(err, errors.CategoryExternal, "delete archived export "+rec.ID).
					WithTextCode("ARCHIVE_DELETE")
			}
		}
	}

	stored, err := h.Archive.List(ctx)
	if err != nil {
		return err
	}
	for _, meta := range stored {
		if meta.Key == "" || !meta.CreatedAt.Before(cutoff) {
			continue
		}
		if err := h.Archive.Delete(ctx, meta.Key); err != nil {
			return errors.Wrap(err, errors.CategoryExternal, "delete archived file "+meta.Key).
				WithTextCode("ARCHIVE_DELETE")
		}
	}
	return nil
}

func (h *PruneExportsHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), PruneExports{})
	}
}

func (h *PruneExportsHandler) CronOptions() gcmd.HandlerConfig {
	if h == nil {
		return gcmd.HandlerConfig{}
	}
	return h.Config
}

// CLIHandler exposes pruning via CLI.
func (h *PruneExportsHandler) CLIHandler() any {
	return &pruneCLI{handler: h}
}

// CLIOptions describes prune CLI metadata.
func (h *PruneExportsHandler) CLIOptions() gcmd.CLIConfig {
	return gcmd.CLIConfig{
		Path:        []string{"exports-prune"},
		Description: "Remove old invoice export history and archived PDFs",
		Group:       "invoices",
	}
}

type pruneCLI struct {
	handler *PruneExportsHandler
	MaxAge  time.Duration `kong:"name='max-age',help='Keep records newer than this duration'"`
}

func (c *pruneCLI) Run() error {
	if c == nil || c.handler == nil {
		return errors.New("prune handler is required", errors.CategoryInternal).
			WithTextCode("PRUNE_HANDLER_REQUIRED")
	}
	return c.handler.Execute(context.Background(), PruneExports{MaxAge: c.MaxAge})
}

// CLIHandler exposes a single invoice export via CLI.
func (h *ExportInvoicePDFHandler) CLIHandler() any {
	return &exportCLI{handler: h}
}

// CLIOptions describes export CLI metadata.
func (h *ExportInvoicePDFHandler) CLIOptions() gcmd.CLIConfig {
	return gcmd.CLIConfig{
		Path:        []string{"invoice-pdf"},
		Description: "Export one invoice as PDF",
		Group:       "invoices",
	}
}

type exportCLI struct {
	handler   *ExportInvoicePDFHandler
	InvoiceID string `kong:"arg,name='invoice-id',help='Invoice to export'"`
	Out       string `kong:"name='out',short='o',help='Output directory',default='.'"`
}

func (c *exportCLI) Run() error {
	if c == nil || c.handler == nil {
		return errors.New("export handler is required", errors.CategoryInternal).
			WithTextCode("EXPORT_HANDLER_REQUIRED")
	}
	msg := ExportInvoicePDF{InvoiceID: c.InvoiceID, Result: &ExportedPDF{}}
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := c.handler.Execute(context.Background(), msg); err != nil {
		return err
	}
	return writeDocument(c.Out, msg.Result)
}

func writeDocument(dir string, out *ExportedPDF) error {
	if dir == "" {
		dir = "."
	}
	target := filepath.Join(dir, filepath.Base(out.Document.Filename))
	if err := os.WriteFile(target, out.Document.Bytes, 0o644); err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "write exported pdf failed").
			WithTextCode("PDF_WRITE")
	}
	return nil
}
