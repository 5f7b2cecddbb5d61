package invoice

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-invoices/invoice/notify"
	"github.com/google/uuid"
)

const (
	// DefaultSettleDelay is the fallback wait for surfaces without a
	// readiness signal.
	DefaultSettleDelay = 500 * time.Millisecond
	restoreTimeout     = 5 * time.Second
)

// ExporterConfig wires the export pipeline.
type ExporterConfig struct {
	Capturer       Capturer
	Assembler      Assembler
	Delivery       Delivery
	Notifier       notify.Notifier
	History        HistoryTracker
	Logger         Logger
	Geometry       PageGeometry
	CaptureOptions *CaptureOptions
	// SettleDelay applies only when the surface has no readiness signal.
	// Zero uses DefaultSettleDelay, negative disables the wait.
	SettleDelay time.Duration
	BusyPolicy  BusyPolicy
	Slot        *Slot
	Now         func() time.Time
	IDGenerator func() string
}

// Exporter turns a rendered invoice surface into a delivered PDF.
type Exporter struct {
	capturer    Capturer
	assembler   Assembler
	delivery    Delivery
	notifier    notify.Notifier
	history     HistoryTracker
	logger      Logger
	geometry    PageGeometry
	captureOpts CaptureOptions
	settleDelay time.Duration
	busyPolicy  BusyPolicy
	slot        *Slot
	now         func() time.Time
	idGenerator func() string

	mu  sync.RWMutex
	job *ExportJob
}

// NewExporter creates an Exporter with defaults applied.
func NewExporter(cfg ExporterConfig) *Exporter {
	e := &Exporter{
		capturer:    cfg.Capturer,
		assembler:   cfg.Assembler,
		delivery:    cfg.Delivery,
		notifier:    cfg.Notifier,
		history:     cfg.History,
		logger:      cfg.Logger,
		geometry:    cfg.Geometry,
		captureOpts: DefaultCaptureOptions(),
		settleDelay: cfg.SettleDelay,
		busyPolicy:  cfg.BusyPolicy,
		slot:        cfg.Slot,
		now:         cfg.Now,
		idGenerator: cfg.IDGenerator,
	}
	if cfg.CaptureOptions != nil {
		e.captureOpts = *cfg.CaptureOptions
	}
	if e.notifier == nil {
		e.notifier = notify.Nop{}
	}
	if e.logger == nil {
		e.logger = NopLogger{}
	}
	if e.geometry.Width == 0 {
		e.geometry = DefaultGeometry()
	}
	if e.settleDelay == 0 {
		e.settleDelay = DefaultSettleDelay
	}
	if e.busyPolicy == "" {
		e.busyPolicy = BusyReject
	}
	if e.slot == nil {
		e.slot = NewSlot()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.idGenerator == nil {
		e.idGenerator = uuid.NewString
	}
	return e
}

// ExportOption customizes a single export call.
type ExportOption func(*exportCall)

type exportCall struct {
	deliveries []Delivery
}

// WithDelivery adds a delivery for this call only, after the configured one.
func WithDelivery(d Delivery) ExportOption {
	return func(c *exportCall) {
		if d != nil {
			c.deliveries = append(c.deliveries, d)
		}
	}
}

// IsGenerating reports whether an export currently holds the surface.
func (e *Exporter) IsGenerating() bool {
	if e == nil {
		return false
	}
	return e.slot.Held()
}

// CurrentJob returns a snapshot of the in-flight job.
func (e *Exporter) CurrentJob() (ExportJob, bool) {
	if e == nil {
		return ExportJob{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.job == nil {
		return ExportJob{}, false
	}
	return *e.job, true
}

// Export captures the surface resolved by ref and delivers it as a PDF.
// The surface attributes are restored on every exit path once the surface
// has been resolved. Only one export holds the surface at a time.
func (e *Exporter) Export(ctx context.Context, inv Invoice, ref SurfaceRef, opts ...ExportOption) (Result, error) {
	if e == nil {
		return Result{}, NewError(KindInternal, "exporter is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	call := exportCall{}
	if e.delivery != nil {
		call.deliveries = append(call.deliveries, e.delivery)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&call)
		}
	}

	if err := e.slot.Acquire(ctx, e.busyPolicy); err != nil {
		e.logger.Infof("invoice export for %s rejected: %v", inv.ID, err)
		return Result{}, err
	}
	defer e.slot.Release()

	started := e.now()
	job := &ExportJob{
		ID:        e.idGenerator(),
		Invoice:   inv,
		Filename:  Filename(inv, started),
		Status:    JobGenerating,
		StartedAt: started,
	}
	e.setJob(job)
	defer e.setJob(nil)

	e.send(ctx, job, notify.Event{Stage: notify.StageStart, Message: notify.MessageGenerating})

	size, err := e.run(ctx, job, ref, call.deliveries)
	e.finish(ctx, job, size, err)
	if err != nil {
		return Result{}, err
	}
	return Result{JobID: job.ID, Filename: job.Filename, Bytes: size}, nil
}

func (e *Exporter) run(ctx context.Context, job *ExportJob, ref SurfaceRef, deliveries []Delivery) (size int, err error) {
	var surface RenderSurface
	if ref != nil {
		surface = ref.Current()
	}
	if surface == nil {
		return 0, NewError(KindSurfaceUnavailable, "render surface is not mounted", nil)
	}
	e.mu.Lock()
	job.Surface = surface
	e.mu.Unlock()

	if e.capturer == nil {
		return 0, NewError(KindExportFailed, "capturer is not configured", nil)
	}
	if e.assembler == nil {
		return 0, NewError(KindExportFailed, "assembler is not configured", nil)
	}
	if len(deliveries) == 0 {
		return 0, NewError(KindExportFailed, "delivery is not configured", nil)
	}

	if presenter, ok := surface.(Presenter); ok {
		if err := presenter.Present(ctx, job.Invoice); err != nil {
			return 0, NewError(KindExportFailed, "present invoice on surface", err)
		}
	}

	prior, err := surface.Attributes(ctx)
	if err != nil {
		return 0, NewError(KindExportFailed, "read surface attributes", err)
	}
	defer func() {
		if rerr := e.restore(ctx, surface, prior); rerr != nil {
			e.logger.Errorf("invoice export %s: restore surface: %v", job.ID, rerr)
			if err == nil {
				size = 0
				err = NewError(KindExportFailed, "restore surface attributes", rerr)
			}
		}
	}()

	if err := surface.ApplyAttributes(ctx, VisibleAttributes); err != nil {
		return 0, NewError(KindExportFailed, "show surface", err)
	}

	if err := e.settle(ctx, surface); err != nil {
		return 0, NewError(KindExportFailed, "wait for surface layout", err)
	}

	bmp, err := e.capturer.Capture(ctx, surface, e.captureOpts)
	if err != nil {
		return 0, NewError(KindCaptureFailed, "capture surface", err)
	}
	if len(bmp.PNG) == 0 || bmp.Width <= 0 || bmp.Height <= 0 {
		return 0, NewError(KindCaptureFailed, "capture produced an empty bitmap", nil)
	}

	data, err := e.assembler.Assemble(ctx, bmp, e.geometry)
	if err != nil {
		return 0, NewError(KindExportFailed, "assemble document", err)
	}
	if len(data) == 0 {
		return 0, NewError(KindExportFailed, "assembled document is empty", nil)
	}

	doc := Document{
		JobID:       job.ID,
		Filename:    job.Filename,
		ContentType: "application/pdf",
		Bytes:       data,
		Invoice:     job.Invoice,
	}
	if err := MultiDelivery(deliveries).Deliver(ctx, doc); err != nil {
		return 0, NewError(KindExportFailed, "deliver document", err)
	}
	return len(data), nil
}

func (e *Exporter) settle(ctx context.Context, surface RenderSurface) error {
	if signaler, ok := surface.(ReadinessSignaler); ok {
		return signaler.WaitReady(ctx)
	}
	if e.settleDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(e.settleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// restore runs detached from ctx cancellation so a canceled export still
// puts the surface back.
func (e *Exporter) restore(ctx context.Context, surface RenderSurface, prior SurfaceAttributes) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()
	return surface.ApplyAttributes(rctx, prior)
}

func (e *Exporter) finish(ctx context.Context, job *ExportJob, size int, err error) {
	completed := e.now()
	rec := ExportRecord{
		ID:            job.ID,
		InvoiceID:     job.Invoice.ID,
		InvoiceNumber: job.Invoice.InvoiceNumber,
		Filename:      job.Filename,
		Bytes:         size,
		StartedAt:     job.StartedAt,
		CompletedAt:   completed,
	}

	if err != nil {
		rec.Outcome = OutcomeFailed
		rec.ErrorKind = KindFromError(err)
		rec.Error = err.Error()
		e.logger.Errorf("invoice export %s for %s failed: %v", job.ID, job.Invoice.ID, err)
		e.send(ctx, job, notify.Event{
			Stage:     notify.StageFailure,
			Message:   notify.MessageFailed,
			ErrorKind: string(rec.ErrorKind),
			Error:     err.Error(),
		})
	} else {
		rec.Outcome = OutcomeSucceeded
		rec.ArchiveKey = ArchiveKey(job.ID, job.Filename)
		e.logger.Infof("invoice export %s delivered %s (%d bytes)", job.ID, job.Filename, size)
		e.send(ctx, job, notify.Event{
			Stage:   notify.StageSuccess,
			Message: notify.MessageSucceeded,
			Bytes:   size,
		})
	}

	if e.history != nil {
		if _, herr := e.history.Record(context.WithoutCancel(ctx), rec); herr != nil {
			e.logger.Errorf("invoice export %s: record history: %v", job.ID, herr)
		}
	}
}

func (e *Exporter) send(ctx context.Context, job *ExportJob, evt notify.Event) {
	evt.OperationID = notify.PDFOperationID
	evt.InvoiceID = job.Invoice.ID
	evt.InvoiceNumber = job.Invoice.InvoiceNumber
	evt.Filename = job.Filename
	evt.At = e.now()
	if err := e.notifier.Send(context.WithoutCancel(ctx), evt); err != nil {
		e.logger.Errorf("invoice export %s: notify %s: %v", job.ID, evt.Stage, err)
	}
}

func (e *Exporter) setJob(job *ExportJob) {
	e.mu.Lock()
	e.job = job
	e.mu.Unlock()
}
