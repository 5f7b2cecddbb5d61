package invoice

import (
	"context"
	"time"
)

// Invoice is a remote invoice record as the dashboard reads it.
type Invoice struct {
	ID            string     `json:"_id"`
	CustomerName  string     `json:"customerName,omitempty"`
	CustomerPhone string     `json:"customerPhone,omitempty"`
	Date          time.Time  `json:"date,omitempty"`
	CreatedAt     time.Time  `json:"createdAt,omitempty"`
	Items         []LineItem `json:"items"`
	TotalAmount   *float64   `json:"totalAmount,omitempty"`
	IsModified    bool       `json:"isModified,omitempty"`
	IsDeleted     bool       `json:"isDeleted,omitempty"`
	InvoiceNumber string     `json:"invoiceNumber,omitempty"`
}

// LineItem is one row of an invoice. It has no identity beyond its position.
type LineItem struct {
	ID       string  `json:"_id,omitempty"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// Customer is a remote customer record.
type Customer struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// Status is the derived lifecycle state of an invoice.
type Status string

const (
	StatusActive   Status = "active"
	StatusModified Status = "modified"
	StatusDeleted  Status = "deleted"
)

// SurfaceAttributes are the layout attributes the pipeline toggles on a
// render surface.
type SurfaceAttributes struct {
	Position   string `json:"position"`
	Visibility string `json:"visibility"`
	ZIndex     string `json:"zIndex"`
	Top        string `json:"top"`
	Left       string `json:"left"`
}

// VisibleAttributes is the on-screen state applied before capture.
var VisibleAttributes = SurfaceAttributes{
	Position:   "absolute",
	Visibility: "visible",
	ZIndex:     "9999",
	Top:        "0",
	Left:       "0",
}

// RenderSurface is a caller-owned, normally hidden visual representation of
// one invoice.
type RenderSurface interface {
	Attributes(ctx context.Context) (SurfaceAttributes, error)
	ApplyAttributes(ctx context.Context, attrs SurfaceAttributes) error
}

// SurfaceRef resolves the currently mounted surface. Current returns nil
// when nothing is mounted.
type SurfaceRef interface {
	Current() RenderSurface
}

// SurfaceRefFunc adapts a function to SurfaceRef.
type SurfaceRefFunc func() RenderSurface

func (fn SurfaceRefFunc) Current() RenderSurface {
	if fn == nil {
		return nil
	}
	return fn()
}

// StaticSurface returns a SurfaceRef that always resolves to surface.
func StaticSurface(surface RenderSurface) SurfaceRef {
	return SurfaceRefFunc(func() RenderSurface { return surface })
}

// Presenter is implemented by surfaces that can display an invoice on demand.
type Presenter interface {
	Present(ctx context.Context, inv Invoice) error
}

// ReadinessSignaler is implemented by surfaces that can report layout
// completion.
type ReadinessSignaler interface {
	WaitReady(ctx context.Context) error
}

// CaptureOptions controls raster capture.
type CaptureOptions struct {
	Scale               float64
	Background          string
	AllowExternalAssets bool
	ForceVisible        bool
}

// DefaultCaptureOptions returns the print-quality capture settings.
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{
		Scale:               2,
		Background:          "#ffffff",
		AllowExternalAssets: true,
		ForceVisible:        true,
	}
}

// Bitmap is a captured raster image.
type Bitmap struct {
	PNG    []byte
	Width  int
	Height int
}

// Capturer rasterizes a render surface.
type Capturer interface {
	Capture(ctx context.Context, surface RenderSurface, opts CaptureOptions) (Bitmap, error)
}

// CapturerFunc adapts a function to Capturer.
type CapturerFunc func(ctx context.Context, surface RenderSurface, opts CaptureOptions) (Bitmap, error)

func (fn CapturerFunc) Capture(ctx context.Context, surface RenderSurface, opts CaptureOptions) (Bitmap, error) {
	return fn(ctx, surface, opts)
}

// Assembler embeds a bitmap into a paged document.
type Assembler interface {
	Assemble(ctx context.Context, bmp Bitmap, geom PageGeometry) ([]byte, error)
}

// AssemblerFunc adapts a function to Assembler.
type AssemblerFunc func(ctx context.Context, bmp Bitmap, geom PageGeometry) ([]byte, error)

func (fn AssemblerFunc) Assemble(ctx context.Context, bmp Bitmap, geom PageGeometry) ([]byte, error) {
	return fn(ctx, bmp, geom)
}

// Document is an assembled export ready for delivery.
type Document struct {
	// JobID is the export job that produced the document, empty outside
	// the pipeline.
	JobID       string
	Filename    string
	ContentType string
	Bytes       []byte
	Invoice     Invoice
}

// Delivery hands a document to the host environment.
type Delivery interface {
	Deliver(ctx context.Context, doc Document) error
}

// DeliveryFunc adapts a function to Delivery.
type DeliveryFunc func(ctx context.Context, doc Document) error

func (fn DeliveryFunc) Deliver(ctx context.Context, doc Document) error {
	return fn(ctx, doc)
}

// JobStatus is the state of a transient export job.
type JobStatus string

const (
	JobIdle       JobStatus = "idle"
	JobGenerating JobStatus = "generating"
)

// ExportJob is one in-flight invocation of the pipeline. It is not persisted.
type ExportJob struct {
	ID        string
	Invoice   Invoice
	Filename  string
	Surface   RenderSurface
	Status    JobStatus
	StartedAt time.Time
}

// Result describes a successful export.
type Result struct {
	JobID    string
	Filename string
	Bytes    int
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
