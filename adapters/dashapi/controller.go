package dashapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errorslib "github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoices/dashboard"
	"github.com/goliatone/go-invoices/invoice"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sheetFilename   = "invoices.xlsx"
)

// Config configures the shared dashboard API controller.
type Config struct {
	Service      dashboard.Service
	BasePath     string
	Logger       invoice.Logger
	MaxBodyBytes int64
	// ExportTimeout bounds a single PDF export. Zero disables the bound.
	ExportTimeout time.Duration
	// RequireSession rejects every route but /session until a user logs in.
	RequireSession bool
	Now            func() time.Time
}

// Controller exposes dashboard API handlers for multiple transports.
type Controller struct {
	service        dashboard.Service
	basePath       string
	logger         invoice.Logger
	maxBodyBytes   int64
	exportTimeout  time.Duration
	requireSession bool
	now            func() time.Time
}

// NewController creates a shared dashboard API controller.
func NewController(cfg Config) *Controller {
	basePath := strings.TrimRight(cfg.BasePath, "/")
	if basePath == "" {
		basePath = "/api"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = invoice.NopLogger{}
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		service:        cfg.Service,
		basePath:       basePath,
		logger:         logger,
		maxBodyBytes:   maxBody,
		exportTimeout:  cfg.ExportTimeout,
		requireSession: cfg.RequireSession,
		now:            now,
	}
}

// BasePath returns the configured base path.
func (c *Controller) BasePath() string {
	if c == nil {
		return ""
	}
	return c.basePath
}

// Serve routes dashboard endpoints.
func (c *Controller) Serve(req Request, res Response) {
	if res == nil {
		return
	}
	if c == nil || c.service == nil {
		WriteError(res, invoice.NewError(invoice.KindInternal, "dashboard service not configured", nil))
		return
	}
	if req == nil {
		WriteError(res, invoice.NewError(invoice.KindInternal, "request is nil", nil))
		return
	}
	if req.Path() != c.basePath && !strings.HasPrefix(req.Path(), c.basePath+"/") {
		writeNotFound(res)
		return
	}

	suffix := strings.Trim(strings.TrimPrefix(req.Path(), c.basePath), "/")
	parts := []string{}
	if suffix != "" {
		parts = strings.Split(suffix, "/")
	}
	if len(parts) == 0 {
		writeNotFound(res)
		return
	}

	if c.requireSession && parts[0] != "session" {
		if _, ok := c.service.CurrentSession(req.Context()); !ok {
			WriteError(res, invoice.NewError(invoice.KindUnauthenticated, "login required", nil))
			return
		}
	}

	method := req.Method()
	switch parts[0] {
	case "session":
		if len(parts) != 1 {
			writeNotFound(res)
			return
		}
		switch method {
		case http.MethodPost:
			c.handleLogin(req, res)
		case http.MethodGet:
			c.handleSession(req, res)
		case http.MethodDelete:
			c.handleLogout(req, res)
		default:
			writeMethodNotAllowed(res)
		}
	case "invoices":
		c.routeInvoices(req, res, method, parts[1:])
	case sheetFilename:
		if len(parts) != 1 || method != http.MethodGet {
			writeNotFound(res)
			return
		}
		c.handleSheet(req, res)
	case "customers":
		if len(parts) != 1 || method != http.MethodGet {
			writeNotFound(res)
			return
		}
		c.handleCustomers(req, res)
	case "exports":
		c.routeExports(req, res, method, parts[1:])
	case "notifications":
		c.routeNotifications(req, res, method, parts[1:])
	default:
		writeNotFound(res)
	}
}

func (c *Controller) routeInvoices(req Request, res Response, method string, parts []string) {
	switch len(parts) {
	case 0:
		switch method {
		case http.MethodGet:
			c.handleListInvoices(req, res)
		case http.MethodPost:
			c.handleCreateInvoice(req, res)
		default:
			writeMethodNotAllowed(res)
		}
	case 1:
		switch method {
		case http.MethodGet:
			c.handleGetInvoice(req, res, parts[0])
		case http.MethodPatch, http.MethodPut:
			c.handleUpdateInvoice(req, res, parts[0])
		case http.MethodDelete:
			c.handleDeleteInvoice(req, res, parts[0])
		default:
			writeMethodNotAllowed(res)
		}
	case 2:
		if parts[1] != "pdf" {
			writeNotFound(res)
			return
		}
		if method != http.MethodPost {
			writeMethodNotAllowed(res)
			return
		}
		c.handleExportPDF(req, res, parts[0])
	default:
		writeNotFound(res)
	}
}

func (c *Controller) routeExports(req Request, res Response, method string, parts []string) {
	if method != http.MethodGet {
		writeMethodNotAllowed(res)
		return
	}
	switch {
	case len(parts) == 0:
		c.handleHistory(req, res)
	case len(parts) == 1 && parts[0] == "status":
		writeJSON(res, http.StatusOK, c.service.ExporterStatus(req.Context()))
	case len(parts) == 2 && parts[1] == "download":
		c.handleDownload(req, res, parts[0])
	default:
		writeNotFound(res)
	}
}

func (c *Controller) routeNotifications(req Request, res Response, method string, parts []string) {
	switch {
	case len(parts) == 0 && method == http.MethodGet:
		writeJSON(res, http.StatusOK, c.service.Notifications(req.Context()))
	case len(parts) == 1 && method == http.MethodDelete:
		c.service.DismissNotification(req.Context(), parts[0])
		res.WriteHeader(http.StatusNoContent)
	default:
		writeNotFound(res)
	}
}

func (c *Controller) handleLogin(req Request, res Response) {
	creds, err := decodeCredentials(req, c.maxBodyBytes)
	if err != nil {
		WriteError(res, err)
		return
	}
	sess, err := c.service.Login(req.Context(), creds)
	if err != nil {
		WriteError(res, err)
		return
	}
	user := sess.User
	writeJSON(res, http.StatusOK, SessionResponse{Authenticated: true, User: &user})
}

func (c *Controller) handleSession(req Request, res Response) {
	sess, ok := c.service.CurrentSession(req.Context())
	if !ok {
		writeJSON(res, http.StatusOK, SessionResponse{})
		return
	}
	user := sess.User
	writeJSON(res, http.StatusOK, SessionResponse{Authenticated: true, User: &user})
}

func (c *Controller) handleLogout(req Request, res Response) {
	if err := c.service.Logout(req.Context()); err != nil {
		WriteError(res, err)
		return
	}
	res.WriteHeader(http.StatusNoContent)
}

func (c *Controller) handleListInvoices(req Request, res Response) {
	list, err := c.service.ListInvoices(req.Context())
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, list)
}

func (c *Controller) handleGetInvoice(req Request, res Response, id string) {
	summary, err := c.service.GetInvoice(req.Context(), id)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, summary)
}

func (c *Controller) handleCreateInvoice(req Request, res Response) {
	draft, err := decodeDraft(req, c.maxBodyBytes)
	if err != nil {
		WriteError(res, err)
		return
	}
	inv, err := c.service.CreateInvoice(req.Context(), draft)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusCreated, inv)
}

func (c *Controller) handleUpdateInvoice(req Request, res Response, id string) {
	draft, err := decodeDraft(req, c.maxBodyBytes)
	if err != nil {
		WriteError(res, err)
		return
	}
	inv, err := c.service.UpdateInvoice(req.Context(), id, draft)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, inv)
}

func (c *Controller) handleDeleteInvoice(req Request, res Response, id string) {
	if err := c.service.DeleteInvoice(req.Context(), id); err != nil {
		WriteError(res, err)
		return
	}
	res.WriteHeader(http.StatusNoContent)
}

func (c *Controller) handleCustomers(req Request, res Response) {
	customers, err := c.service.ListCustomers(req.Context())
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, customers)
}

func (c *Controller) handleExportPDF(req Request, res Response, id string) {
	ctx := req.Context()
	if c.exportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.exportTimeout)
		defer cancel()
	}
	doc, result, err := c.service.ExportPDF(ctx, id)
	if err != nil {
		WriteError(res, err)
		return
	}
	if wantsJSON(req) {
		writeJSON(res, http.StatusOK, ExportResponse{
			JobID:    result.JobID,
			Filename: result.Filename,
			Bytes:    result.Bytes,
			At:       c.now(),
		})
		return
	}

	setDownloadHeaders(res, result.JobID, doc.Filename, doc.ContentType)
	res.SetHeader("Content-Length", fmt.Sprintf("%d", len(doc.Bytes)))
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(doc.Bytes); err != nil {
		c.logger.Errorf("pdf write failed: %v", err)
	}
}

func (c *Controller) handleHistory(req Request, res Response) {
	filter, err := parseHistoryFilter(req)
	if err != nil {
		WriteError(res, err)
		return
	}
	records, err := c.service.ExportHistory(req.Context(), filter)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, records)
}

func (c *Controller) handleDownload(req Request, res Response, exportID string) {
	dl, closer, err := c.service.DownloadExport(req.Context(), exportID)
	if err != nil {
		WriteError(res, err)
		return
	}

	setDownloadHeaders(res, dl.JobID, dl.Filename, dl.ContentType)
	if dl.Size > 0 {
		res.SetHeader("Content-Length", fmt.Sprintf("%d", dl.Size))
	}

	if streamer, ok := res.(DownloadStreamer); ok {
		if err := streamer.StreamDownload(dl, closer); err != nil {
			c.logger.Errorf("download stream failed: %v", err)
		}
		return
	}
	defer closer.Close()

	if writer, ok := res.Writer(); ok {
		res.WriteHeader(http.StatusOK)
		if _, err := io.Copy(writer, dl.Reader); err != nil {
			c.logger.Errorf("download copy failed: %v", err)
		}
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, dl.Reader); err != nil {
		clearDownloadHeaders(res)
		WriteError(res, err)
		return
	}
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(buf.Bytes()); err != nil {
		c.logger.Errorf("download buffer write failed: %v", err)
	}
}

func (c *Controller) handleSheet(req Request, res Response) {
	var buf bytes.Buffer
	if err := c.service.WriteInvoiceSheet(req.Context(), &buf); err != nil {
		WriteError(res, err)
		return
	}
	setDownloadHeaders(res, "", sheetFilename, xlsxContentType)
	res.SetHeader("Content-Length", fmt.Sprintf("%d", buf.Len()))
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(buf.Bytes()); err != nil {
		c.logger.Errorf("sheet write failed: %v", err)
	}
}

func wantsJSON(req Request) bool {
	accept := strings.ToLower(req.Header("Accept"))
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "application/pdf")
}

func writeNotFound(res Response) {
	WriteError(res, invoice.NewError(invoice.KindNotFound, "not found", nil))
}

func writeMethodNotAllowed(res Response) {
	writeJSON(res, http.StatusMethodNotAllowed, ErrorResponse{
		Error: ErrorBody{Message: "method not allowed", Code: "method_not_allowed"},
	})
}

// WriteError writes a JSON error response.
func WriteError(res Response, err error) {
	if err == nil {
		res.WriteHeader(http.StatusNoContent)
		return
	}
	ge := invoice.AsGoError(err)
	status := statusForError(ge)
	payload := ErrorResponse{
		Error: ErrorBody{
			Message: ge.Message,
			Code:    ge.TextCode,
		},
	}
	writeJSON(res, status, payload)
}

func writeJSON(res Response, status int, payload any) {
	_ = res.WriteJSON(status, payload)
}

func statusForError(err *errorslib.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch err.TextCode {
	case string(invoice.KindSurfaceBusy), string(invoice.KindCanceled):
		return http.StatusConflict
	case string(invoice.KindUnauthenticated):
		return http.StatusUnauthorized
	case string(invoice.KindSurfaceUnavailable):
		return http.StatusServiceUnavailable
	case string(invoice.KindRemote):
		return http.StatusBadGateway
	case string(invoice.KindTimeout):
		return http.StatusGatewayTimeout
	case string(invoice.KindCaptureFailed), string(invoice.KindExportFailed):
		return http.StatusInternalServerError
	}
	switch err.Category {
	case errorslib.CategoryValidation:
		return http.StatusBadRequest
	case errorslib.CategoryAuthz:
		return http.StatusForbidden
	case errorslib.CategoryNotFound:
		return http.StatusNotFound
	case errorslib.CategoryOperation:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func sanitizeFilename(filename string) string {
	name := strings.TrimSpace(filename)
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "invoice.pdf"
	}
	return name
}

func setDownloadHeaders(res Response, jobID, filename, contentType string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	res.SetHeader("Content-Type", contentType)
	res.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", sanitizeFilename(filename)))
	if jobID != "" {
		res.SetHeader("X-Export-Id", jobID)
	}
}

func clearDownloadHeaders(res Response) {
	res.DelHeader("Content-Disposition")
	res.DelHeader("Content-Type")
	res.DelHeader("Content-Length")
	res.DelHeader("X-Export-Id")
}
