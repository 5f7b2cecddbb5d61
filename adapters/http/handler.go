package invoicehttp

import (
	"net/http"

	"github.com/goliatone/go-invoices/adapters/dashapi"
	"github.com/goliatone/go-invoices/invoice"
)

// Config configures the HTTP adapter.
type Config = dashapi.Config

// Handler exposes dashboard HTTP endpoints.
type Handler struct {
	controller *dashapi.Controller
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: dashapi.NewController(cfg)}
}

// RegisterRoutes registers handlers on a compatible router.
func (h *Handler) RegisterRoutes(router any) {
	switch r := router.(type) {
	case interface{ Handle(string, http.Handler) }:
		r.Handle(h.basePath(), h)
		r.Handle(h.basePath()+"/", h)
	case interface {
		HandleFunc(string, func(http.ResponseWriter, *http.Request))
	}:
		r.HandleFunc(h.basePath(), h.ServeHTTP)
		r.HandleFunc(h.basePath()+"/", h.ServeHTTP)
	}
}

// ServeHTTP routes dashboard endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	if h == nil || h.controller == nil {
		dashapi.WriteError(httpResponse{w: w}, invoice.NewError(invoice.KindInternal, "handler is nil", nil))
		return
	}
	h.controller.Serve(httpRequest{r: r}, httpResponse{w: w, r: r})
}

func (h *Handler) basePath() string {
	if h == nil || h.controller == nil {
		return "/api"
	}
	path := h.controller.BasePath()
	if path == "" {
		return "/api"
	}
	return path
}
