package invoicerouter

import (
	"github.com/goliatone/go-invoices/adapters/dashapi"
	"github.com/goliatone/go-invoices/invoice"
	"github.com/goliatone/go-router"
)

// Config configures the go-router adapter.
type Config = dashapi.Config

// Handler exposes dashboard routes for go-router.
type Handler struct {
	controller *dashapi.Controller
}

// NewHandler creates a go-router handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: dashapi.NewController(cfg)}
}

// RegisterRoutes registers routes on a compatible go-router router.
func (h *Handler) RegisterRoutes(router any) {
	r, ok := router.(routeRegistrar)
	if !ok {
		return
	}
	base := h.basePath()

	r.Get(base+"/session", h.Handle)
	r.Post(base+"/session", h.Handle)
	r.Delete(base+"/session", h.Handle)

	r.Get(base+"/invoices", h.Handle)
	r.Post(base+"/invoices", h.Handle)
	r.Get(base+"/invoices.xlsx", h.Handle)
	r.Get(base+"/invoices/:id", h.Handle)
	r.Delete(base+"/invoices/:id", h.Handle)
	r.Post(base+"/invoices/:id/pdf", h.Handle)
	if p, ok := router.(patchRegistrar); ok {
		p.Patch(base+"/invoices/:id", h.Handle)
	}
	if p, ok := router.(putRegistrar); ok {
		p.Put(base+"/invoices/:id", h.Handle)
	}

	r.Get(base+"/customers", h.Handle)

	r.Get(base+"/exports", h.Handle)
	r.Get(base+"/exports/status", h.Handle)
	r.Get(base+"/exports/:id/download", h.Handle)

	r.Get(base+"/notifications", h.Handle)
	r.Delete(base+"/notifications/:id", h.Handle)
}

// Handle executes the shared dashboard workflow.
func (h *Handler) Handle(c router.Context) error {
	if c == nil {
		return nil
	}
	if h == nil || h.controller == nil {
		dashapi.WriteError(routerResponse{ctx: c}, invoice.NewError(invoice.KindInternal, "handler is nil", nil))
		return nil
	}
	h.controller.Serve(routerRequest{ctx: c}, routerResponse{ctx: c})
	return nil
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

type routeRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

type patchRegistrar interface {
	Patch(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

type putRegistrar interface {
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}
