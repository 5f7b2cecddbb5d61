package main

import (
	"time"

	"github.com/gofiber/fiber/v2"
	invoicerouter "github.com/goliatone/go-invoices/adapters/router"
	"github.com/goliatone/go-router"
)

// SetupRoutes mounts the dashboard API and a health check.
func (a *App) SetupRoutes(r router.Router[*fiber.App]) {
	handler := invoicerouter.NewHandler(invoicerouter.Config{
		Service:        a.Service,
		BasePath:       a.Config.Server.BasePath,
		Logger:         a.Logger,
		ExportTimeout:  a.Config.Export.Timeout,
		RequireSession: a.Config.Server.RequireSession,
	})
	handler.RegisterRoutes(r)

	r.Get("/healthz", a.handleHealth)
}

func (a *App) handleHealth(c router.Context) error {
	status := a.Service.ExporterStatus(c.Context())
	return c.JSON(200, map[string]any{
		"status":          "ok",
		"surface_mounted": a.Surface != nil && a.Surface.Current() != nil,
		"exporter":        status.Status,
		"time":            time.Now().UTC().Format(time.RFC3339),
	})
}
