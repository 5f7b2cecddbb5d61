package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/goliatone/go-invoices/config"
	"github.com/goliatone/go-router"
)

const shutdownTimeout = 10 * time.Second

type cli struct {
	Serve serveCmd `kong:"cmd,default='1',help='Run the dashboard API server'"`
}

type serveCmd struct {
	Addr string `kong:"name='addr',help='Listen address, overrides the configured one'"`
}

func main() {
	ctx := context.Background()

	// INVOICES_CONFIG names an optional YAML file, INVOICES_ENV_FILE an
	// optional .env file.
	cfg, err := config.Load(os.Getenv("INVOICES_CONFIG"), os.Getenv("INVOICES_ENV_FILE"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	app, err := NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to create app: %v", err)
	}
	defer app.Close()

	var grammar cli
	options := []kong.Option{
		kong.Name(cfg.Server.AppName),
		kong.Description("Invoice dashboard API and PDF export tools"),
		kong.UsageOnError(),
	}
	for _, cmd := range app.CLICommands() {
		opts := cmd.CLIOptions()
		if len(opts.Path) == 0 {
			continue
		}
		options = append(options, kong.DynamicCommand(strings.Join(opts.Path, "-"), opts.Description, opts.Group, cmd.CLIHandler()))
	}

	parser, err := kong.New(&grammar, options...)
	if err != nil {
		log.Fatalf("failed to build cli: %v", err)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := kctx.Run(app); err != nil {
		app.Logger.Errorf("%v", err)
		_ = app.Close()
		os.Exit(1)
	}
}

// Run serves the API until SIGINT or SIGTERM.
func (s *serveCmd) Run(app *App) error {
	srv := buildServer(app)
	app.SetupRoutes(srv.Router())

	addr := app.Config.Server.Address
	if s.Addr != "" {
		addr = s.Addr
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go app.PruneTask.Every(loopCtx, app.Config.Export.PruneEvery)

	go func() {
		log.Printf("Starting server on %s", addr)
		log.Printf("Dashboard API: %s%s", addr, app.Config.Server.BasePath)
		if err := srv.Serve(addr); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildServer(app *App) router.Server[*fiber.App] {
	return router.NewFiberAdapter(fiberAppInitializer(app.Config))
}

func fiberAppInitializer(cfg config.Config) func(*fiber.App) *fiber.App {
	return func(*fiber.App) *fiber.App {
		fiberApp := fiber.New(fiber.Config{
			AppName: cfg.Server.AppName,
		})

		fiberApp.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		}))
		fiberApp.Use(cors.New(cors.Config{
			AllowOrigins:  strings.Join(cfg.Server.CORSOrigins, ","),
			AllowMethods:  "GET,POST,PATCH,PUT,DELETE,OPTIONS",
			AllowHeaders:  "Content-Type,Authorization",
			ExposeHeaders: "Content-Disposition,X-Export-Id",
		}))

		return fiberApp
	}
}
