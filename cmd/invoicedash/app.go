package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	invoiceactivity "github.com/goliatone/go-invoices/adapters/activity"
	invoicejob "github.com/goliatone/go-invoices/adapters/job"
	"github.com/goliatone/go-invoices/adapters/notifications/gonotifications"
	invoicepdf "github.com/goliatone/go-invoices/adapters/pdf"
	storefs "github.com/goliatone/go-invoices/adapters/store/fs"
	chromiumsurface "github.com/goliatone/go-invoices/adapters/surface/chromium"
	trackerbun "github.com/goliatone/go-invoices/adapters/tracker/bun"
	invoicexlsx "github.com/goliatone/go-invoices/adapters/xlsx"
	"github.com/goliatone/go-invoices/client"
	"github.com/goliatone/go-invoices/command"
	"github.com/goliatone/go-invoices/config"
	"github.com/goliatone/go-invoices/dashboard"
	"github.com/goliatone/go-invoices/invoice"
	"github.com/goliatone/go-invoices/invoice/notify"
	"github.com/goliatone/go-invoices/session"
	"github.com/goliatone/go-users/pkg/types"
	"github.com/uptrace/bun"
)

// App holds the application dependencies.
type App struct {
	Config    config.Config
	Logger    *SimpleLogger
	Sessions  *session.Manager
	Client    *client.Client
	Surface   *chromiumsurface.Surface
	Exporter  *invoice.Exporter
	History   *trackerbun.History
	Store     *storefs.Store
	Board     *notify.Board
	Service   dashboard.Service
	Registry  *gcmd.Registry
	Export    *command.ExportInvoicePDFHandler
	Prune     *command.PruneExportsHandler
	PruneTask *invoicejob.PruneTask

	db            *bun.DB
	subscriptions []dispatcher.Subscription
	stopExpiry    func()
}

// NewApp creates and initializes the application.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger := &SimpleLogger{prefix: cfg.Server.AppName}

	if err := os.MkdirAll(cfg.Export.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	sessions := session.NewManager(sessionStore(cfg.Session.File), session.WithLogger(logger))
	if ok, err := sessions.Restore(ctx); err != nil {
		logger.Errorf("session restore failed: %v", err)
	} else if ok {
		logger.Infof("restored session")
	}
	stopExpiry := sessions.OnExpired(func(_ context.Context, expired session.Session) {
		logger.Infof("session expired for %q, login required", expired.User.Email)
	})

	api := client.New(client.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Session: sessions,
		Logger:  logger,
	})

	db, err := trackerbun.OpenSQLite(cfg.History.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	history := trackerbun.NewHistory(db)
	if err := history.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	store := storefs.NewStore(cfg.Export.Dir)
	board := notify.NewBoard()

	notifiers := notify.Multi{
		board,
		invoiceactivity.NewEmitter(invoiceactivity.Config{
			Sink:  activityLog{logger: logger},
			Actor: sessionActor(sessions),
		}),
	}
	if len(cfg.Notifications.Recipients) > 0 {
		ready, err := setupReadyNotifier(ctx, logger, cfg.Notifications)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set up notifications: %w", err)
		}
		notifiers = append(notifiers, gonotifications.NewNotifier(ready, gonotifications.Config{
			Recipients: cfg.Notifications.Recipients,
			Channels:   cfg.Notifications.Channels,
			Locale:     cfg.Notifications.Locale,
			Actor: func(context.Context) string {
				current, _ := sessions.Current()
				return current.User.ID
			},
		}))
	}

	geometry, err := cfg.Geometry()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	policy, err := invoice.ParseBusyPolicy(cfg.Export.BusyPolicy)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	captureOpts := cfg.CaptureOptions()

	surface := &chromiumsurface.Surface{
		BrowserPath:         cfg.Browser.Path,
		Headless:            cfg.Browser.Headless,
		Timeout:             cfg.Browser.Timeout,
		Args:                cfg.Browser.Args,
		BlockExternalAssets: cfg.Browser.BlockExternalAssets,
		Logger:              logger,
	}
	if err := surface.Mount(ctx); err != nil {
		// exports fail with surface_unavailable until a browser is reachable
		logger.Errorf("render surface not mounted: %v", err)
	}

	exporter := invoice.NewExporter(invoice.ExporterConfig{
		Capturer:       surface,
		Assembler:      &invoicepdf.Assembler{Title: "Invoice", Creator: cfg.Server.AppName},
		Delivery:       store,
		Notifier:       notifiers,
		History:        history,
		Logger:         logger,
		Geometry:       geometry,
		CaptureOptions: &captureOpts,
		SettleDelay:    cfg.Export.SettleDelay,
		BusyPolicy:     policy,
	})

	svc := dashboard.NewService(dashboard.Config{
		API:      api,
		Exporter: exporter,
		Surface:  surface,
		History:  history,
		Archive:  store,
		Sheet:    invoicexlsx.Writer{},
		Notifier: notifiers,
		Board:    board,
		Logger:   logger,
	})

	reg := gcmd.NewRegistry()
	handlers, err := registerHandlers(reg, svc, history, cfg.Export.Retention)
	if err != nil {
		for _, sub := range handlers.subscriptions {
			sub.Unsubscribe()
		}
		_ = surface.Close()
		_ = db.Close()
		return nil, err
	}
	handlers.prune.Config.Expression = cfg.Export.PruneCron
	handlers.prune.Archive = store

	pruneTask := invoicejob.NewPruneTask(invoicejob.TaskConfig{
		Logger:   logger,
		Dispatch: handlers.prune.Execute,
	})

	return &App{
		Config:        cfg,
		Logger:        logger,
		Sessions:      sessions,
		Client:        api,
		Surface:       surface,
		Exporter:      exporter,
		History:       history,
		Store:         store,
		Board:         board,
		Service:       svc,
		Registry:      reg,
		Export:        handlers.export,
		Prune:         handlers.prune,
		PruneTask:     pruneTask,
		db:            db,
		subscriptions: handlers.subscriptions,
		stopExpiry:    stopExpiry,
	}, nil
}

// Close releases resources.
func (a *App) Close() error {
	for _, sub := range a.subscriptions {
		sub.Unsubscribe()
	}
	if a.stopExpiry != nil {
		a.stopExpiry()
	}
	var firstErr error
	if a.Surface != nil {
		if err := a.Surface.Close(); err != nil {
			firstErr = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CLICommands lists the handlers exposed as subcommands.
func (a *App) CLICommands() []cliCommand {
	return []cliCommand{a.Export, a.Prune}
}

func sessionStore(path string) session.Store {
	path = strings.TrimSpace(path)
	if path == "" {
		return session.NewMemoryStore()
	}
	if dir := filepath.Dir(path); dir != "." {
		_ = os.MkdirAll(dir, 0700)
	}
	return storefs.NewSessionFile(path)
}

func sessionActor(sessions *session.Manager) func(context.Context) invoiceactivity.Actor {
	return func(context.Context) invoiceactivity.Actor {
		current, ok := sessions.Current()
		if !ok {
			return invoiceactivity.Actor{}
		}
		return invoiceactivity.Actor{ID: current.User.ID}
	}
}

// activityLog prints activity records through the app logger.
type activityLog struct {
	logger *SimpleLogger
}

func (l activityLog) Log(_ context.Context, record types.ActivityRecord) error {
	l.logger.Infof("activity verb=%s object=%s/%s channel=%s", record.Verb, record.ObjectType, record.ObjectID, record.Channel)
	return nil
}

// SimpleLogger is a basic logger implementation.
type SimpleLogger struct {
	prefix string
}

func (l *SimpleLogger) Debugf(format string, args ...any) {
	fmt.Printf("[DEBUG] %s: %s\n", l.prefix, fmt.Sprintf(format, args...))
}

func (l *SimpleLogger) Infof(format string, args ...any) {
	fmt.Printf("[INFO] %s: %s\n", l.prefix, fmt.Sprintf(format, args...))
}

func (l *SimpleLogger) Errorf(format string, args ...any) {
	fmt.Printf("[ERROR] %s: %s\n", l.prefix, fmt.Sprintf(format, args...))
}
