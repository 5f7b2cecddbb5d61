package main

import (
	"context"
	"fmt"
	"strings"

	i18n "github.com/goliatone/go-i18n"
	"github.com/goliatone/go-invoices/config"
	"github.com/goliatone/go-notifications/pkg/adapters"
	"github.com/goliatone/go-notifications/pkg/adapters/console"
	notifconfig "github.com/goliatone/go-notifications/pkg/config"
	"github.com/goliatone/go-notifications/pkg/inbox"
	"github.com/goliatone/go-notifications/pkg/interfaces/broadcaster"
	"github.com/goliatone/go-notifications/pkg/interfaces/cache"
	notiflogger "github.com/goliatone/go-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-notifications/pkg/notifier"
	"github.com/goliatone/go-notifications/pkg/onready"
	"github.com/goliatone/go-notifications/pkg/storage"
	"github.com/goliatone/go-notifications/pkg/templates"
)

// setupReadyNotifier builds an in-memory go-notifications stack that
// delivers "document ready" messages through the console adapter.
func setupReadyNotifier(ctx context.Context, logger *SimpleLogger, cfg config.NotificationsConfig) (onready.OnReadyNotifier, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Infof("notifications enabled recipients=%v channels=%v locale=%s", cfg.Recipients, cfg.Channels, cfg.Locale)

	store := i18n.NewStaticStore(onready.Translations())
	translator, err := i18n.NewSimpleTranslator(store, i18n.WithTranslatorDefaultLocale("en"))
	if err != nil {
		return nil, err
	}

	providers := storage.NewMemoryProviders()
	logSink := notificationsLogger{base: logger}
	tplSvc, err := templates.New(templates.Dependencies{
		Repository:    providers.Templates,
		Cache:         &cache.Nop{},
		Logger:        logSink,
		Translator:    translator,
		Fallbacks:     i18n.NewStaticFallbackResolver(),
		DefaultLocale: "en",
	})
	if err != nil {
		return nil, err
	}

	inboxSvc, err := inbox.New(inbox.Dependencies{
		Repository:  providers.Inbox,
		Broadcaster: &broadcaster.Nop{},
		Logger:      logSink,
	})
	if err != nil {
		return nil, err
	}

	regResult, err := onready.Register(ctx, onready.Dependencies{
		Definitions: providers.Definitions,
		Templates:   tplSvc,
	}, onready.Options{})
	if err != nil {
		return nil, err
	}

	registry := adapters.NewRegistry(console.New(logSink))
	manager, err := notifier.New(notifier.Dependencies{
		Definitions: providers.Definitions,
		Events:      providers.Events,
		Messages:    providers.Messages,
		Attempts:    providers.DeliveryAttempts,
		Templates:   tplSvc,
		Adapters:    registry,
		Logger:      logSink,
		Config: notifconfig.DispatcherConfig{
			EnvFallbackAllowlist: cfg.Recipients,
		},
		Inbox: inboxSvc,
	})
	if err != nil {
		return nil, err
	}

	return onready.NewNotifier(manager, regResult.DefinitionCode)
}

type notificationsLogger struct {
	base *SimpleLogger
}

func (l notificationsLogger) With(fields ...notiflogger.Field) notiflogger.Logger {
	_ = fields
	return l
}

func (l notificationsLogger) Debug(msg string, fields ...notiflogger.Field) {
	l.log("DEBUG", msg, fields...)
}

func (l notificationsLogger) Info(msg string, fields ...notiflogger.Field) {
	l.log("INFO", msg, fields...)
}

func (l notificationsLogger) Warn(msg string, fields ...notiflogger.Field) {
	l.log("WARN", msg, fields...)
}

func (l notificationsLogger) Error(msg string, fields ...notiflogger.Field) {
	l.log("ERROR", msg, fields...)
}

func (l notificationsLogger) log(level, msg string, fields ...notiflogger.Field) {
	if l.base == nil {
		return
	}
	if level == "ERROR" {
		l.base.Errorf("[go-notifications] %s%s", msg, formatNotifFields(fields))
		return
	}
	l.base.Infof("[go-notifications][%s] %s%s", level, msg, formatNotifFields(fields))
}

func formatNotifFields(fields []notiflogger.Field) string {
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", field.Key, field.Value))
	}
	return " " + strings.Join(parts, " ")
}
