package main

import (
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoices/command"
	"github.com/goliatone/go-invoices/dashboard"
	"github.com/goliatone/go-invoices/query"
)

// cliCommand is a handler that also runs as a subcommand.
type cliCommand interface {
	CLIHandler() any
	CLIOptions() gcmd.CLIConfig
}

type registeredHandlers struct {
	export        *command.ExportInvoicePDFHandler
	prune         *command.PruneExportsHandler
	subscriptions []dispatcher.Subscription
}

// registerHandlers wires invoice commands and queries to go-command.
func registerHandlers(reg *gcmd.Registry, svc dashboard.Service, pruner command.HistoryPruner, retention time.Duration) (registeredHandlers, error) {
	if svc == nil {
		return registeredHandlers{}, errors.New("dashboard service is required", errors.CategoryValidation).
			WithTextCode("SERVICE_REQUIRED")
	}

	export := command.NewExportInvoicePDFHandler(svc)
	create := command.NewCreateInvoiceHandler(svc)
	update := command.NewUpdateInvoiceHandler(svc)
	del := command.NewDeleteInvoiceHandler(svc)
	login := command.NewLoginHandler(svc)
	logout := command.NewLogoutHandler(svc)
	prune := command.NewPruneExportsHandler(pruner, retention)

	list := query.NewListInvoicesHandler(svc)
	get := query.NewGetInvoiceHandler(svc)
	customers := query.NewListCustomersHandler(svc)
	history := query.NewExportHistoryHandler(svc)
	status := query.NewExporterStatusHandler(svc)
	notifications := query.NewNotificationsHandler(svc)
	current := query.NewCurrentSessionHandler(svc)

	out := registeredHandlers{
		export: export,
		prune:  prune,
		subscriptions: []dispatcher.Subscription{
			dispatcher.SubscribeCommand(export),
			dispatcher.SubscribeCommand(create),
			dispatcher.SubscribeCommand(update),
			dispatcher.SubscribeCommand(del),
			dispatcher.SubscribeCommand(login),
			dispatcher.SubscribeCommand(logout),
			dispatcher.SubscribeCommand(prune),
			dispatcher.SubscribeQuery(list),
			dispatcher.SubscribeQuery(get),
			dispatcher.SubscribeQuery(customers),
			dispatcher.SubscribeQuery(history),
			dispatcher.SubscribeQuery(status),
			dispatcher.SubscribeQuery(notifications),
			dispatcher.SubscribeQuery(current),
		},
	}

	if reg != nil {
		handlers := []any{
			export,
			create,
			update,
			del,
			login,
			logout,
			prune,
			list,
			get,
			customers,
			history,
			status,
			notifications,
			current,
		}
		for _, handler := range handlers {
			if err := reg.RegisterCommand(handler); err != nil {
				return out, err
			}
		}
	}

	return out, nil
}
