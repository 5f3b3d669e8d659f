package app

import (
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/pancarangroup/crmportal/pkg/crmsdk"
	"github.com/pancarangroup/crmportal/pkg/eventbus"
	"github.com/pancarangroup/crmportal/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the portal SDK components behind one composition root.
// The CLI and any embedding program talk to the services, never to the raw
// pipeline clients.
type Application struct {
	cfg    Config
	logger *slog.Logger

	store *crmsdk.SQLiteStore
	bus   *eventbus.Bus

	// Services
	Auth     *crmsdk.AuthService
	Invoices *crmsdk.InvoiceService
	Users    *crmsdk.UserService
	Files    *crmsdk.FileService
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		bus: eventbus.New(),
		logger: slogx.New(slogx.Config{
			Service: "crm-portal",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	store, err := crmsdk.NewSQLiteStore(cfg.SessionDBFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	app.store = store

	app.initServices()

	return app, nil
}

// Bus exposes the event bus so embedders can react to session teardown.
func (app *Application) Bus() *eventbus.Bus {
	return app.bus
}

// Logger exposes the application logger.
func (app *Application) Logger() *slog.Logger {
	return app.logger
}

// Close releases the session store.
func (app *Application) Close() error {
	return app.store.Close()
}

// initServices builds the pipeline clients and the services over them.
func (app *Application) initServices() {
	var limiter *rate.Limiter
	if app.cfg.RequestRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(app.cfg.RequestRate), app.cfg.RequestRate)
	}

	crm := crmsdk.NewClient(crmsdk.Config{
		BaseURL:       app.cfg.CRMBaseURL,
		ServiceToken:  app.cfg.ServiceToken,
		SessionHeader: "X-JWT",
		RequireAuth:   true,
		Limiter:       limiter,
		Logger:        app.logger,
	}, app.store, app.bus)

	userStore := crmsdk.NewUserStoreClient(
		app.cfg.UserStoreBaseURL, app.cfg.ServiceToken, app.store, app.bus, app.logger)

	files := crmsdk.NewFileClient(
		app.cfg.FileBaseURL, app.cfg.ServiceToken, app.store, app.bus, app.logger)

	tokens := crmsdk.NewTokenClient(app.cfg.TokenURL, app.cfg.TokenServiceToken)

	app.Auth = crmsdk.NewAuthService(tokens, crm, app.store, app.bus, app.logger)
	app.Invoices = crmsdk.NewInvoiceService(crm)
	app.Users = crmsdk.NewUserService(userStore)
	app.Files = crmsdk.NewFileService(files)
}
