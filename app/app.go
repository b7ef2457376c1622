// Package app builds the service from configuration and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/rxintake/ai/ocr"
	"github.com/Abraxas-365/rxintake/ai/providers/aianthropic"
	"github.com/Abraxas-365/rxintake/ai/providers/aiopenai"
	"github.com/Abraxas-365/rxintake/api"
	"github.com/Abraxas-365/rxintake/asyncx"
	"github.com/Abraxas-365/rxintake/auth"
	"github.com/Abraxas-365/rxintake/configx"
	"github.com/Abraxas-365/rxintake/eventx"
	"github.com/Abraxas-365/rxintake/eventx/sqsbus"
	"github.com/Abraxas-365/rxintake/fsx"
	"github.com/Abraxas-365/rxintake/fsx/localfs"
	"github.com/Abraxas-365/rxintake/fsx/s3fs"
	"github.com/Abraxas-365/rxintake/intake"
	"github.com/Abraxas-365/rxintake/logx"
	"github.com/Abraxas-365/rxintake/persist"
	"github.com/Abraxas-365/rxintake/persist/memstore"
	"github.com/Abraxas-365/rxintake/persist/mongostore"
	"github.com/Abraxas-365/rxintake/persist/pgstore"
	"github.com/gofiber/fiber/v2"
)

type closer struct {
	name string
	fn   func(context.Context) error
}

// App holds the wired service
type App struct {
	Config  Config
	Server  *fiber.App
	Service *intake.Service
	Tokens  *auth.TokenService
	Store   persist.Store

	// frontends stop taking work and drain, one after another, before any
	// backend closes
	frontends []closer
	backends  []closer
}

// New connects every backend named by cfg. On error, whatever was already
// opened is closed again.
func New(ctx context.Context, cfg Config) (_ *App, err error) {
	ConfigureLogging(cfg)

	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	objects, err := OpenObjectStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	provider, err := NewProvider(cfg.Extraction)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.backends = append(a.backends, closer{"database", store.Close})

	bus, err := OpenBus(ctx, cfg.Events)
	if err != nil {
		return nil, err
	}
	a.backends = append(a.backends, closer{"events", bus.Close})

	gateway := persist.NewGateway(store, store, persist.Options{
		AtomicMedicines: cfg.AtomicMedicines,
		MergeAttempts:   cfg.MergeAttempts,
	})
	a.Service = intake.NewService(
		intake.NewUploader(objects, cfg.Storage.PublicBase),
		intake.NewExtractor(provider, intake.ExtractorConfig{
			Model:     cfg.Extraction.Model,
			MaxTokens: cfg.Extraction.MaxTokens,
			Timeout:   cfg.Extraction.Timeout,
			ImageMode: intake.ImageMode(cfg.Extraction.ImageMode),
		}),
		gateway,
		intake.NewSessions(cfg.SessionTTL),
		bus,
	)

	a.Tokens = auth.NewTokenService(auth.TokenConfig{
		Secret:   []byte(cfg.Auth.Secret),
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Leeway:   30 * time.Second,
	})

	a.Server = api.NewServer(api.ServerConfig{
		BodyLimit:    cfg.Server.BodyLimitMB << 20,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, api.NewHandler(a.Service, gateway), a.Tokens)
	if cfg.Storage.Driver == "local" {
		a.Server.Static("/uploads", cfg.Storage.LocalDir)
	}
	a.frontends = append(a.frontends, closer{"http", func(ctx context.Context) error {
		return a.Server.ShutdownWithContext(ctx)
	}})

	logx.Info("rxintake wired: storage=%s extraction=%s(%s) database=%s events=%s",
		cfg.Storage.Driver, cfg.Extraction.Provider, provider.Name(), cfg.Database.Driver, cfg.Events.Driver)
	return a, nil
}

// Run serves HTTP and sweeps idle sessions until ctx is cancelled, then
// shuts down within grace.
func (a *App) Run(ctx context.Context, grace time.Duration) error {
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.Service.Sessions().Run(sweepCtx, a.Config.SweepInterval)

	addr := fmt.Sprintf(":%d", a.Config.Server.Port)
	errc := make(chan error, 1)
	go func() {
		logx.Info("listening on %s", addr)
		errc <- a.Server.Listen(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logx.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	return a.Close(shutdownCtx)
}

// Close shuts the HTTP server down and waits for in-flight requests, so a
// confirm that is mid-commit still has its database and bus. The backends
// then close concurrently.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.frontends {
		errs = append(errs, c.close(ctx))
	}
	_, err := asyncx.All(ctx, a.backends, func(ctx context.Context, c closer) (struct{}, error) {
		return struct{}{}, c.close(ctx)
	})
	return errors.Join(append(errs, err)...)
}

func (c closer) close(ctx context.Context) error {
	if err := c.fn(ctx); err != nil {
		logx.Warn("closing %s: %v", c.name, err)
		return fmt.Errorf("close %s: %w", c.name, err)
	}
	return nil
}

// ConfigureLogging applies log.level and log.format over the LOG_ variables
func ConfigureLogging(cfg Config) {
	if err := logx.Configure(logx.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		logx.Warn("log.level ignored: %v", err)
	}
}

func OpenObjectStore(ctx context.Context, cfg StorageConfig) (fsx.ObjectStore, error) {
	switch cfg.Driver {
	case "local":
		return localfs.New(cfg.LocalDir)
	case "s3":
		return s3fs.New(ctx, s3fs.Options{
			Bucket:       cfg.Bucket,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			UsePathStyle: cfg.PathStyle,
			PublicRead:   cfg.PublicRead,
		})
	}
	return nil, unknownDriver("storage.driver", cfg.Driver)
}

func NewProvider(cfg ExtractionConfig) (ocr.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return aiopenai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL), nil
	case "anthropic":
		return aianthropic.NewAnthropicProvider(cfg.APIKey, cfg.BaseURL), nil
	}
	return nil, unknownDriver("extraction.provider", cfg.Provider)
}

// OpenStore connects the configured database. The memory driver keeps
// everything in process and is meant for development.
func OpenStore(ctx context.Context, cfg DatabaseConfig) (persist.Store, error) {
	switch cfg.Driver {
	case "memory":
		logx.Warn("database.driver=memory: confirmed prescriptions are lost on restart")
		return memstore.New(), nil
	case "postgres":
		return pgstore.Open(ctx, cfg.DSN)
	case "mongo":
		return mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	}
	return nil, unknownDriver("database.driver", cfg.Driver)
}

// Migrate creates the schema of the configured database
func Migrate(ctx context.Context, cfg DatabaseConfig) error {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	m, ok := store.(interface{ Migrate(context.Context) error })
	if !ok {
		return configx.ErrorRegistry.NewWithMessage(configx.CodeInvalid, "Database driver has no schema to migrate").
			WithDetail("database.driver", cfg.Driver)
	}
	return m.Migrate(ctx)
}

func OpenBus(ctx context.Context, cfg EventsConfig) (eventx.Bus, error) {
	switch cfg.Driver {
	case "none":
		return eventx.NopBus{}, nil
	case "memory":
		bus := eventx.NewMemoryBus()
		bus.Subscribe("*", func(_ context.Context, e eventx.Event) error {
			logx.Info("event %s %s for %s", e.Type(), e.ID(), e.Subject())
			return nil
		})
		return bus, nil
	case "sqs":
		return sqsbus.New(ctx, sqsbus.Options{
			QueueURL: cfg.QueueURL,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
	}
	return nil, unknownDriver("events.driver", cfg.Driver)
}

func unknownDriver(key, value string) error {
	return configx.ErrorRegistry.NewWithMessage(configx.CodeInvalid, "Unknown "+key).
		WithDetail(key, value)
}
