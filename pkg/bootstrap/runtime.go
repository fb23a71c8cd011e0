// Package bootstrap holds the start-up sequence shared by the binaries in
// cmd/: environment, config, logger, shared clients and ordered shutdown.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/toolyard-backend/pkg/config"
	"github.com/angelmondragon/toolyard-backend/pkg/db"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
	"github.com/angelmondragon/toolyard-backend/pkg/migrate"
	"github.com/angelmondragon/toolyard-backend/pkg/redis"
)

type closer struct {
	name string
	fn   func() error
}

// Runtime is the per-process state every binary starts from.
type Runtime struct {
	Service string
	Config  *config.Config
	Logger  *logger.Logger

	closers []closer
	exit    func(int)
}

// Start loads .env and config and builds the service logger. Config errors
// terminate the process.
func Start(service string) *Runtime {
	boot := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		boot.Debug(context.Background(), ".env not found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = service

	return New(service, cfg, logger.New(logger.Options{
		ServiceName: service,
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	}))
}

// New wraps an already loaded config and logger.
func New(service string, cfg *config.Config, logg *logger.Logger) *Runtime {
	return &Runtime{Service: service, Config: cfg, Logger: logg, exit: os.Exit}
}

// Must logs and exits when a required resource failed to come up.
func (rt *Runtime) Must(ctx context.Context, resource string, err error) {
	if err == nil {
		return
	}
	rt.Logger.Error(ctx, fmt.Sprintf("%s unavailable", resource), err)
	rt.Close()
	rt.exit(1)
}

// OnClose registers fn to run at shutdown. Closers run in reverse order.
func (rt *Runtime) OnClose(name string, fn func() error) {
	rt.closers = append(rt.closers, closer{name: name, fn: fn})
}

// Close runs registered closers once, newest first.
func (rt *Runtime) Close() {
	closers := rt.closers
	rt.closers = nil
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].fn(); err != nil {
			rt.Logger.Error(context.Background(), "close "+closers[i].name, err)
		}
	}
}

// Database connects gorm and applies dev migrations when enabled.
func (rt *Runtime) Database(ctx context.Context) *db.Client {
	client, err := db.New(ctx, rt.Config.DB, rt.Logger)
	rt.Must(ctx, "database", err)
	rt.OnClose("database", client.Close)
	rt.Must(ctx, "dev migrations", migrate.AutoRunDev(ctx, rt.Config, rt.Logger, client))
	return client
}

// Redis connects the shared redis client.
func (rt *Runtime) Redis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, rt.Config.Redis, rt.Logger)
	rt.Must(ctx, "redis", err)
	rt.OnClose("redis", client.Close)
	return client
}

// SignalContext is cancelled on SIGINT or SIGTERM and carries the standard
// process log fields.
func (rt *Runtime) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = rt.Logger.WithFields(ctx, map[string]any{
		"env":         rt.Config.App.Env,
		"serviceKind": rt.Service,
	})
	return ctx, stop
}
