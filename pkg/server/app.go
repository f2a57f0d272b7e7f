package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	mid "KiranaCash/internal/middleware"
	"KiranaCash/pkg/config"
	xhttp "KiranaCash/pkg/http"
	pkgkafka "KiranaCash/pkg/kafka"
	xlogger "KiranaCash/pkg/logger"

	"github.com/labstack/echo/v4"
)

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the service lifecycle: HTTP API, ingest pipelines and
// the optional Kafka consumer.
type App struct {
	cfg        *config.Config
	logger     *xlogger.Logger
	handler    xhttp.Handler
	middleware []echo.MiddlewareFunc
	pipelines  []*mid.IngestPipeline
	consumer   *pkgkafka.Consumer
	hook       pkgkafka.ConsumerHook
	handlers   []pkgkafka.MessageHandler
	closers    []namedCloser
	httpServer *xhttp.Server
	cancel     context.CancelFunc
}

// Option configures App.
type Option func(*App)

// WithMiddleware adds echo middleware applied to every route.
func WithMiddleware(m ...echo.MiddlewareFunc) Option {
	return func(a *App) { a.middleware = append(a.middleware, m...) }
}

// WithPipelines registers ingest pipelines started and stopped with the app.
func WithPipelines(p ...*mid.IngestPipeline) Option {
	return func(a *App) {
		for _, x := range p {
			if x != nil {
				a.pipelines = append(a.pipelines, x)
			}
		}
	}
}

// WithConsumer runs c with the given hook and handlers. A nil consumer is ignored.
func WithConsumer(c *pkgkafka.Consumer, hook pkgkafka.ConsumerHook, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		if c == nil {
			return
		}
		a.consumer = c
		a.hook = hook
		a.handlers = handlers
	}
}

// WithCloser closes c on shutdown, in registration order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, logger *xlogger.Logger, handler xhttp.Handler, opts ...Option) *App {
	a := &App{cfg: cfg, logger: logger, handler: handler}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Start launches every component without blocking.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	for _, p := range a.pipelines {
		p.Start(ctx)
	}

	if a.consumer != nil {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		if a.hook != nil {
			a.consumer.SetHook(a.hook)
		}
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.logger.Info("kafka consumer started", xlogger.Strings("brokers", a.cfg.Kafka.Brokers))
	}

	a.httpServer = xhttp.NewServer(a.handler, a.logger,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
		xhttp.WithCORS(a.cfg.Server.CORSOrigins...),
		xhttp.WithMiddleware(a.middleware...),
	)
	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	a.logger.Info("app started",
		xlogger.String("env", a.cfg.Environment),
		xlogger.Int("port", a.cfg.Server.Port),
		xlogger.Bool("kafka", a.consumer != nil))
	return nil
}

// Run starts the app and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	if err := a.Start(context.Background()); err != nil {
		return err
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(ctx)
}

// Shutdown stops the HTTP server first so no new work arrives, then the
// consumer, the pipelines and finally the infrastructure clients.
func (a *App) Shutdown(ctx context.Context) error {
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", xlogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", xlogger.Error(err))
		}
	}
	for _, p := range a.pipelines {
		if n := p.Buffered(); n > 0 {
			a.logger.Warn("dropping buffered transactions", xlogger.Int("count", n))
		}
		p.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	for _, c := range a.closers {
		if err := c.c.Close(); err != nil {
			a.logger.Warn("close error", xlogger.String("component", c.name), xlogger.Error(err))
		}
	}
	a.logger.Info("shutdown complete", xlogger.Duration("grace", a.cfg.Server.ShutdownTimeout))
	return nil
}

// Addr is the configured listen port, for logs and tests.
func (a *App) Addr() string {
	return fmt.Sprintf(":%d", a.cfg.Server.Port)
}

