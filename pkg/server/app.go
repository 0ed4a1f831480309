package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FlareScope/internal/usecase"
	pkgch "FlareScope/pkg/clickhouse"
	"FlareScope/pkg/config"
	xhttp "FlareScope/pkg/http"
	pkgkafka "FlareScope/pkg/kafka"
	applogger "FlareScope/pkg/logger"
	"FlareScope/pkg/queue"
)

// App encapsulates the entire application lifecycle: live flux collection,
// the Kafka ingest consumer, the deferred-analysis job queue, and the HTTP
// API.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	collector   *usecase.FluxCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	jobQueue    *queue.RedisQueue
	logPub      applogger.Publisher
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	FluxProc    *usecase.FluxProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	collector *usecase.FluxCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		logger:    lgr,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject the HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetJobQueue wires the optional deferred-analysis queue. Nil disables async
// analysis.
func (a *App) SetJobQueue(q *queue.RedisQueue) { a.jobQueue = q }

// SetLogPublisher wires the optional aggregated-log sink.
func (a *App) SetLogPublisher(p applogger.Publisher) { a.logPub = p }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	if a.logPub != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "flarescope:logs",
			Publisher:      a.logPub,
		})
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Live flux collection runs only when a feed is configured; the API
	// serves uploaded files either way.
	if a.collector != nil && a.cfg.Feed.WebSocketURL != "" {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("flux collector error", applogger.Error(err))
			}
		}()
		l.Info("flux collector started",
			applogger.Strings("sources", a.cfg.Feed.Sources),
			applogger.String("backend", a.cfg.Backend.Type))
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.jobQueue != nil {
		if err := a.jobQueue.Start(); err != nil {
			l.Error("job queue start error", applogger.Error(err))
			return err
		}
		l.Info("deferred-analysis queue started", applogger.Int("workers", a.cfg.Queue.Workers))
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops the services in reverse order of startup: stop taking new
// work first, then drain, then close the infrastructure clients.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("flux collector stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(shutdownCtx); err != nil {
			l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	if a.FluxProc != nil {
		a.FluxProc.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.RemoveCollector()
	l.Info("shutdown complete")
	return nil
}
