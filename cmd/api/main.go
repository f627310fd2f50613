package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/gymstack/webhook-engine/config"
	"github.com/gymstack/webhook-engine/eventtypes"
	"github.com/gymstack/webhook-engine/internal/http/chi"
	"github.com/gymstack/webhook-engine/metrics"
	"github.com/gymstack/webhook-engine/webhook"
	"github.com/gymstack/webhook-engine/webhook/memory"
	"github.com/gymstack/webhook-engine/webhook/postgres"
	"github.com/gymstack/webhook-engine/webhook/redis"
)

const TIMEOUT = 30 * time.Second

/* main wires the engine together: config, storage, queue, services, the
 * operator API and the in-process delivery workers. Imports point one way
 * only: the binary imports the business layer, which imports storage.
 */

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	backoff := webhook.BackoffPolicy{
		Base:        cfg.RetryBase(),
		Cap:         cfg.RetryCap(),
		MaxAttempts: cfg.MaxAttempts,
		JitterFrac:  0.25,
	}
	if err := backoff.Validate(); err != nil {
		return fmt.Errorf("invalid backoff configuration: %w", err)
	}

	catalog := eventtypes.NewCatalog()
	if cfg.EventTypesFile != "" {
		if err := catalog.Load(cfg.EventTypesFile); err != nil {
			return err
		}
	}

	var repo webhook.Repository
	var queue webhook.Queue
	var collector metrics.Collector
	var heartbeat webhook.Heartbeater

	switch cfg.Storage {
	case "memory":
		// Dev mode: single process, nothing survives a restart.
		memRepo := memory.NewRepository()
		memQueue := memory.NewQueue(1024)
		repo, queue = memRepo, memQueue
		collector = metrics.NewEngineCollector(memRepo, memQueue, nil)
	default:
		pgRepo, err := postgres.NewRepository(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := pgRepo.CreateTables(ctx); err != nil {
			return err
		}
		redisQueue, err := redis.NewQueue(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "api-"+uuid.New().String())
		if err != nil {
			return err
		}
		repo, queue = pgRepo, redisQueue
		collector = metrics.NewEngineCollector(pgRepo, redisQueue, redisQueue)
		heartbeat = redisQueue
	}
	defer repo.Close(ctx)
	defer queue.Close(ctx)

	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		return err
	}
	defer exporter.Shutdown(context.Background())

	service := webhook.NewService(repo, catalog)
	deliveries := webhook.NewDeliveryService(repo, queue, backoff)
	dispatcher := webhook.NewDispatcher(repo, queue, backoff)

	// Retry scheduler and delivery workers share the API process by
	// default; cmd/worker runs extra workers horizontally.
	scheduler := webhook.NewScheduler(repo, queue, log)
	go scheduler.Run(ctx)

	for i := 0; i < cfg.Workers; i++ {
		worker := webhook.NewWorker(
			fmt.Sprintf("api-worker-%d", i),
			repo, queue, backoff, cfg.DeliveryTimeout(), log,
		)
		worker.ExcerptLimit = cfg.ResponseExcerptBytes
		worker.Heartbeat = heartbeat
		go worker.Run(ctx)
	}

	authorize := chi.AllowAll
	if cfg.OpsToken != "" {
		authorize = chi.StaticTokenAuthorizer(cfg.OpsToken)
	}

	r := chi.Handlers(service, deliveries, dispatcher, catalog, authorize, exporter.ServeHTTP())
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	log.Info("listening", "port", cfg.Port, "storage", cfg.Storage)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return <-errShutdown
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		errShutdown <- nil
	default:
		errShutdown <- fmt.Errorf("forcing server close: %w", err)
	}
}
