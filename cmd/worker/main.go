package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/gymstack/webhook-engine/config"
	"github.com/gymstack/webhook-engine/webhook"
	"github.com/gymstack/webhook-engine/webhook/postgres"
	"github.com/gymstack/webhook-engine/webhook/redis"
)

/* Standalone delivery worker pool. Runs against the same Postgres and
 * Redis as the API process; deploy as many replicas as throughput needs.
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

	repo, err := postgres.NewRepository(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)

	instance := uuid.New().String()[:8]
	queue, err := redis.NewQueue(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "worker-"+instance)
	if err != nil {
		return err
	}
	defer queue.Close(ctx)

	scheduler := webhook.NewScheduler(repo, queue, log)
	go scheduler.Run(ctx)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		worker := webhook.NewWorker(
			fmt.Sprintf("worker-%s-%d", instance, i),
			repo, queue, backoff, cfg.DeliveryTimeout(), log,
		)
		worker.ExcerptLimit = cfg.ResponseExcerptBytes
		worker.Heartbeat = queue

		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	log.Info("delivery workers running", "instance", instance, "workers", cfg.Workers)
	wg.Wait()
	return nil
}
