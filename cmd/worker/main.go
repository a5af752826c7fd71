package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CharlesNg35/shellcn-sub005/internal/app"
	"github.com/CharlesNg35/shellcn-sub005/internal/audit"
	"github.com/CharlesNg35/shellcn-sub005/internal/grants"
	"github.com/CharlesNg35/shellcn-sub005/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	grantsRepo := grants.NewRepository(pool, audit.NewRecorder(pool))
	purger := grants.NewPurger(grantsRepo, logger)

	purgeTask, err := jobs.NewPurgeExpiredTask(jobs.PurgeExpiredPayload{})
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGrantsPurgeExpired, Handler: jobs.NewPurgeExpiredHandler(purger, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.EverySpec(cfg.PurgeInterval), Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
