package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/tripora/tripora/internal/app"
	"github.com/tripora/tripora/internal/authz"
	jobmetrics "github.com/tripora/tripora/internal/jobs"
	platformdb "github.com/tripora/tripora/internal/platform/db"
	"github.com/tripora/tripora/internal/shared"
	"github.com/tripora/tripora/jobs"
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

	pool, err := platformdb.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	auditLogger := shared.NewAuditLogger(pool)
	metrics := jobmetrics.NewMetrics(nil)

	authzRepo := authz.NewRepository(pool)
	resolver := authz.NewResolver(authzRepo)
	permCache := authz.NewCache(resolver, cfg.PermissionCacheTTL, nil)
	authzService := authz.NewService(authzRepo, permCache, auditLogger, logger)

	mailer := jobs.NewStaffInviteMailer(jobs.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		From: cfg.SMTPFrom,
	}, logger)
	sweepJob := jobs.NewInvitationSweepJob(pool, logger, metrics)
	warmupJob := jobs.NewCacheWarmupJob(authzService, pool, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeStaffInviteEmail, Handler: mailer.Handle},
			{Type: jobs.TaskTypeInvitationSweep, Handler: sweepJob.Handle},
			{Type: jobs.TaskTypeCacheWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: jobs.NewInvitationSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: jobs.NewCacheWarmupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
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
