package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-csat-engine/internal/repository"
	"github.com/noah-isme/dept-csat-engine/internal/service"
	"github.com/noah-isme/dept-csat-engine/pkg/cache"
	"github.com/noah-isme/dept-csat-engine/pkg/config"
	"github.com/noah-isme/dept-csat-engine/pkg/database"
	"github.com/noah-isme/dept-csat-engine/pkg/jobs"
	"github.com/noah-isme/dept-csat-engine/pkg/logger"
	"github.com/noah-isme/dept-csat-engine/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	queue := jobs.NewQueue("survey-engine", jobs.QueueConfig{
		Workers:    cfg.Scheduler.Workers,
		MaxRetries: cfg.Scheduler.Retries,
		Logger:     logr,
	})

	var notifier service.WindowNotifier
	var mail *mailer.Mailer
	if cfg.Mail.Enabled {
		mail, err = mailer.New(cfg.Mail)
		if err != nil {
			logr.Warn("permission alerts disabled", zap.Error(err))
		} else {
			notifier = queuedNotifier{queue: queue}
		}
	}

	eng := newEngine(cfg, db, cacheRepo, redisClient != nil, notifier, logr)

	handlers := jobHandlers{
		sync:        eng.sync,
		compliance:  eng.compliance,
		rollup:      eng.rollup,
		departments: eng.departments,
		logger:      logr,
	}
	if notifier != nil {
		handlers.alerts = service.NewPermissionAlertService(eng.departments, mail, logr)
	}
	registerJobs(queue, handlers)

	queue.Start(ctx)
	queue.Every(jobs.TypeSurveySync, cfg.Scheduler.SyncInterval)
	queue.Every(jobs.TypeComplianceSnapshot, cfg.Scheduler.ComplianceInterval)
	queue.Every(jobs.TypeRollupRecompute, cfg.Scheduler.SyncInterval)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newOpsRouter(db, eng, logr),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("ops server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("ops server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("ops server shutdown", zap.Error(err))
	}
	queue.Stop()
}
