package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/medflow/clinic-scheduling/internal/availability"
	"github.com/medflow/clinic-scheduling/internal/booking"
	"github.com/medflow/clinic-scheduling/internal/config"
	"github.com/medflow/clinic-scheduling/internal/db"
	"github.com/medflow/clinic-scheduling/internal/observability/metrics"
	redisclient "github.com/medflow/clinic-scheduling/internal/redis"
	"github.com/medflow/clinic-scheduling/pkg/logging"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("expiry-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger := logging.New(cfg.LogLevel).Named("expiry-worker")
	logger.Info("starting expiry worker", "env", cfg.Env, "interval", cfg.WorkerInterval)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("error closing redis", "error", err)
		}
	}()
	logger.Info("connected to Redis")

	m := metrics.NewSchedulingMetrics(nil)

	availRepo := availability.NewPgRepository(pgPool)
	availSvc := availability.NewService(availRepo, logger)

	bookingRepo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(bookingRepo, availSvc, locker, cfg, logger, m)

	// Run once at startup so a long-dead worker catches up immediately.
	runOnce(rootCtx, svc, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping expiry worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, logger *logging.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.ExpireUnconfirmed(runCtx); err != nil {
		logger.Error("expiry run failed", "error", err)
		return
	}
	logger.Info("expiry run complete", "duration", time.Since(start).String())
}
