package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FoodTok.com/cmd/reconcile/infras/redis"
	"FoodTok.com/cmd/reconcile/service"
	"FoodTok.com/config"
	"FoodTok.com/config/jaeger"
	"FoodTok.com/config/pprof"
	"FoodTok.com/pkg/constants"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/metrics"
	"github.com/cloudwego/hertz/pkg/common/hlog"
)

// 已完成的幂等记录保留7天
const processedRetention = 7 * 24 * time.Hour

func runOnce(ctx context.Context, svc *service.ReconcileService, lock *redis.SweepLock) {
	if err := lock.TryLock(ctx); err != nil {
		hlog.CtxInfof(ctx, "sweep skipped, lock not acquired: %v", err)
		return
	}
	defer func() {
		if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			hlog.CtxWarnf(ctx, "release sweep lock: %v", err)
		}
	}()

	start := time.Now()
	defer metrics.ObserveSweep(start)
	stats, err := svc.Sweep(ctx)
	if err != nil {
		hlog.CtxErrorf(ctx, "sweep failed after %s: %v", time.Since(start), err)
		return
	}
	hlog.CtxInfof(ctx, "sweep done in %s: users=%d changed=%d tasks=%d", time.Since(start), stats.Users, stats.Changed, stats.Queue.Resolved)

	purged, err := db.PurgeProcessed(ctx, db.DB, time.Now().UTC().Add(-processedRetention))
	if err != nil {
		hlog.CtxWarnf(ctx, "purge processed events: %v", err)
	} else if purged > 0 {
		hlog.CtxInfof(ctx, "purged %d processed event keys", purged)
	}
}

func main() {
	config.Init()
	pprof.Load(config.ConfigInfo.Server.PprofAddr)
	metrics.StartServer(config.ConfigInfo.Server.MetricsAddr)
	_, closer := jaeger.InitJaeger(constants.ReconcileServiceName)
	defer closer.Close()

	db.Init()
	rdb := redis.Load()
	defer rdb.Close()

	interval := config.ReconcileInterval()
	updater := counter.NewUpdater(db.DB, config.RetryPolicy(), nil)
	svc := service.NewReconcileService(updater, config.ConfigInfo.Reconcile.PageSize,
		service.WithRateLimit(config.ConfigInfo.Reconcile.UsersPerSec, config.ConfigInfo.Reconcile.UsersPerBurst))
	lock := redis.NewSweepLock(rdb, interval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hlog.Infof("%s running every %s", constants.ReconcileServiceName, interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		runOnce(ctx, svc, lock)
		select {
		case <-ctx.Done():
			hlog.Info("reconcile service shut down")
			return
		case <-ticker.C:
		}
	}
}
