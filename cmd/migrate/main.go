package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"FoodTok.com/cmd/migrate/service"
	"FoodTok.com/config"
	"FoodTok.com/config/jaeger"
	"FoodTok.com/pkg/constants"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"github.com/cloudwego/hertz/pkg/common/hlog"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-page N] backfill-tags|migrate-owner\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	page := flag.Int("page", constants.MaxWritesPerBatch, "videos per page (max 500)")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	config.Init()
	_, closer := jaeger.InitJaeger(constants.MigrateServiceName)
	defer closer.Close()
	db.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := service.NewMigrateService(counter.NewUpdater(db.DB, config.RetryPolicy(), nil), *page)
	var (
		stats *service.Stats
		err   error
	)
	switch flag.Arg(0) {
	case "backfill-tags":
		stats, err = svc.BackfillTags(ctx)
	case "migrate-owner":
		stats, err = svc.MigrateOwnerField(ctx)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		hlog.Errorf("%s failed: %v", flag.Arg(0), err)
		os.Exit(1)
	}
	hlog.Infof("%s finished: %+v", flag.Arg(0), *stats)
}
