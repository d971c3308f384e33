package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"FoodTok.com/cmd/trigger/dispatcher"
	"FoodTok.com/cmd/trigger/infras/redis"
	"FoodTok.com/cmd/trigger/service"
	"FoodTok.com/config"
	"FoodTok.com/config/jaeger"
	"FoodTok.com/config/pprof"
	"FoodTok.com/pkg/constants"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/metrics"
	"FoodTok.com/pkg/mq"
	"FoodTok.com/pkg/notify"
	"FoodTok.com/pkg/search"
	"github.com/cloudwego/hertz/pkg/common/hlog"
)

func newIndexer() search.Indexer {
	es := config.ConfigInfo.Elasticsearch
	if es.Url == "" {
		hlog.Info("elasticsearch url not configured, search index sync disabled")
		return search.NopIndexer{}
	}
	idx, err := search.NewElasticIndexer(es.Url, es.Index)
	if err != nil {
		hlog.Warnf("elasticsearch unavailable, search index sync disabled: %v", err)
		return search.NopIndexer{}
	}
	return idx
}

type changeEventSource interface {
	ConsumeChangeEvents(ctx context.Context, handler mq.ChangeEventHandler) error
}

// serve 注册消费者后阻塞到 ctx 结束, 消费循环在后台的 goroutine 里运行
func serve(ctx context.Context, source changeEventSource, handler mq.ChangeEventHandler) error {
	if err := source.ConsumeChangeEvents(ctx, handler); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func main() {
	config.Init()
	pprof.Load(config.ConfigInfo.Server.PprofAddr)
	metrics.StartServer(config.ConfigInfo.Server.MetricsAddr)
	_, closer := jaeger.InitJaeger(constants.TriggerServiceName)
	defer closer.Close()

	db.Init()
	rdb := redis.Load()
	defer rdb.Close()

	producer, err := mq.NewProducer(config.RabbitMqURL())
	if err != nil {
		hlog.Fatalf("Failed to initialize message queue producer: %v", err)
	}
	defer producer.Close()

	updater := counter.NewUpdater(db.DB, config.RetryPolicy(), nil)
	svc := service.NewFanoutService(updater,
		service.WithPublisher(notify.NewRedisPublisher(rdb)),
		service.WithIndexer(newIndexer()),
		service.WithEmitter(producer),
		service.WithChunkSize(config.ConfigInfo.Fanout.ChunkSize),
	)

	d := dispatcher.New(redis.NewEventDeduper(rdb, 0))
	svc.Register(d)

	consumer, err := mq.NewConsumer(config.RabbitMqURL(), producer)
	if err != nil {
		hlog.Fatalf("Failed to initialize message queue consumer: %v", err)
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hlog.Infof("%s consuming %s", constants.TriggerServiceName, mq.ChangeEventQueue)
	if err := serve(ctx, consumer, d); err != nil && ctx.Err() == nil {
		hlog.Errorf("consumer stopped: %v", err)
	}
	hlog.Info("trigger service shut down")
}
