package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/meridian-exchange/matching-engine/internal/app/engine"
	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
	marketpublisher "github.com/meridian-exchange/matching-engine/internal/usecase/market-publisher"
	orderreader "github.com/meridian-exchange/matching-engine/internal/usecase/order-reader"
	responsepublisher "github.com/meridian-exchange/matching-engine/internal/usecase/response-publisher"
	"github.com/meridian-exchange/matching-engine/internal/usecase/snapshot"
	"github.com/meridian-exchange/matching-engine/pkg/config"
	"github.com/meridian-exchange/matching-engine/pkg/logger"
	"github.com/meridian-exchange/matching-engine/pkg/redis"
	"github.com/meridian-exchange/matching-engine/pkg/spsc"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	var err error
	cfg = &config.Config{}
	err = config.Load(cfg)
	if err != nil {
		panic(err)
	}

	logger, err := logger.NewLogger(
		logger.WithTimeKey("timestamp"),
		logger.WithLevelKey("severity"),
		logger.WithCallerTraceSkip(1),
	)
	if err != nil {
		panic(err)
	}

	log = logger
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	rclient := redis.NewClient(log, &cfg.Redis)
	if err := rclient.Connect(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "connect_redis",
		})
		return
	}

	// The queues are the only channels between the pipeline stages. Each one
	// has exactly one producer and one consumer.
	requests := spsc.NewQueue[orderbookv1.ClientRequest](cfg.Queue.RequestCapacity)
	responses := spsc.NewQueue[orderbookv1.ClientResponse](cfg.Queue.ResponseCapacity)
	updates := spsc.NewQueue[orderbookv1.MarketUpdate](cfg.Queue.MarketUpdateCapacity)

	engine := app.NewWithOptions(cfg, requests, responses, updates, log, &app.Options{
		PinThread: cfg.PinThread,
	})

	reader := orderreader.NewReader(cfg.OrderReader, log)
	gateway := orderreader.NewGateway(reader, requests, cfg.Instruments, cfg.Book, log)

	snapshotStore := snapshot.NewRedisStore(rclient, cfg.Snapshot.KeyPrefix, log)
	synthesizer := snapshot.NewSynthesizer(cfg.Instruments, cfg.Snapshot, snapshotStore, log)

	respPublisher := responsepublisher.NewPublisher(cfg.ResponsePublisher, responses, log)
	mktPublisher := marketpublisher.NewPublisher(cfg.MarketPublisher, updates, synthesizer, log)

	engine.Start()
	gateway.Start(ctx)
	respPublisher.Start(ctx)
	mktPublisher.Start(ctx)
	synthesizer.Start(ctx)

	log.Info("matching engine started",
		logger.Field{Key: "instruments", Value: cfg.Instruments},
		logger.Field{Key: "pinThread", Value: cfg.PinThread},
	)

	sig := <-sigChan
	log.Info("received shutdown signal", logger.Field{
		Key:   "signal",
		Value: sig.String(),
	})

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop upstream first so the queues drain front to back: gateway, then
	// the engine, then the publishers, then the snapshot loop.
	if err := gateway.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_gateway"})
	}
	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_engine"})
	}
	if err := respPublisher.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_response_publisher"})
	}
	if err := mktPublisher.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_market_publisher"})
	}
	if err := synthesizer.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_snapshot_synthesizer"})
	}

	if err := rclient.Disconnect(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "disconnect_redis"})
	}

	log.Info("matching engine shutdown complete")
}
