// README: Entry point; loads config, wires storage, routing, matching, negotiation and the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/milagros-hr/proyecto-transport/internal/config"
	"github.com/milagros-hr/proyecto-transport/internal/events"
	httptransport "github.com/milagros-hr/proyecto-transport/internal/http"
	"github.com/milagros-hr/proyecto-transport/internal/infra"
	"github.com/milagros-hr/proyecto-transport/internal/logging"
	"github.com/milagros-hr/proyecto-transport/internal/maps"
	"github.com/milagros-hr/proyecto-transport/internal/modules/matching"
	"github.com/milagros-hr/proyecto-transport/internal/modules/negotiation"
	"github.com/milagros-hr/proyecto-transport/internal/modules/pricing"
	"github.com/milagros-hr/proyecto-transport/internal/modules/routing"
	"github.com/milagros-hr/proyecto-transport/internal/modules/trip"
	"github.com/milagros-hr/proyecto-transport/internal/modules/users"
	"github.com/milagros-hr/proyecto-transport/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("transport-api stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	db, closeDB, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	publisher, err := openEvents(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("close events publisher", zap.Error(err))
		}
	}()

	var index trip.PendingIndex = matching.NewMemoryIndex()
	if cfg.Redis.Addr != "" {
		client, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		index = matching.NewRedisIndex(client)
		log.Info("pending index on redis", zap.String("addr", cfg.Redis.Addr))
	}

	router, err := newRouter(cfg.Routing, log)
	if err != nil {
		return err
	}
	prices := pricing.NewService(cfg.Pricing)
	dir := users.NewDirectory(db, log.Named("users"))

	store, err := trip.NewStore(ctx, db, trip.WithIndex(index), trip.WithStoreLogger(log.Named("store")))
	if err != nil {
		return fmt.Errorf("open trip store: %w", err)
	}
	trips := trip.NewService(trip.Deps{
		Store:     store,
		Router:    router,
		Pricing:   prices,
		Directory: dir,
		Events:    publisher,
		RadiusKm:  cfg.Matching.RadiusKm,
		Logger:    log.Named("trip"),
	})
	neg := negotiation.NewService(trips, publisher, log.Named("negotiation"))

	repaired, err := neg.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if repaired > 0 {
		if err := store.Resync(ctx); err != nil {
			return fmt.Errorf("resync queue: %w", err)
		}
	}

	tokens := infra.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Trips:       trips,
		Negotiation: neg,
		Users:       dir,
		Routing:     router,
		Pricing:     prices,
		Verifier:    tokens,
		Tokens:      tokens,
		Logger:      log.Named("http"),
	})
	return httptransport.NewServer(cfg.HTTP.Addr, handler, cfg.HTTP.ShutdownTimeout, log).Run(ctx)
}

func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (storage.Collections, func(), error) {
	if cfg.Storage.Backend == "postgres" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN, cfg.DB.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		log.Info("storage on postgres")
		return storage.NewPostgresStore(pool), pool.Close, nil
	}
	fs, err := storage.NewFileStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, err
	}
	log.Info("storage on json files", zap.String("dir", cfg.Storage.DataDir))
	return fs, func() {}, nil
}

func openEvents(cfg config.Config, log *zap.Logger) (events.Publisher, error) {
	switch cfg.Events.Backend {
	case "kafka":
		log.Info("publishing trip events to kafka", zap.Strings("brokers", cfg.Events.KafkaBrokers), zap.String("topic", cfg.Events.KafkaTopic))
		return events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic), nil
	case "amqp":
		p, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("amqp publisher: %w", err)
		}
		log.Info("publishing trip events to amqp", zap.String("exchange", cfg.Events.AMQPExchange))
		return p, nil
	case "none":
		return events.Nop{}, nil
	}
	return events.NewLogPublisher(log.Named("events")), nil
}

func newRouter(cfg config.RoutingConfig, log *zap.Logger) (*routing.Router, error) {
	graph := routing.LimaGraph()
	if cfg.GraphFile != "" {
		g, err := routing.LoadGraph(cfg.GraphFile)
		if err != nil {
			return nil, fmt.Errorf("load graph: %w", err)
		}
		graph = g
	}
	opts := []routing.Option{routing.WithLogger(log.Named("routing"))}
	if cfg.MapsAPIKey != "" {
		roads, err := maps.NewRouteService(cfg.MapsAPIKey)
		if err != nil {
			return nil, fmt.Errorf("maps client: %w", err)
		}
		opts = append(opts, routing.WithRoadProvider(roads))
	}
	return routing.NewRouter(graph, cfg.RoadFactor, opts...), nil
}
