package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"vigil/internal/account"
	"vigil/internal/audit"
	"vigil/internal/deletion"
	"vigil/internal/engine"
	"vigil/internal/graph"
	"vigil/internal/history"
	"vigil/internal/platform/config"
	"vigil/internal/platform/httpserver"
	"vigil/internal/platform/kafka/consumer"
	"vigil/internal/platform/kafka/producer"
	"vigil/internal/platform/logger"
	platformredis "vigil/internal/platform/redis"
	"vigil/internal/processor"
	"vigil/internal/processor/metrics"
	"vigil/internal/status"
)

// main wires high-level dependencies and keeps the process lifecycle small.
// Business logic lives in the internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The transition graph is validated here, once; an inconsistent graph
	// must stop the process before it serves traffic.
	g, err := graph.New()
	if err != nil {
		log.Error("transition graph invalid", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	prod, err := producer.New(cfg.Kafka.Brokers)
	if err != nil {
		log.Error("failed to create kafka producer", "error", err)
		os.Exit(1)
	}
	defer prod.Close()

	store := account.NewRedisStore(redisClient.Client)
	eng := engine.New(g)
	codec := history.NewCodec(g)
	builder := audit.NewBuilder(g, cfg.ComponentID)
	publisher := audit.NewKafkaPublisher(prod, cfg.Kafka.EgressTopic, log)
	m := metrics.New(nil)

	proc := processor.New(eng, g, codec, store, builder, publisher, m, log,
		processor.WithConcurrency(cfg.Processor.Concurrency))

	ingress, err := consumer.New(consumer.Config{
		Brokers:     cfg.Kafka.Brokers,
		Group:       cfg.Kafka.Group,
		Topic:       cfg.Kafka.IngressTopic,
		MaxAttempts: cfg.Kafka.MaxAttempts,
	}, proc, prod, log)
	if err != nil {
		log.Error("failed to create ingress consumer", "error", err)
		os.Exit(1)
	}
	defer ingress.Close()

	deletions, err := consumer.New(consumer.Config{
		Brokers:     cfg.Kafka.Brokers,
		Group:       cfg.Kafka.Group + "-deletions",
		Topic:       cfg.Kafka.DeletionTopic,
		MaxAttempts: cfg.Kafka.MaxAttempts,
	}, deletion.New(store, cfg.Processor.DeletionRetention, log), prod, log)
	if err != nil {
		log.Error("failed to create deletion consumer", "error", err)
		os.Exit(1)
	}
	defer deletions.Close()

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := redisClient.Health(r.Context()); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	status.New(store, codec, log).Register(router)

	srv := httpserver.New(httpserver.Config{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return ingress.Run(groupCtx) })
	group.Go(func() error { return deletions.Run(groupCtx) })
	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("vigil started",
		"ingress_topic", cfg.Kafka.IngressTopic,
		"egress_topic", cfg.Kafka.EgressTopic,
	)

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Error("service stopped", "error", err)
		os.Exit(1)
	}
}
