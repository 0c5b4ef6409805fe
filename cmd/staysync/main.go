package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"staysync/internal/app/middleware"
	"staysync/internal/app/schedule"
	"staysync/internal/app/services/calendarsync"
	"staysync/internal/app/services/feeds"
	"staysync/internal/app/wiring"
	"staysync/internal/infra/broker/kafka"
	"staysync/internal/infra/config"
	ginserver "staysync/internal/infra/http/gin"
	"staysync/internal/infra/ical"
	"staysync/internal/infra/obs"
	infraoutbox "staysync/internal/infra/outbox"
	infrapricing "staysync/internal/infra/pricing"
	"staysync/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev", "info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("staysync stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := openStorage(ctx, cfg, infrapricing.NewNightlyCalculator(), logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.close(closeCtx); err != nil {
			logger.Warn("storage close failed", "error", err)
		}
	}()
	logger.Info("storage ready", "backend", cfg.StorageBackend)

	buses := wiring.Build(wiring.Deps{
		UoWFactory:  store.factory,
		Outbox:      store.outbox,
		Idempotency: store.idempotency,
		Renderer:    ical.Exporter{ProdID: "-//staysync//calendar//EN", UIDDomain: cfg.ICalUIDDomain},
		Logger:      logger,
		Retry:       middleware.RetryPolicy{Attempts: cfg.ReserveRetries, Logger: logger},
	})

	fixturesPath := cfg.PropertyFixtures
	if fixturesPath == "" {
		fixturesPath = defaultFixturesPath()
	}
	if n, err := loadPropertyFixtures(ctx, store.properties, fixturesPath, logger); err != nil {
		logger.Warn("property fixtures load failed", "error", err, "path", fixturesPath)
	} else if n > 0 {
		logger.Info("property fixtures loaded", "count", n, "path", fixturesPath)
	}

	fetcher := ical.NewFetcher(&http.Client{Timeout: cfg.ICalFetchTimeout}, cfg.ICalUserAgent, cfg.ICalMaxBytes)
	syncer := &calendarsync.Service{
		Commands: buses.Commands,
		Queries:  buses.Queries,
		Fetcher:  fetcher,
		Logger:   logger,
	}

	var wg sync.WaitGroup
	background := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background task stopped", "task", name, "error", err)
			}
		}()
	}

	producer, err := newProducer(cfg, logger)
	if err != nil {
		return err
	}
	defer closeQuietly(logger, "kafka producer", producer)
	worker := &infraoutbox.Worker{
		Queue:       store.outbox,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "staysync",
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	background("outbox", worker.Run)

	if cfg.KafkaEnabled() {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, kafka.PaymentsHandler{
			Commands: buses.Commands,
			Inbox:    store.inbox,
			Logger:   logger,
		}, logger)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		defer closeQuietly(logger, "kafka consumer", consumer)
		background("payments consumer", func(ctx context.Context) error {
			return consumer.Run(ctx, []string{cfg.PaymentsTopic})
		})
	}

	checks := store.checks
	scheduler := schedule.New(logger)
	if err := scheduler.Add(ctx, schedule.Job{
		Name: "calendar-sync",
		Spec: cfg.CalendarSyncCron,
		Run: func(ctx context.Context) error {
			_, err := syncer.SyncAll(ctx)
			return err
		},
	}); err != nil {
		return err
	}
	if cfg.S3Enabled() {
		client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, "", logger)
		if err != nil {
			return err
		}
		checks["s3"] = client.Ping
		publisher := &feeds.Service{Queries: buses.Queries, Publisher: s3.FeedPublisher{Uploader: client}, Logger: logger}
		if err := scheduler.Add(ctx, schedule.Job{
			Name: "feed-publish",
			Spec: cfg.FeedPublishCron,
			Run: func(ctx context.Context) error {
				_, err := publisher.PublishAll(ctx)
				return err
			},
		}); err != nil {
			return err
		}
	}
	if store.purge != nil {
		if err := scheduler.Add(ctx, schedule.Job{
			Name: "idempotency-purge",
			Spec: "@hourly",
			Run: func(ctx context.Context) error {
				n, err := store.purge(ctx)
				if n > 0 {
					logger.Debug("idempotency records purged", "count", n)
				}
				return err
			},
		}); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info("scheduler started", "jobs", scheduler.Jobs())

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: checks}, ginserver.Handlers{
		Booking:      ginserver.BookingHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Availability: ginserver.AvailabilityHandler{Queries: buses.Queries, Logger: logger},
		HostCalendar: ginserver.HostCalendarHandler{Commands: buses.Commands, Syncer: syncer, Logger: logger},
		Webhook:      ginserver.WebhookHandler{Commands: buses.Commands, Secret: cfg.WebhookSecret, Logger: logger},
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	wg.Wait()
	logger.Info("HTTP server stopped")
	return nil
}

type publisher interface {
	infraoutbox.Producer
	Close() error
}

type logPublisher struct{ infraoutbox.LogProducer }

func (logPublisher) Close() error { return nil }

func newProducer(cfg config.Config, logger *slog.Logger) (publisher, error) {
	if !cfg.KafkaEnabled() {
		logger.Info("kafka disabled, outbox events are logged")
		return logPublisher{infraoutbox.LogProducer{Logger: logger}}, nil
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, "staysync", sarama.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

type closer interface{ Close() error }

func closeQuietly(logger *slog.Logger, name string, c closer) {
	if err := c.Close(); err != nil {
		logger.Warn("close failed", "component", name, "error", err)
	}
}
