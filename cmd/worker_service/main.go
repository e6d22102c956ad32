package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	mailerApp "github.com/Balvajs/newsletter-demo/internal/mailer_service/app"
	"github.com/Balvajs/newsletter-demo/internal/mailer_service/adapters/emailprovider"
	mailerRepoImpl "github.com/Balvajs/newsletter-demo/internal/mailer_service/repository/postgres"
	"github.com/Balvajs/newsletter-demo/internal/platform/config"
	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/Balvajs/newsletter-demo/internal/platform/logger"
	"github.com/Balvajs/newsletter-demo/internal/platform/messagebroker"
	postApp "github.com/Balvajs/newsletter-demo/internal/post_service/app"
	postDomain "github.com/Balvajs/newsletter-demo/internal/post_service/domain"
	postRepoImpl "github.com/Balvajs/newsletter-demo/internal/post_service/repository/postgres"
	mailerDomain "github.com/Balvajs/newsletter-demo/internal/mailer_service/domain"
	schedulerApp "github.com/Balvajs/newsletter-demo/internal/scheduler_service/app"
	schedDomain "github.com/Balvajs/newsletter-demo/internal/scheduler_service/domain"
	jobRepoImpl "github.com/Balvajs/newsletter-demo/internal/scheduler_service/repository/postgres"
	subscriberRepoImpl "github.com/Balvajs/newsletter-demo/internal/subscriber_service/repository/postgres"
)

const serviceName = "worker_service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(serviceName, cfg.LogLevel)
	appLogger.Info("Worker service starting...",
		"polling_interval", cfg.PollingInterval.String(), "batch_size", cfg.JobBatchSize)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewDBPool(rootCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Successfully connected to PostgreSQL database")

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, appLogger, serviceName)
	if err != nil {
		appLogger.Error("Failed to connect to NATS, continuing without wakeup nudges", "error", err)
		natsClient = nil
	} else {
		defer natsClient.Close()
		appLogger.Info("Successfully connected to NATS")
	}

	var broker messagebroker.Client
	if natsClient != nil {
		broker = natsClient
	}

	jobRepo := jobRepoImpl.NewPgJobRepository(appLogger)
	postRepo := postRepoImpl.NewPgPostRepository(appLogger)
	subscriberRepo := subscriberRepoImpl.NewPgSubscriberRepository(appLogger)
	emailLogRepo := mailerRepoImpl.NewPgEmailLogRepository(appLogger)

	scheduler := schedulerApp.NewScheduler(dbPool, jobRepo, broker, appLogger)
	dispatcher := mailerApp.NewDispatcher(subscriberRepo, scheduler, appLogger)
	postService := postApp.NewApplication(dbPool, postRepo, scheduler, dispatcher, broker, appLogger)

	mailProvider := emailprovider.NewMockProvider(
		appLogger, "mock", cfg.MailFailureRate, cfg.MailMinLatencyMs, cfg.MailMaxLatencyMs, nil)
	deliveryService := mailerApp.NewDeliveryService(dbPool, mailProvider, emailLogRepo, appLogger)

	registry := schedulerApp.NewRegistry()
	registry.Register(postDomain.PublishJobKind, postService.HandlePublishJob,
		schedulerApp.FixedBackoff{Interval: cfg.PublishRetryDelay})
	registry.Register(mailerDomain.DeliveryJobKind, deliveryService.HandleDeliveryJob,
		schedulerApp.ExponentialBackoff{Base: cfg.EmailRetryBaseDelay, Max: cfg.EmailRetryMaxDelay})

	poller := schedulerApp.NewPoller(dbPool, jobRepo, registry, appLogger, schedulerApp.PollerConfig{
		PollingInterval: cfg.PollingInterval,
		JobBatchSize:    cfg.JobBatchSize,
		MaxRetry:        cfg.JobMaxRetry,
	})

	if natsClient != nil {
		sub, err := natsClient.Subscribe(rootCtx, schedDomain.SubjectJobEnqueued, "",
			func(msg messagebroker.Message) {
				poller.Wake()
			})
		if err != nil {
			appLogger.Error("Failed to subscribe to job enqueued subject", "error", err)
		} else {
			defer sub.Unsubscribe()
			appLogger.Info("Subscribed to wakeup subject", "subject", schedDomain.SubjectJobEnqueued)
		}
	}

	janitor := cron.New()
	_, err = janitor.AddFunc(cfg.JanitorSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		pruned, err := jobRepo.PruneFinished(ctx, dbPool, cfg.RetainCompletedJobs, cfg.RetainFailedJobs)
		if err != nil {
			appLogger.Error("Janitor failed to prune finished jobs", "error", err)
		} else if pruned > 0 {
			appLogger.Info("Janitor pruned finished jobs", "count", pruned)
		}

		requeued, err := jobRepo.RequeueStale(ctx, dbPool, time.Now().Add(-cfg.StaleJobThreshold))
		if err != nil {
			appLogger.Error("Janitor failed to requeue stale jobs", "error", err)
		} else if requeued > 0 {
			appLogger.Warn("Janitor requeued stale processing jobs", "count", requeued)
		}
	})
	if err != nil {
		appLogger.Error("Invalid janitor cron spec", "spec", cfg.JanitorSpec, "error", err)
		os.Exit(1)
	}
	janitor.Start()
	defer janitor.Stop()

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}

	g, gCtx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		appLogger.Info("Job poller starting")
		return poller.Run(gCtx)
	})

	g.Go(func() error {
		appLogger.Info(fmt.Sprintf("Metrics server listening on port %d", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Worker service exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Worker service shut down.")
}
