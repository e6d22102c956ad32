package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httptransport "github.com/Balvajs/newsletter-demo/internal/api_service/transport/http"
	mailerApp "github.com/Balvajs/newsletter-demo/internal/mailer_service/app"
	"github.com/Balvajs/newsletter-demo/internal/platform/config"
	"github.com/Balvajs/newsletter-demo/internal/platform/database"
	"github.com/Balvajs/newsletter-demo/internal/platform/logger"
	"github.com/Balvajs/newsletter-demo/internal/platform/messagebroker"
	postApp "github.com/Balvajs/newsletter-demo/internal/post_service/app"
	postRepoImpl "github.com/Balvajs/newsletter-demo/internal/post_service/repository/postgres"
	schedulerApp "github.com/Balvajs/newsletter-demo/internal/scheduler_service/app"
	jobRepoImpl "github.com/Balvajs/newsletter-demo/internal/scheduler_service/repository/postgres"
	subscriberApp "github.com/Balvajs/newsletter-demo/internal/subscriber_service/app"
	subscriberRepoImpl "github.com/Balvajs/newsletter-demo/internal/subscriber_service/repository/postgres"
)

const serviceName = "api_service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(serviceName, cfg.LogLevel)
	appLogger.Info("API service starting...", "port", cfg.HTTPPort)

	dbPool, err := database.NewDBPool(context.Background(), cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Successfully connected to PostgreSQL database")

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, appLogger, serviceName)
	if err != nil {
		// The API stays up without NATS; scheduled jobs are still picked up by
		// the worker's poll loop, just without the wakeup nudge.
		appLogger.Error("Failed to connect to NATS, continuing without broker", "error", err)
		natsClient = nil
	} else {
		defer natsClient.Close()
		appLogger.Info("Successfully connected to NATS")
	}

	jobRepo := jobRepoImpl.NewPgJobRepository(appLogger)
	postRepo := postRepoImpl.NewPgPostRepository(appLogger)
	subscriberRepo := subscriberRepoImpl.NewPgSubscriberRepository(appLogger)

	var broker messagebroker.Client
	if natsClient != nil {
		broker = natsClient
	}

	scheduler := schedulerApp.NewScheduler(dbPool, jobRepo, broker, appLogger)
	dispatcher := mailerApp.NewDispatcher(subscriberRepo, scheduler, appLogger)
	postService := postApp.NewApplication(dbPool, postRepo, scheduler, dispatcher, broker, appLogger)
	subscriberService := subscriberApp.NewApplication(dbPool, subscriberRepo, appLogger)

	validate := validator.New()
	postHandler := httptransport.NewPostHandler(postService, appLogger, validate)
	subscriberHandler := httptransport.NewSubscriberHandler(subscriberService, appLogger, validate)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(httptransport.PrometheusMetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1Router chi.Router) {
		v1Router.Route("/posts", func(pr chi.Router) {
			postHandler.RegisterRoutes(pr)
		})
		v1Router.Route("/subscribers", func(sr chi.Router) {
			subscriberHandler.RegisterRoutes(sr)
		})
	})

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTPPort), Handler: r}
	appLogger.Info(fmt.Sprintf("API server listening on port %d", cfg.HTTPPort))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to serve", "error", err)
		}
	}()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	<-quitChan
	appLogger.Info("Shutdown signal received, shutting down HTTP server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("HTTP server shutdown failed", "error", err)
	} else {
		appLogger.Info("HTTP server shut down gracefully.")
	}
	appLogger.Info("API service shut down.")
}
