package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/campus-ledger/pkg/accounts"
	"github.com/chris/campus-ledger/pkg/api"
	"github.com/chris/campus-ledger/pkg/auth"
	"github.com/chris/campus-ledger/pkg/config"
	"github.com/chris/campus-ledger/pkg/handlers"
	"github.com/chris/campus-ledger/pkg/middleware"
	"github.com/chris/campus-ledger/pkg/scheduler"
	"github.com/chris/campus-ledger/pkg/storage/dynamodb"
	"github.com/chris/campus-ledger/pkg/transfer"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("unable to load config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	if err := cfg.RequireServer(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// AWS Session
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		logger.Error("unable to load SDK config", "error", err)
		os.Exit(1)
	}

	store := dynamodb.New(awsdynamodb.NewFromConfig(awsCfg), cfg.Tables())

	var opts []transfer.Option
	if cfg.SQS.QueueURL != "" {
		opts = append(opts, transfer.WithScheduler(scheduler.NewSQSScheduler(sqs.NewFromConfig(awsCfg), cfg.SQS.QueueURL), cfg.ReplayDelay))
	} else {
		logger.Warn("SQS_QUEUE_URL not set, incomplete transfers are left to reconciliation")
	}

	handler := handlers.NewApiHandler(
		accounts.NewService(store, logger),
		transfer.NewService(store, logger, opts...),
		logger,
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.NewStructuredLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Authenticate(auth.NewVerifier(cfg.Auth.JwtSecret, cfg.Auth.JwtIssuer), store, logger))

	api.HandlerFromMux(handler, router)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server", "port", cfg.HTTPPort)
	if err := server.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
