package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/campus-ledger/pkg/config"
	"github.com/chris/campus-ledger/pkg/reconcile"
	"github.com/chris/campus-ledger/pkg/scheduler"
	"github.com/chris/campus-ledger/pkg/storage/dynamodb"
	"github.com/chris/campus-ledger/pkg/transfer"
)

var reconciler *reconcile.Reconciler

func init() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("unable to load config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		logger.Error("unable to load SDK config", "error", err)
		os.Exit(1)
	}

	store := dynamodb.New(awsdynamodb.NewFromConfig(awsCfg), cfg.Tables())
	transfers := transfer.NewService(store, logger)

	// With a queue, incomplete transfers go back through the settlement
	// lambda; without one they are resumed here.
	var sched scheduler.Scheduler
	if cfg.SQS.QueueURL != "" {
		sched = scheduler.NewSQSScheduler(sqs.NewFromConfig(awsCfg), cfg.SQS.QueueURL)
	}

	reconciler = reconcile.New(store, transfers, sched, cfg.Reconcile.MinAge, cfg.Reconcile.Lookback, logger)
}

// HandleRequest is triggered by an EventBridge Schedule.
func HandleRequest(ctx context.Context) (reconcile.Report, error) {
	return reconciler.Run(ctx)
}

func main() {
	lambda.Start(HandleRequest)
}
