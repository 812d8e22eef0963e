package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/campus-ledger/pkg/config"
	"github.com/chris/campus-ledger/pkg/settlement"
	"github.com/chris/campus-ledger/pkg/storage/dynamodb"
	"github.com/chris/campus-ledger/pkg/transfer"
)

var consumer *settlement.Consumer

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

	// Replays are redelivered by SQS itself, so the orchestrator gets no scheduler.
	store := dynamodb.New(awsdynamodb.NewFromConfig(awsCfg), cfg.Tables())
	consumer = settlement.NewConsumer(transfer.NewService(store, logger), cfg.ReplayMaxAttempts, logger)
}

func main() {
	lambda.Start(consumer.HandleSQSEvent)
}
