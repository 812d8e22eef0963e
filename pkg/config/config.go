// Package config loads process configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chris/campus-ledger/pkg/storage/dynamodb"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type DynamoDBConfig struct {
	AccountsTable     string `envconfig:"ACCOUNTS_TABLE_NAME" required:"true"`
	IdentitiesTable   string `envconfig:"IDENTITIES_TABLE_NAME" required:"true"`
	TransactionsTable string `envconfig:"TRANSACTIONS_TABLE_NAME" required:"true"`
	ReferencesTable   string `envconfig:"REFERENCES_TABLE_NAME" required:"true"`
	SettlementsTable  string `envconfig:"SETTLEMENTS_TABLE_NAME" required:"true"`
	RoleTablePrefix   string `envconfig:"ROLE_TABLE_PREFIX" default:""`
}

type SQSConfig struct {
	QueueURL string `envconfig:"QUEUE_URL"`
}

type AuthConfig struct {
	JwtSecret string `envconfig:"JWT_SECRET"`
	JwtIssuer string `envconfig:"JWT_ISSUER"`
}

type ReconcileConfig struct {
	MinAge   time.Duration `envconfig:"MIN_AGE" default:"5m"`
	Lookback time.Duration `envconfig:"LOOKBACK" default:"24h"`
}

// Config is the configuration shared by the HTTP service and the lambdas.
// Each entry point checks the parts it needs.
type Config struct {
	HTTPPort          string          `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel          string          `envconfig:"LOG_LEVEL" default:"info"`
	ReplayDelay       time.Duration   `envconfig:"REPLAY_DELAY" default:"30s"`
	ReplayMaxAttempts int             `envconfig:"REPLAY_MAX_ATTEMPTS" default:"10"`
	DynamoDB          DynamoDBConfig  `envconfig:"DYNAMODB"`
	SQS               SQSConfig       `envconfig:"SQS"`
	Auth              AuthConfig      `envconfig:"AUTH"`
	Reconcile         ReconcileConfig `envconfig:"RECONCILE"`
}

// Load reads a .env file if one is present and then the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Tables returns the DynamoDB table names for the store.
func (c *Config) Tables() dynamodb.Tables {
	return dynamodb.Tables{
		Accounts:     c.DynamoDB.AccountsTable,
		Identities:   c.DynamoDB.IdentitiesTable,
		Transactions: c.DynamoDB.TransactionsTable,
		References:   c.DynamoDB.ReferencesTable,
		Settlements:  c.DynamoDB.SettlementsTable,
		RolePrefix:   c.DynamoDB.RoleTablePrefix,
	}
}

// Level parses LogLevel. Unknown values fall back to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// RequireServer checks the settings only the HTTP service needs.
func (c *Config) RequireServer() error {
	if c.Auth.JwtSecret == "" {
		return errors.New("AUTH_JWT_SECRET must be set")
	}
	return nil
}

