package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is loaded when ENV_FILE_PATH is unset.
const DefaultEnvFile = ".env"

// SecretFetcher returns the raw payload of a secret.
type SecretFetcher interface {
	FetchSecret(ctx context.Context, secretID, versionStage string) (string, error)
}

// LoadEnv pulls secrets from AWS Secrets Manager (when a secret id is
// configured) and then loads the .env file. Neither source is required.
func LoadEnv(ctx context.Context, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	if secretID := secretIDFromEnv(); secretID != "" {
		fetcher, err := NewAWSSecretFetcher(ctx, os.Getenv("AWS_SECRETS_MANAGER_REGION"))
		if err == nil {
			_, err = ApplySecret(ctx, fetcher, secretID, logger)
		}
		if err != nil {
			logger.Warn("Skipping AWS Secrets Manager load", "error", err)
		}
	}

	loadDotEnv(logger)
}

func secretIDFromEnv() string {
	if id := os.Getenv("AWS_SECRETS_MANAGER_SECRET_ID"); id != "" {
		return id
	}
	return os.Getenv("AWS_SECRET_ID")
}

func loadDotEnv(logger *slog.Logger) {
	envFile := os.Getenv("ENV_FILE_PATH")
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	if err := godotenv.Load(envFile); err != nil {
		// Kubernetes and Docker inject the environment directly
		if os.Getenv("KUBERNETES_SERVICE_HOST") == "" {
			logger.Debug("No .env file loaded, using process environment", "path", envFile)
		}
		return
	}
	logger.Debug("Loaded .env file", "path", envFile)
}

// ApplySecret fetches secretID, parses it as a flat JSON object and copies
// its entries into the environment. It returns how many variables were set.
func ApplySecret(ctx context.Context, fetcher SecretFetcher, secretID string, logger *slog.Logger) (int, error) {
	versionStage := os.Getenv("AWS_SECRETS_MANAGER_VERSION_STAGE")
	if versionStage == "" {
		versionStage = "AWSCURRENT"
	}
	overwrite := strings.EqualFold(os.Getenv("AWS_SECRETS_MANAGER_OVERWRITE"), "true")

	payload, err := fetcher.FetchSecret(ctx, secretID, versionStage)
	if err != nil {
		return 0, fmt.Errorf("fetching secret %s: %w", secretID, err)
	}

	var kv map[string]any
	if err := json.Unmarshal([]byte(payload), &kv); err != nil {
		return 0, fmt.Errorf("parsing secret %s as JSON: %w", secretID, err)
	}

	applied := 0
	for key, val := range kv {
		if !overwrite && os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return applied, fmt.Errorf("setting env %s from secret: %w", key, err)
		}
		applied++
	}

	logger.Info("Loaded environment from AWS Secrets Manager",
		"secret_id", secretID, "applied", applied, "overwrite", overwrite)
	return applied, nil
}

// AWSSecretFetcher reads secrets with the AWS SDK default credential chain.
type AWSSecretFetcher struct {
	client *secretsmanager.Client
}

// NewAWSSecretFetcher loads the default AWS config, optionally pinned to
// region.
func NewAWSSecretFetcher(ctx context.Context, region string) (*AWSSecretFetcher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &AWSSecretFetcher{client: secretsmanager.NewFromConfig(cfg)}, nil
}

func (f *AWSSecretFetcher) FetchSecret(ctx context.Context, secretID, versionStage string) (string, error) {
	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(secretID)}
	if versionStage != "" {
		input.VersionStage = aws.String(versionStage)
	}

	out, err := f.client.GetSecretValue(ctx, input)
	if err != nil {
		return "", err
	}
	switch {
	case out.SecretString != nil:
		return *out.SecretString, nil
	case len(out.SecretBinary) > 0:
		return string(out.SecretBinary), nil
	}
	return "", fmt.Errorf("secret %s has no payload", secretID)
}

// Getenv returns the first non-empty value among keys, or fallback.
func Getenv(fallback string, keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return fallback
}
