package store

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ClientConfig holds explicit DynamoDB client parameters. Empty fields fall
// back to the default AWS configuration chain.
type ClientConfig struct {
	Region   string
	Profile  string
	Endpoint string // optional; e.g. DynamoDB Local
}

// Environment variables read by ClientConfigFromEnv:
//   ARBOR_DYNAMODB_REGION=<region>
//   ARBOR_DYNAMODB_PROFILE=<shared config profile>
//   ARBOR_DYNAMODB_ENDPOINT=<url>
//   ARBOR_TABLE_PREFIX=<prefix> (OpenFromEnv only)

// ClientConfigFromEnv reads a ClientConfig from the process environment.
func ClientConfigFromEnv() ClientConfig {
	return ClientConfig{
		Region:   os.Getenv("ARBOR_DYNAMODB_REGION"),
		Profile:  os.Getenv("ARBOR_DYNAMODB_PROFILE"),
		Endpoint: os.Getenv("ARBOR_DYNAMODB_ENDPOINT"),
	}
}

// NewClient creates a DynamoDB client from cfg.
func NewClient(ctx context.Context, cfg ClientConfig) (*dynamodb.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// OpenFromEnv creates a Store whose client is configured from the process
// environment. ARBOR_TABLE_PREFIX, when set, overrides cfg.TablePrefix.
func OpenFromEnv(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	client, err := NewClient(ctx, ClientConfigFromEnv())
	if err != nil {
		return nil, err
	}
	if prefix := os.Getenv("ARBOR_TABLE_PREFIX"); prefix != "" {
		cfg.TablePrefix = prefix
	}
	return New(client, cfg, opts...), nil
}
