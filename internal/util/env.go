package util

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/joho/godotenv"
)

// SecretFetcher is the subset of the Secrets Manager client used at startup.
type SecretFetcher interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadEnv pulls a JSON secret from AWS Secrets Manager when
// AWS_SECRETS_MANAGER_SECRET_ID is set, then loads the local .env file.
// Variables already present in the environment win unless
// AWS_SECRETS_MANAGER_OVERWRITE=true.
func LoadEnv(ctx context.Context, envPath string) {
	secretID := os.Getenv("AWS_SECRETS_MANAGER_SECRET_ID")
	if secretID != "" {
		cfg, err := loadAWSConfig(ctx, os.Getenv("AWS_SECRETS_MANAGER_REGION"))
		if err != nil {
			log.Printf("Warning: skipping AWS Secrets Manager: %v", err)
		} else {
			overwrite := strings.EqualFold(os.Getenv("AWS_SECRETS_MANAGER_OVERWRITE"), "true")
			n, err := ApplySecretToEnv(ctx, secretsmanager.NewFromConfig(cfg), secretID, overwrite)
			if err != nil {
				log.Printf("Warning: skipping AWS Secrets Manager: %v", err)
			} else {
				log.Printf("Loaded %d env vars from secret %s", n, secretID)
			}
		}
	}

	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s file: %v", envPath, err)
	}
}

// ApplySecretToEnv fetches secretID and exports its JSON keys as env vars.
// It returns the number of variables set.
func ApplySecretToEnv(ctx context.Context, client SecretFetcher, secretID string, overwrite bool) (int, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretID),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return 0, fmt.Errorf("fetch secret %s: %w", secretID, err)
	}

	var payload string
	switch {
	case out.SecretString != nil:
		payload = *out.SecretString
	case len(out.SecretBinary) > 0:
		payload = string(out.SecretBinary)
	default:
		return 0, fmt.Errorf("secret %s has no payload", secretID)
	}

	var kv map[string]any
	if err := json.Unmarshal([]byte(payload), &kv); err != nil {
		return 0, fmt.Errorf("parse secret %s: %w", secretID, err)
	}

	applied := 0
	for key, val := range kv {
		if !overwrite && os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return applied, fmt.Errorf("set env %s: %w", key, err)
		}
		applied++
	}
	return applied, nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	if region != "" {
		return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}
	return awsconfig.LoadDefaultConfig(ctx)
}
