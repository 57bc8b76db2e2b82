package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Credentials is the JSON shape of the database secret
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SecretGetter is the subset of the Secrets Manager client used here
type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// FetchCredentials reads database credentials from AWS Secrets Manager
func FetchCredentials(ctx context.Context, secretID string) (*Credentials, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return readCredentials(ctx, secretsmanager.NewFromConfig(cfg), secretID)
}

func readCredentials(ctx context.Context, client SecretGetter, secretID string) (*Credentials, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretID),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s: %w", secretID, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", secretID)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(*out.SecretString), &creds); err != nil {
		return nil, fmt.Errorf("failed to decode secret %s: %w", secretID, err)
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("secret %s is missing username or password", secretID)
	}
	return &creds, nil
}
