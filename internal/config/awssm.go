package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// resolveAWSSecretsManager resolves an AWS Secrets Manager reference.
// Format: secret-name, or secret-name#key for JSON secrets
func resolveAWSSecretsManager(ref string) (string, error) {
	name := ref
	key := ""
	if parts := strings.SplitN(ref, "#", 2); len(parts) == 2 {
		name = parts[0]
		key = parts[1]
	}

	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("loading AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(cfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", name, err)
	}

	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value (binary secrets not supported)", name)
	}
	if key == "" {
		return *out.SecretString, nil
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &fields); err != nil {
		return "", fmt.Errorf("secret %q is not a JSON object: %w", name, err)
	}
	val, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, name)
	}
	return val, nil
}
