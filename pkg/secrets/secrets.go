package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/georgemblack/snapgram/pkg/util"
)

// SecretsManager is the subset of the AWS client used here.
type SecretsManager interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type Secrets struct {
	client SecretsManager
}

func New(ctx context.Context, region string) (Secrets, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return Secrets{}, util.WrapErr("failed to load aws config", err)
	}

	return Secrets{client: secretsmanager.NewFromConfig(cfg)}, nil
}

func NewWithClient(client SecretsManager) Secrets {
	return Secrets{client: client}
}

// GetAppwriteAPIKey reads the platform API key stored under name.
func (s Secrets) GetAppwriteAPIKey(ctx context.Context, name string) (string, error) {
	return s.getSecret(ctx, name)
}

func (s Secrets) getSecret(ctx context.Context, secretName string) (string, error) {
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	}

	result, err := s.client.GetSecretValue(ctx, input)
	if err != nil {
		return "", util.WrapErr("failed to get secret value", err)
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretName)
	}

	return *result.SecretString, nil
}
