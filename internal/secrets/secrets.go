// Package secrets fetches runtime credentials from HashiCorp Vault.
package secrets

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"
)

// Secrets holds the credentials the service needs at startup.
type Secrets struct {
	DBPassword       string
	TelegramBotToken string
}

// Fetch reads the service secrets from a KV v2 mount. A failure here is a
// setup error: the process cannot serve without credentials.
func Fetch(ctx context.Context, addr, token, mount, secretPath string) (*Secrets, error) {
	cfg := vault.DefaultConfig()
	cfg.Address = addr

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(token)

	secret, err := client.KVv2(mount).Get(ctx, secretPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %q from vault: %w", secretPath, err)
	}

	dbPassword, err := stringField(secret.Data, "db_password")
	if err != nil {
		return nil, err
	}
	botToken, err := stringField(secret.Data, "telegram_bot_token")
	if err != nil {
		return nil, err
	}

	return &Secrets{
		DBPassword:       dbPassword,
		TelegramBotToken: botToken,
	}, nil
}

func stringField(data map[string]interface{}, key string) (string, error) {
	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("secret field %q is missing", key)
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", fmt.Errorf("secret field %q must be a non-empty string", key)
	}
	return value, nil
}
