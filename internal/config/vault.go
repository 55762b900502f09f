package config

import (
	"context"
	"fmt"

	vaultapi "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/iaros/freightquote/internal/logging"
)

// SecretResolver fetches runtime secrets (DB credentials, the distance-
// service API key) from Vault, falling back to environment variables when
// Vault is unreachable or unconfigured. Adapted from
// common/security/VaultClient.go; kept deliberately small since the
// quoting core never treats a missing secret as fatal — it surfaces as
// apperrors.APIKeyMissing on the first call that needs it.
type SecretResolver struct {
	client *vaultapi.Client
	path   string
	log    *logging.Logger
}

// NewSecretResolver returns nil, nil if address is empty (Vault disabled).
func NewSecretResolver(address, secretPath string, log *logging.Logger) (*SecretResolver, error) {
	if address == "" {
		return nil, nil
	}
	cfg := vaultapi.DefaultConfig()
	cfg.Address = address
	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	return &SecretResolver{client: client, path: secretPath, log: log}, nil
}

// Resolve reads key from the configured Vault secret path. Any failure is
// logged and returns ("", false) so the caller falls back to env vars.
func (r *SecretResolver) Resolve(ctx context.Context, key string) (string, bool) {
	if r == nil {
		return "", false
	}
	secret, err := r.client.Logical().ReadWithContext(ctx, r.path)
	if err != nil || secret == nil {
		r.log.Warn("vault secret read failed, falling back to environment", zap.Error(err))
		return "", false
	}
	v, ok := secret.Data[key].(string)
	return v, ok
}
