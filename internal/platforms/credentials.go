package platforms

import (
	"context"
	"fmt"
	"strings"

	"signalfire/pkg/config"
	"signalfire/pkg/models"
)

// CredentialStore reads stored per-account credentials. Implemented by
// the persistence layer.
type CredentialStore interface {
	CredentialsForAccount(ctx context.Context, accountID string) (*models.PlatformCredentials, error)
}

// CredentialResolver resolves the credentials an adapter should use for
// an account. Precedence is explicit: a stored per-account override
// wins, then the static per-platform default; sources are never mixed.
// A nil result means no credentials exist for the account.
type CredentialResolver struct {
	store    CredentialStore
	defaults map[models.Platform]models.PlatformCredentials
}

func NewCredentialResolver(store CredentialStore, defaults map[models.Platform]models.PlatformCredentials) *CredentialResolver {
	if defaults == nil {
		defaults = map[models.Platform]models.PlatformCredentials{}
	}
	return &CredentialResolver{store: store, defaults: defaults}
}

// Resolve returns the credentials for the account, or nil when neither
// a stored override nor a platform default exists.
func (r *CredentialResolver) Resolve(ctx context.Context, account *models.SocialAccount) (*models.PlatformCredentials, error) {
	if r.store != nil {
		stored, err := r.store.CredentialsForAccount(ctx, account.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve credentials for account %s: %w", account.ID, err)
		}
		if stored != nil {
			return stored, nil
		}
	}

	if def, ok := r.defaults[account.Platform]; ok && def.AccessToken != "" {
		creds := def
		return &creds, nil
	}
	return nil, nil
}

// DefaultsFromEnv builds the static per-platform credential defaults
// from <PLATFORM>_CLIENT_ID / _CLIENT_SECRET / _ACCESS_TOKEN variables.
func DefaultsFromEnv() map[models.Platform]models.PlatformCredentials {
	defaults := make(map[models.Platform]models.PlatformCredentials, len(models.Platforms))
	for _, p := range models.Platforms {
		prefix := strings.ToUpper(string(p))
		creds := models.PlatformCredentials{
			ClientID:     config.GetEnv(prefix+"_CLIENT_ID", ""),
			ClientSecret: config.GetEnv(prefix+"_CLIENT_SECRET", ""),
			AccessToken:  config.GetEnv(prefix+"_ACCESS_TOKEN", ""),
			RefreshToken: config.GetEnv(prefix+"_REFRESH_TOKEN", ""),
		}
		if creds.ClientID != "" || creds.AccessToken != "" {
			defaults[p] = creds
		}
	}
	return defaults
}
