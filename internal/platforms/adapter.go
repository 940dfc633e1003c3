// Package platforms implements the uniform publish/token-exchange
// contract against the four supported social platforms.
//
// Error handling is deliberately asymmetric: expected remote rejections
// of a publish (rate limits, invalid media, permission errors) come back
// as PublishResult{Success: false, Error: ...} so the orchestrator can
// decide whether to retry, while connectivity failures and rejected
// token exchanges are returned as errors because no retry of the publish
// is meaningful without transport or valid tokens.
package platforms

import (
	"context"
	"errors"
	"fmt"

	"signalfire/pkg/models"
)

// Adapter is the capability contract each platform implements.
type Adapter interface {
	Platform() models.Platform
	Publish(ctx context.Context, req *models.PublishRequest) (models.PublishResult, error)
	ExchangeCode(ctx context.Context, code, redirectURI string) (models.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// ErrRefreshUnsupported is returned by platforms whose tokens cannot be
// refreshed with a refresh token grant.
var ErrRefreshUnsupported = errors.New("platform does not support refresh tokens")

// ValidationError marks a publish request rejected locally, before any
// network call. Never retried.
type ValidationError struct {
	Platform models.Platform
	Field    string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid publish request: %s (%s)", e.Platform, e.Message, e.Field)
}

// AuthError marks a token exchange or refresh the platform rejected.
type AuthError struct {
	Platform   models.Platform
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: token request rejected with status %d: %s", e.Platform, e.StatusCode, e.Message)
}

// Registry holds one adapter per supported platform. The set is fixed at
// construction; selection is by typed Platform constant, so a missing
// adapter is a programming error surfaced immediately.
type Registry struct {
	adapters map[models.Platform]Adapter
}

// NewRegistry builds the sealed adapter set.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[models.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		p := a.Platform()
		if !p.Valid() {
			return nil, fmt.Errorf("adapter reports unknown platform %q", p)
		}
		if _, dup := r.adapters[p]; dup {
			return nil, fmt.Errorf("duplicate adapter for platform %q", p)
		}
		r.adapters[p] = a
	}
	return r, nil
}

// Adapter returns the adapter registered for the platform.
func (r *Registry) Adapter(p models.Platform) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform %q", p)
	}
	return a, nil
}
