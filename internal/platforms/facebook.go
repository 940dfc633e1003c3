package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"signalfire/pkg/models"
)

const facebookGraphBase = "https://graph.facebook.com/v19.0"

// FacebookAdapter posts to a Page feed via the Graph API.
type FacebookAdapter struct {
	httpCore
	graphBase    string
	clientID     string
	clientSecret string
}

func NewFacebookAdapter(clientID, clientSecret string, opts ...Option) *FacebookAdapter {
	a := &FacebookAdapter{
		httpCore:     newHTTPCore(),
		graphBase:    facebookGraphBase,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
	a.apply(opts)
	return a
}

func (a *FacebookAdapter) Platform() models.Platform { return models.PlatformFacebook }

// Publish posts to the page feed, with an optional link attachment. The
// Graph API takes the access token as a query parameter.
func (a *FacebookAdapter) Publish(ctx context.Context, req *models.PublishRequest) (models.PublishResult, error) {
	if req.ExternalID == "" {
		return models.PublishResult{}, &ValidationError{
			Platform: models.PlatformFacebook,
			Field:    "external_id",
			Message:  "page id is required",
		}
	}
	if req.Creds.AccessToken == "" {
		return models.PublishResult{}, &ValidationError{
			Platform: models.PlatformFacebook,
			Field:    "access_token",
			Message:  "access token is required",
		}
	}

	values := url.Values{
		"message":      {req.Content},
		"access_token": {req.Creds.AccessToken},
	}
	if req.Link != "" {
		values.Set("link", req.Link)
	}

	endpoint := fmt.Sprintf("%s/%s/feed", a.graphBase, req.ExternalID)
	status, raw, err := a.postForm(ctx, endpoint, values, nil)
	if err != nil {
		return models.PublishResult{}, fmt.Errorf("facebook: %w", err)
	}
	if !statusOK(status) {
		return models.PublishResult{Success: false, Error: remoteMessage(raw)}, nil
	}

	var out struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &out)
	return models.PublishResult{ID: out.ID, Success: true}, nil
}

// ExchangeCode trades an authorization code for a short-lived user token.
func (a *FacebookAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (models.TokenPair, error) {
	endpoint := fmt.Sprintf("%s/oauth/access_token?%s", a.graphBase, url.Values{
		"client_id":     {a.clientID},
		"client_secret": {a.clientSecret},
		"redirect_uri":  {redirectURI},
		"code":          {code},
	}.Encode())
	return a.tokenRequest(ctx, endpoint)
}

// ExchangeLongLivedToken trades a short-lived token for a ~60-day one.
// This is Facebook's substitute for refresh tokens and is a distinct
// flow from the authorization-code exchange.
func (a *FacebookAdapter) ExchangeLongLivedToken(ctx context.Context, shortLivedToken string) (models.TokenPair, error) {
	endpoint := fmt.Sprintf("%s/oauth/access_token?%s", a.graphBase, url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {a.clientID},
		"client_secret":     {a.clientSecret},
		"fb_exchange_token": {shortLivedToken},
	}.Encode())
	return a.tokenRequest(ctx, endpoint)
}

// RefreshToken is not supported; Facebook uses long-lived token exchange
// instead.
func (a *FacebookAdapter) RefreshToken(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	return models.TokenPair{}, ErrRefreshUnsupported
}

func (a *FacebookAdapter) tokenRequest(ctx context.Context, endpoint string) (models.TokenPair, error) {
	status, raw, err := a.getJSON(ctx, endpoint)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("facebook: %w", err)
	}
	if !statusOK(status) {
		return models.TokenPair{}, &AuthError{
			Platform:   models.PlatformFacebook,
			StatusCode: status,
			Message:    remoteMessage(raw),
		}
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.TokenPair{}, fmt.Errorf("facebook: decode token response: %w", err)
	}
	return tokenPairFrom(out.AccessToken, "", out.ExpiresIn), nil
}
