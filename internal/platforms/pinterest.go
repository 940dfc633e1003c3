package platforms

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"signalfire/pkg/models"
)

const pinterestAPIBase = "https://api.pinterest.com"

// PinterestAdapter creates pins on a board. Posting uses a bearer token;
// the token endpoints authenticate with Basic-encoded client
// credentials instead.
type PinterestAdapter struct {
	httpCore
	apiBase      string
	clientID     string
	clientSecret string
}

func NewPinterestAdapter(clientID, clientSecret string, opts ...Option) *PinterestAdapter {
	a := &PinterestAdapter{
		httpCore:     newHTTPCore(),
		apiBase:      pinterestAPIBase,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
	a.apply(opts)
	return a
}

func (a *PinterestAdapter) Platform() models.Platform { return models.PlatformPinterest }

type pinterestMediaSource struct {
	SourceType  string `json:"source_type"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Data        string `json:"data,omitempty"`
}

type pinterestPin struct {
	BoardID     string               `json:"board_id"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	Link        string               `json:"link,omitempty"`
	MediaSource pinterestMediaSource `json:"media_source"`
}

// Publish creates a pin. The media source union requires either an image
// URL or base64 content; neither is a local validation failure.
func (a *PinterestAdapter) Publish(ctx context.Context, req *models.PublishRequest) (models.PublishResult, error) {
	if req.ExternalID == "" {
		return models.PublishResult{}, &ValidationError{
			Platform: models.PlatformPinterest,
			Field:    "external_id",
			Message:  "board id is required",
		}
	}
	if req.Creds.AccessToken == "" {
		return models.PublishResult{}, &ValidationError{
			Platform: models.PlatformPinterest,
			Field:    "access_token",
			Message:  "access token is required",
		}
	}
	if len(req.Media) == 0 || (req.Media[0].URL == "" && req.Media[0].Base64 == "") {
		return models.PublishResult{}, &ValidationError{
			Platform: models.PlatformPinterest,
			Field:    "media",
			Message:  "media_source requires image_url or image_base64",
		}
	}

	pin := pinterestPin{
		BoardID:     req.ExternalID,
		Title:       req.Title,
		Description: req.Content,
		Link:        req.Link,
	}
	if m := req.Media[0]; m.URL != "" {
		pin.MediaSource = pinterestMediaSource{SourceType: "image_url", URL: m.URL}
	} else {
		pin.MediaSource = pinterestMediaSource{
			SourceType:  "image_base64",
			ContentType: "image/jpeg",
			Data:        m.Base64,
		}
	}

	status, raw, err := a.postJSON(ctx, a.apiBase+"/v5/pins", req.Creds.AccessToken, pin, nil)
	if err != nil {
		return models.PublishResult{}, fmt.Errorf("pinterest: %w", err)
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

// ExchangeCode trades an authorization code for tokens using Basic
// client credentials.
func (a *PinterestAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (models.TokenPair, error) {
	return a.tokenRequest(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	})
}

// RefreshToken exchanges a refresh token, also under Basic auth.
func (a *PinterestAdapter) RefreshToken(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	return a.tokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

func (a *PinterestAdapter) tokenRequest(ctx context.Context, values url.Values) (models.TokenPair, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(a.clientID + ":" + a.clientSecret))
	status, raw, err := a.postForm(ctx, a.apiBase+"/v5/oauth/token", values, map[string]string{
		"Authorization": "Basic " + basic,
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("pinterest: %w", err)
	}
	if !statusOK(status) {
		return models.TokenPair{}, &AuthError{
			Platform:   models.PlatformPinterest,
			StatusCode: status,
			Message:    remoteMessage(raw),
		}
	}

	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.TokenPair{}, fmt.Errorf("pinterest: decode token response: %w", err)
	}
	return tokenPairFrom(out.AccessToken, out.RefreshToken, out.ExpiresIn), nil
}
