package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"signalfire/pkg/models"
)

const (
	linkedinAPIBase  = "https://api.linkedin.com"
	linkedinAuthBase = "https://www.linkedin.com"
)

// LinkedInAdapter posts UGC shares on behalf of a person or organization
// URN.
type LinkedInAdapter struct {
	httpCore
	apiBase      string
	authBase     string
	clientID     string
	clientSecret string
}

func NewLinkedInAdapter(clientID, clientSecret string, opts ...Option) *LinkedInAdapter {
	a := &LinkedInAdapter{
		httpCore:     newHTTPCore(),
		apiBase:      linkedinAPIBase,
		authBase:     linkedinAuthBase,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
	a.apply(opts)
	return a
}

func (a *LinkedInAdapter) Platform() models.Platform { return models.PlatformLinkedIn }

type linkedinShareText struct {
	Text string `json:"text"`
}

type linkedinShareContent struct {
	ShareCommentary    linkedinShareText `json:"shareCommentary"`
	ShareMediaCategory string            `json:"shareMediaCategory"`
}

type linkedinUGCPost struct {
	Author          string `json:"author"`
	LifecycleState  string `json:"lifecycleState"`
	SpecificContent struct {
		ShareContent linkedinShareContent `json:"com.linkedin.ugc.ShareContent"`
	} `json:"specificContent"`
	Visibility struct {
		MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
	} `json:"visibility"`
}

// Publish creates a UGC post. The author URN comes from the account's
// external ID; a missing author fails locally with no network call.
func (a *LinkedInAdapter) Publish(ctx context.Context, req *models.PublishRequest) (models.PublishResult, error) {
	author := authorURN(req.ExternalID)
	if author == "" {
		return models.PublishResult{}, &ValidationError{
			Platform: models.PlatformLinkedIn,
			Field:    "external_id",
			Message:  "author URN is required",
		}
	}
	if req.Creds.AccessToken == "" {
		return models.PublishResult{}, &ValidationError{
			Platform: models.PlatformLinkedIn,
			Field:    "access_token",
			Message:  "access token is required",
		}
	}

	body := linkedinUGCPost{
		Author:         author,
		LifecycleState: "PUBLISHED",
	}
	body.SpecificContent.ShareContent = linkedinShareContent{
		ShareCommentary:    linkedinShareText{Text: req.Content},
		ShareMediaCategory: "NONE",
	}
	body.Visibility.MemberNetworkVisibility = "PUBLIC"

	status, raw, err := a.postJSON(ctx, a.apiBase+"/v2/ugcPosts", req.Creds.AccessToken, body, map[string]string{
		"X-Restli-Protocol-Version": "2.0.0",
	})
	if err != nil {
		return models.PublishResult{}, fmt.Errorf("linkedin: %w", err)
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

// authorURN accepts a bare member/organization ID or a full URN.
func authorURN(externalID string) string {
	id := strings.TrimSpace(externalID)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "urn:li:") {
		return id
	}
	if strings.HasPrefix(id, "org:") {
		return "urn:li:organization:" + strings.TrimPrefix(id, "org:")
	}
	return "urn:li:person:" + id
}

// ExchangeCode trades an authorization code for tokens.
func (a *LinkedInAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (models.TokenPair, error) {
	return a.tokenRequest(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"client_id":     {a.clientID},
		"client_secret": {a.clientSecret},
	})
}

// RefreshToken exchanges a refresh token for a fresh pair. Only granted
// to programs with refresh enabled; rejections surface as AuthError.
func (a *LinkedInAdapter) RefreshToken(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	return a.tokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {a.clientID},
		"client_secret": {a.clientSecret},
	})
}

func (a *LinkedInAdapter) tokenRequest(ctx context.Context, values url.Values) (models.TokenPair, error) {
	status, raw, err := a.postForm(ctx, a.authBase+"/oauth/v2/accessToken", values, nil)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("linkedin: %w", err)
	}
	if !statusOK(status) {
		return models.TokenPair{}, &AuthError{
			Platform:   models.PlatformLinkedIn,
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
		return models.TokenPair{}, fmt.Errorf("linkedin: decode token response: %w", err)
	}
	return tokenPairFrom(out.AccessToken, out.RefreshToken, out.ExpiresIn), nil
}

func tokenPairFrom(access, refresh string, expiresIn int64) models.TokenPair {
	pair := models.TokenPair{AccessToken: access, RefreshToken: refresh}
	if expiresIn > 0 {
		at := time.Now().Add(time.Duration(expiresIn) * time.Second)
		pair.ExpiresAt = &at
	}
	return pair
}
