package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"signalfire/pkg/models"
)

const (
	instagramGraphBase = "https://graph.facebook.com/v19.0"

	carouselMinItems = 2
	carouselMaxItems = 10
)

// InstagramAdapter publishes through the two-phase container flow of the
// Instagram Graph API: create a media container, then publish it. A
// carousel creates each child container first, then a parent carousel
// container, then publishes the parent.
type InstagramAdapter struct {
	httpCore
	graphBase    string
	clientID     string
	clientSecret string
}

func NewInstagramAdapter(clientID, clientSecret string, opts ...Option) *InstagramAdapter {
	a := &InstagramAdapter{
		httpCore:     newHTTPCore(),
		graphBase:    instagramGraphBase,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
	a.apply(opts)
	return a
}

func (a *InstagramAdapter) Platform() models.Platform { return models.PlatformInstagram }

// Publish validates media locally, then runs the container flow. One
// media ref publishes a single image; 2-10 refs publish a carousel; any
// other count is rejected before any network call.
func (a *InstagramAdapter) Publish(ctx context.Context, req *models.PublishRequest) (models.PublishResult, error) {
	if verr := a.validateRequest(req); verr != nil {
		return models.PublishResult{}, verr
	}

	if len(req.Media) == 1 {
		return a.publishSingle(ctx, req)
	}
	return a.PublishCarousel(ctx, req)
}

// PublishCarousel publishes 2-10 media refs as a carousel. The item
// count is validated before any network call: each child container is
// created individually, then the parent carousel container, then the
// publish call, so a 2-image carousel costs exactly 4 API calls.
func (a *InstagramAdapter) PublishCarousel(ctx context.Context, req *models.PublishRequest) (models.PublishResult, error) {
	if verr := a.validateRequest(req); verr != nil {
		return models.PublishResult{}, verr
	}
	if len(req.Media) < carouselMinItems || len(req.Media) > carouselMaxItems {
		return models.PublishResult{}, &ValidationError{
			Platform: models.PlatformInstagram,
			Field:    "media",
			Message:  fmt.Sprintf("carousel requires %d-%d items, got %d", carouselMinItems, carouselMaxItems, len(req.Media)),
		}
	}
	return a.publishCarousel(ctx, req)
}

// validateRequest covers the checks shared by single and carousel
// publishes; all of them fail locally, before any network call.
func (a *InstagramAdapter) validateRequest(req *models.PublishRequest) *ValidationError {
	if req.ExternalID == "" {
		return &ValidationError{
			Platform: models.PlatformInstagram,
			Field:    "external_id",
			Message:  "instagram user id is required",
		}
	}
	if req.Creds.AccessToken == "" {
		return &ValidationError{
			Platform: models.PlatformInstagram,
			Field:    "access_token",
			Message:  "access token is required",
		}
	}
	if len(req.Media) == 0 {
		return &ValidationError{
			Platform: models.PlatformInstagram,
			Field:    "media",
			Message:  "image_url is required",
		}
	}
	for i, m := range req.Media {
		if m.URL == "" && m.Base64 == "" {
			return &ValidationError{
				Platform: models.PlatformInstagram,
				Field:    fmt.Sprintf("media[%d]", i),
				Message:  "image_url is required",
			}
		}
	}
	return nil
}

func (a *InstagramAdapter) publishSingle(ctx context.Context, req *models.PublishRequest) (models.PublishResult, error) {
	values := url.Values{"caption": {req.Content}}
	setMediaSource(values, req.Media[0])

	containerID, rejection, err := a.createContainer(ctx, req, values)
	if err != nil {
		return models.PublishResult{}, err
	}
	if rejection != "" {
		return models.PublishResult{Success: false, Error: rejection}, nil
	}
	return a.publishContainer(ctx, req, containerID)
}

func (a *InstagramAdapter) publishCarousel(ctx context.Context, req *models.PublishRequest) (models.PublishResult, error) {
	children := make([]string, 0, len(req.Media))
	for _, m := range req.Media {
		values := url.Values{"is_carousel_item": {"true"}}
		setMediaSource(values, m)

		childID, rejection, err := a.createContainer(ctx, req, values)
		if err != nil {
			return models.PublishResult{}, err
		}
		if rejection != "" {
			return models.PublishResult{Success: false, Error: rejection}, nil
		}
		children = append(children, childID)
	}

	values := url.Values{
		"media_type": {"CAROUSEL"},
		"caption":    {req.Content},
		"children":   {strings.Join(children, ",")},
	}
	parentID, rejection, err := a.createContainer(ctx, req, values)
	if err != nil {
		return models.PublishResult{}, err
	}
	if rejection != "" {
		return models.PublishResult{Success: false, Error: rejection}, nil
	}
	return a.publishContainer(ctx, req, parentID)
}

func setMediaSource(values url.Values, m models.MediaRef) {
	if m.URL != "" {
		values.Set("image_url", m.URL)
		return
	}
	values.Set("image_base64", m.Base64)
}

// createContainer posts to /{ig_id}/media. Remote rejections come back
// as a message, not an error.
func (a *InstagramAdapter) createContainer(ctx context.Context, req *models.PublishRequest, values url.Values) (string, string, error) {
	values.Set("access_token", req.Creds.AccessToken)
	endpoint := fmt.Sprintf("%s/%s/media", a.graphBase, req.ExternalID)

	status, raw, err := a.postForm(ctx, endpoint, values, nil)
	if err != nil {
		return "", "", fmt.Errorf("instagram: %w", err)
	}
	if !statusOK(status) {
		return "", remoteMessage(raw), nil
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.ID == "" {
		return "", "container response missing id", nil
	}
	return out.ID, "", nil
}

// publishContainer posts to /{ig_id}/media_publish. The returned ID is
// the published media's, not the container's.
func (a *InstagramAdapter) publishContainer(ctx context.Context, req *models.PublishRequest, containerID string) (models.PublishResult, error) {
	values := url.Values{
		"creation_id":  {containerID},
		"access_token": {req.Creds.AccessToken},
	}
	endpoint := fmt.Sprintf("%s/%s/media_publish", a.graphBase, req.ExternalID)

	status, raw, err := a.postForm(ctx, endpoint, values, nil)
	if err != nil {
		return models.PublishResult{}, fmt.Errorf("instagram: %w", err)
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

// ExchangeCode goes through Facebook Login, which fronts the Instagram
// Graph API.
func (a *InstagramAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (models.TokenPair, error) {
	endpoint := fmt.Sprintf("%s/oauth/access_token?%s", a.graphBase, url.Values{
		"client_id":     {a.clientID},
		"client_secret": {a.clientSecret},
		"redirect_uri":  {redirectURI},
		"code":          {code},
	}.Encode())

	status, raw, err := a.getJSON(ctx, endpoint)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("instagram: %w", err)
	}
	if !statusOK(status) {
		return models.TokenPair{}, &AuthError{
			Platform:   models.PlatformInstagram,
			StatusCode: status,
			Message:    remoteMessage(raw),
		}
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.TokenPair{}, fmt.Errorf("instagram: decode token response: %w", err)
	}
	return tokenPairFrom(out.AccessToken, "", out.ExpiresIn), nil
}

// RefreshToken is not supported; long-lived tokens are managed on the
// Facebook side.
func (a *InstagramAdapter) RefreshToken(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	return models.TokenPair{}, ErrRefreshUnsupported
}
