package models

import "time"

// MediaRef points an adapter at media to attach. Exactly one of URL or
// Base64 is set; Pinterest and Instagram consume these, Facebook treats
// URL as a link attachment.
type MediaRef struct {
	URL    string `json:"url,omitempty"`
	Base64 string `json:"base64,omitempty"`
}

// PublishRequest is the normalized envelope every adapter accepts,
// regardless of platform.
type PublishRequest struct {
	Platform   Platform            `json:"platform"`
	AccountID  string              `json:"account_id"`
	ExternalID string              `json:"external_id"`
	Content    string              `json:"content"`
	Link       string              `json:"link,omitempty"`
	Media      []MediaRef          `json:"media,omitempty"`
	Title      string              `json:"title,omitempty"`
	Creds      PlatformCredentials `json:"-"`
}

// PublishResult is the normalized outcome of a publish attempt. Expected
// remote rejections land here as Success=false with the platform message;
// connectivity and auth failures are returned as errors instead.
type PublishResult struct {
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TokenPair is the outcome of an OAuth code exchange or token refresh.
type TokenPair struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// PublishRecord is the persisted trail of one publish attempt.
type PublishRecord struct {
	ID          string    `json:"id" db:"id"`
	AccountID   string    `json:"account_id" db:"account_id"`
	Platform    Platform  `json:"platform" db:"platform"`
	PostID      string    `json:"post_id" db:"post_id"`
	RemoteID    string    `json:"remote_id" db:"remote_id"`
	Success     bool      `json:"success" db:"success"`
	Error       string    `json:"error,omitempty" db:"error"`
	Attempts    int       `json:"attempts" db:"attempts"`
	PublishedAt time.Time `json:"published_at" db:"published_at"`
}
