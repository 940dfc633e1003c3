package models

import "time"

// Platform identifies one of the supported social platforms. The set is
// sealed: adapters are registered per constant, not looked up by free-form
// string keys.
type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformPinterest Platform = "pinterest"
)

// Platforms lists every supported platform.
var Platforms = []Platform{PlatformLinkedIn, PlatformFacebook, PlatformInstagram, PlatformPinterest}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformLinkedIn, PlatformFacebook, PlatformInstagram, PlatformPinterest:
		return true
	}
	return false
}

// SocialAccount is a connected publishing target on one platform.
// ExternalID is the platform-side object posts attach to: a page ID for
// Facebook, an IG user ID for Instagram, a board ID for Pinterest, and a
// person or organization URN for LinkedIn.
type SocialAccount struct {
	ID           string    `json:"id" db:"id"`
	NicheID      string    `json:"niche_id" db:"niche_id"`
	Platform     Platform  `json:"platform" db:"platform"`
	ExternalID   string    `json:"external_id" db:"external_id"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	Enabled      bool      `json:"enabled" db:"enabled"`
	ScheduleCron string    `json:"schedule_cron" db:"schedule_cron"`
	Timezone     string    `json:"timezone" db:"timezone"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// PlatformCredentials holds the OAuth material for one social account.
// Owned exclusively by the adapter layer; the orchestrator only ever sees
// opaque tokens.
type PlatformCredentials struct {
	ClientID     string     `json:"client_id" db:"client_id"`
	ClientSecret string     `json:"client_secret" db:"client_secret"`
	AccessToken  string     `json:"access_token" db:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty" db:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

// Expired reports whether the access token is past (or within skew of)
// its expiry. Credentials without an expiry never report expired.
func (c *PlatformCredentials) Expired(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Add(skew).Before(*c.ExpiresAt)
}

// NicheSettings carries the per-niche knobs the pipeline reads.
// DefaultImageURL backs the media-requiring platforms when a post has no
// media of its own.
type NicheSettings struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Context         string    `json:"context" db:"context"`
	TrendTTLHours   int       `json:"trend_ttl_hours" db:"trend_ttl_hours"`
	MaxTopicAgeDays int       `json:"max_topic_age_days" db:"max_topic_age_days"`
	DefaultImageURL string    `json:"default_image_url" db:"default_image_url"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
