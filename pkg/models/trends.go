package models

import "time"

// TrendCandidate is a topic surfaced by the research collaborator. It is
// filtered by the trend guards before any content generation happens and
// expires after a niche-specific TTL once persisted.
type TrendCandidate struct {
	ID                string     `json:"id" db:"id"`
	NicheID           string     `json:"niche_id" db:"niche_id"`
	Topic             string     `json:"topic" db:"topic"`
	SourceURL         string     `json:"source_url" db:"source_url"`
	SourcePublishedAt *time.Time `json:"source_published_at,omitempty" db:"source_published_at"`
	RelevanceScore    float64    `json:"relevance_score" db:"relevance_score"`
	IsCurrentVersion  bool       `json:"is_current_version" db:"is_current_version"`
	Summary           string     `json:"summary" db:"summary"`
	ExpiresAt         time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// GeneratedPost is the content-generation output for a trend candidate.
type GeneratedPost struct {
	ID                  string    `json:"id" db:"id"`
	AccountID           string    `json:"account_id" db:"account_id"`
	Topic               string    `json:"topic" db:"topic"`
	Content             string    `json:"content" db:"content"`
	Hashtags            []string  `json:"hashtags" db:"-"`
	PredictedViralScore float64   `json:"predicted_viral_score" db:"predicted_viral_score"`
	Reasoning           string    `json:"reasoning" db:"reasoning"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}
