package models

import "time"

// ComparisonMethod selects the baseline a viral score is judged against.
type ComparisonMethod string

const (
	CompareAccountAverage ComparisonMethod = "account_average"
	CompareNicheAverage   ComparisonMethod = "niche_average"
	CompareAbsolute       ComparisonMethod = "absolute"
)

// ViralDefinition is the per-account configuration for viral scoring.
// The six weights must sum to 1.0 (within a 0.01 tolerance); definitions
// violating that are rejected at write time, never renormalized.
type ViralDefinition struct {
	ID        string `json:"id" db:"id"`
	AccountID string `json:"account_id" db:"account_id"`

	LikesWeight    float64 `json:"likes_weight" db:"likes_weight"`
	SharesWeight   float64 `json:"shares_weight" db:"shares_weight"`
	CommentsWeight float64 `json:"comments_weight" db:"comments_weight"`
	ViewsWeight    float64 `json:"views_weight" db:"views_weight"`
	SavesWeight    float64 `json:"saves_weight" db:"saves_weight"`
	CTRWeight      float64 `json:"ctr_weight" db:"ctr_weight"`

	LikesThreshold    float64 `json:"likes_threshold" db:"likes_threshold"`
	SharesThreshold   float64 `json:"shares_threshold" db:"shares_threshold"`
	CommentsThreshold float64 `json:"comments_threshold" db:"comments_threshold"`
	ViewsThreshold    float64 `json:"views_threshold" db:"views_threshold"`
	SavesThreshold    float64 `json:"saves_threshold" db:"saves_threshold"`
	CTRThreshold      float64 `json:"ctr_threshold" db:"ctr_threshold"`

	MinimumViralScore float64          `json:"minimum_viral_score" db:"minimum_viral_score"`
	TimeframeHours    int              `json:"timeframe_hours" db:"timeframe_hours"`
	ComparisonMethod  ComparisonMethod `json:"comparison_method" db:"comparison_method"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// WeightSum returns the sum of the six metric weights.
func (d *ViralDefinition) WeightSum() float64 {
	return d.LikesWeight + d.SharesWeight + d.CommentsWeight +
		d.ViewsWeight + d.SavesWeight + d.CTRWeight
}

// EngagementSnapshot is an immutable point-in-time set of engagement
// counters for a post, captured at a fixed checkpoint offset after
// publishing. Snapshots form a time series and are never mutated.
type EngagementSnapshot struct {
	ID              string    `json:"id" db:"id"`
	PostID          string    `json:"post_id" db:"post_id"`
	CheckpointHours int       `json:"checkpoint_hours" db:"checkpoint_hours"`
	Likes           float64   `json:"likes" db:"likes"`
	Shares          float64   `json:"shares" db:"shares"`
	Comments        float64   `json:"comments" db:"comments"`
	Views           float64   `json:"views" db:"views"`
	Saves           float64   `json:"saves" db:"saves"`
	Clicks          *float64  `json:"clicks,omitempty" db:"clicks"`
	Impressions     *float64  `json:"impressions,omitempty" db:"impressions"`
	CapturedAt      time.Time `json:"captured_at" db:"captured_at"`
}

// Checkpoint offsets at which engagement is re-measured, in hours.
var CheckpointSchedule = []int{1, 6, 24, 48, 72}

// ViralScoreResult is derived from the latest snapshot and the account's
// ViralDefinition. It is recomputed on demand and never cached stale.
type ViralScoreResult struct {
	Score         float64            `json:"score"`
	IsViral       bool               `json:"is_viral"`
	Contributions map[string]float64 `json:"contributions"`
	Analysis      string             `json:"analysis"`
}

// AverageComparison is the outcome of comparing a metric against its
// historical average.
type AverageComparison struct {
	PercentageDiff float64 `json:"percentage_diff"`
	Analysis       string  `json:"analysis"`
}
