// Package store is the persistence layer over an externally owned
// Postgres schema. The pipeline consumes the narrow Store interface;
// the Postgres implementation lives here only.
package store

import (
	"context"
	"time"

	"signalfire/pkg/models"
)

// AverageMetrics is a historical engagement baseline, averaged over the
// snapshots recorded for an account or a niche.
type AverageMetrics struct {
	Likes      float64 `json:"likes"`
	Shares     float64 `json:"shares"`
	Comments   float64 `json:"comments"`
	Views      float64 `json:"views"`
	Saves      float64 `json:"saves"`
	SampleSize int     `json:"sample_size"`
}

// EngagementTotal is the scalar used for average comparisons: the sum of
// the countable engagement metrics.
func (m AverageMetrics) EngagementTotal() float64 {
	return m.Likes + m.Shares + m.Comments + m.Saves
}

// BatchRecord is the persisted outcome of one pipeline batch run.
type BatchRecord struct {
	ID         string       `json:"id" db:"id"`
	StartedAt  time.Time    `json:"started_at" db:"started_at"`
	FinishedAt time.Time    `json:"finished_at" db:"finished_at"`
	Accounts   int          `json:"accounts" db:"accounts"`
	Published  int          `json:"published" db:"published"`
	Failed     int          `json:"failed" db:"failed"`
	Skipped    int          `json:"skipped" db:"skipped"`
	Outcomes   models.JSONB `json:"outcomes" db:"outcomes"`
}

// Store is the persistence contract the pipeline and handlers consume.
type Store interface {
	ViralDefinitionByAccount(ctx context.Context, accountID string) (*models.ViralDefinition, error)
	SaveViralDefinition(ctx context.Context, def *models.ViralDefinition) error

	LatestSnapshot(ctx context.Context, postID string) (*models.EngagementSnapshot, error)
	SnapshotsForPost(ctx context.Context, postID string) ([]models.EngagementSnapshot, error)

	DueAccounts(ctx context.Context, now time.Time) ([]models.SocialAccount, error)
	UpdateNextRun(ctx context.Context, accountID string, next time.Time) error
	NicheByID(ctx context.Context, nicheID string) (*models.NicheSettings, error)
	CredentialsForAccount(ctx context.Context, accountID string) (*models.PlatformCredentials, error)
	SaveCredentials(ctx context.Context, accountID string, creds *models.PlatformCredentials) error

	SaveTrendCandidate(ctx context.Context, candidate *models.TrendCandidate) error
	SaveGeneratedPost(ctx context.Context, accountID string, post *models.GeneratedPost) error
	SavePublishResult(ctx context.Context, record *models.PublishRecord) error

	AccountAverageMetrics(ctx context.Context, accountID string) (*AverageMetrics, error)
	NicheAverageMetrics(ctx context.Context, nicheID string) (*AverageMetrics, error)

	SaveBatchRecord(ctx context.Context, record *BatchRecord) error
	RecentBatches(ctx context.Context, limit int) ([]BatchRecord, error)
}
