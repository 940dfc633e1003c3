package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"signalfire/pkg/cache"
	"signalfire/pkg/logging"
	"signalfire/pkg/models"
	"signalfire/pkg/validation"
)

// averagesTTL bounds how stale a historical baseline may get. Averages
// move slowly; a short TTL keeps the hot path off the aggregate query.
const averagesTTL = 10 * time.Minute

// PostgresStore implements Store over the existing herald schema.
type PostgresStore struct {
	db       *sql.DB
	logger   logging.Logger
	averages *cache.Cache
}

func NewPostgresStore(db *sql.DB, logger logging.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
		averages: cache.New(cache.Options{
			TTL:                  averagesTTL,
			StaleWhileRevalidate: averagesTTL,
			MaxEntries:           1024,
		}, cache.MetricsHooks{}),
	}
}

func (s *PostgresStore) ViralDefinitionByAccount(ctx context.Context, accountID string) (*models.ViralDefinition, error) {
	var def models.ViralDefinition
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id,
		       likes_weight, shares_weight, comments_weight, views_weight, saves_weight, ctr_weight,
		       likes_threshold, shares_threshold, comments_threshold, views_threshold, saves_threshold, ctr_threshold,
		       minimum_viral_score, timeframe_hours, comparison_method,
		       created_at, updated_at
		FROM viral_definitions
		WHERE account_id = $1
	`, accountID).Scan(
		&def.ID, &def.AccountID,
		&def.LikesWeight, &def.SharesWeight, &def.CommentsWeight, &def.ViewsWeight, &def.SavesWeight, &def.CTRWeight,
		&def.LikesThreshold, &def.SharesThreshold, &def.CommentsThreshold, &def.ViewsThreshold, &def.SavesThreshold, &def.CTRThreshold,
		&def.MinimumViralScore, &def.TimeframeHours, &def.ComparisonMethod,
		&def.CreatedAt, &def.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load viral definition for account %s: %w", accountID, err)
	}
	return &def, nil
}

// SaveViralDefinition upserts a definition. Definitions violating the
// weight-sum invariant are rejected here, never renormalized.
func (s *PostgresStore) SaveViralDefinition(ctx context.Context, def *models.ViralDefinition) error {
	if err := validation.ValidateViralDefinition(def); err != nil {
		return err
	}
	if def.ID == "" {
		def.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO viral_definitions (
			id, account_id,
			likes_weight, shares_weight, comments_weight, views_weight, saves_weight, ctr_weight,
			likes_threshold, shares_threshold, comments_threshold, views_threshold, saves_threshold, ctr_threshold,
			minimum_viral_score, timeframe_hours, comparison_method,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
		ON CONFLICT (account_id) DO UPDATE SET
			likes_weight = EXCLUDED.likes_weight,
			shares_weight = EXCLUDED.shares_weight,
			comments_weight = EXCLUDED.comments_weight,
			views_weight = EXCLUDED.views_weight,
			saves_weight = EXCLUDED.saves_weight,
			ctr_weight = EXCLUDED.ctr_weight,
			likes_threshold = EXCLUDED.likes_threshold,
			shares_threshold = EXCLUDED.shares_threshold,
			comments_threshold = EXCLUDED.comments_threshold,
			views_threshold = EXCLUDED.views_threshold,
			saves_threshold = EXCLUDED.saves_threshold,
			ctr_threshold = EXCLUDED.ctr_threshold,
			minimum_viral_score = EXCLUDED.minimum_viral_score,
			timeframe_hours = EXCLUDED.timeframe_hours,
			comparison_method = EXCLUDED.comparison_method,
			updated_at = NOW()
	`,
		def.ID, def.AccountID,
		def.LikesWeight, def.SharesWeight, def.CommentsWeight, def.ViewsWeight, def.SavesWeight, def.CTRWeight,
		def.LikesThreshold, def.SharesThreshold, def.CommentsThreshold, def.ViewsThreshold, def.SavesThreshold, def.CTRThreshold,
		def.MinimumViralScore, def.TimeframeHours, def.ComparisonMethod,
	)
	if err != nil {
		return fmt.Errorf("save viral definition for account %s: %w", def.AccountID, err)
	}
	return nil
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context, postID string) (*models.EngagementSnapshot, error) {
	var snap models.EngagementSnapshot
	err := s.db.QueryRowContext(ctx, `
		SELECT id, post_id, checkpoint_hours, likes, shares, comments, views, saves, clicks, impressions, captured_at
		FROM engagement_snapshots
		WHERE post_id = $1
		ORDER BY captured_at DESC
		LIMIT 1
	`, postID).Scan(
		&snap.ID, &snap.PostID, &snap.CheckpointHours,
		&snap.Likes, &snap.Shares, &snap.Comments, &snap.Views, &snap.Saves,
		&snap.Clicks, &snap.Impressions, &snap.CapturedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot for post %s: %w", postID, err)
	}
	return &snap, nil
}

func (s *PostgresStore) SnapshotsForPost(ctx context.Context, postID string) ([]models.EngagementSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, checkpoint_hours, likes, shares, comments, views, saves, clicks, impressions, captured_at
		FROM engagement_snapshots
		WHERE post_id = $1
		ORDER BY checkpoint_hours ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("load snapshots for post %s: %w", postID, err)
	}
	defer rows.Close()

	var snaps []models.EngagementSnapshot
	for rows.Next() {
		var snap models.EngagementSnapshot
		if err := rows.Scan(
			&snap.ID, &snap.PostID, &snap.CheckpointHours,
			&snap.Likes, &snap.Shares, &snap.Comments, &snap.Views, &snap.Saves,
			&snap.Clicks, &snap.Impressions, &snap.CapturedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// DueAccounts returns enabled accounts whose next scheduled run is at or
// before now. The schedule itself is evaluated by the job manager; this
// query only filters on the stored next_run_at marker.
func (s *PostgresStore) DueAccounts(ctx context.Context, now time.Time) ([]models.SocialAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, niche_id, platform, external_id, display_name, enabled, schedule_cron, timezone, created_at, updated_at
		FROM social_accounts
		WHERE enabled = TRUE AND (next_run_at IS NULL OR next_run_at <= $1)
		ORDER BY created_at ASC
	`, now)
	if err != nil {
		return nil, fmt.Errorf("load due accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.SocialAccount
	for rows.Next() {
		var a models.SocialAccount
		if err := rows.Scan(
			&a.ID, &a.NicheID, &a.Platform, &a.ExternalID, &a.DisplayName,
			&a.Enabled, &a.ScheduleCron, &a.Timezone, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UpdateNextRun advances an account's schedule marker so DueAccounts
// skips it until that minute arrives.
func (s *PostgresStore) UpdateNextRun(ctx context.Context, accountID string, next time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE social_accounts
		SET next_run_at = $2, updated_at = NOW()
		WHERE id = $1
	`, accountID, next)
	if err != nil {
		return fmt.Errorf("update next run for account %s: %w", accountID, err)
	}
	return nil
}

func (s *PostgresStore) NicheByID(ctx context.Context, nicheID string) (*models.NicheSettings, error) {
	var n models.NicheSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, context, trend_ttl_hours, max_topic_age_days, COALESCE(default_image_url, ''), created_at
		FROM niches
		WHERE id = $1
	`, nicheID).Scan(&n.ID, &n.Name, &n.Context, &n.TrendTTLHours, &n.MaxTopicAgeDays, &n.DefaultImageURL, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load niche %s: %w", nicheID, err)
	}
	return &n, nil
}

func (s *PostgresStore) CredentialsForAccount(ctx context.Context, accountID string) (*models.PlatformCredentials, error) {
	var c models.PlatformCredentials
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(client_id, ''), COALESCE(client_secret, ''), access_token, COALESCE(refresh_token, ''), expires_at
		FROM platform_credentials
		WHERE account_id = $1
	`, accountID).Scan(&c.ClientID, &c.ClientSecret, &c.AccessToken, &c.RefreshToken, &c.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials for account %s: %w", accountID, err)
	}
	return &c, nil
}

func (s *PostgresStore) SaveCredentials(ctx context.Context, accountID string, creds *models.PlatformCredentials) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO platform_credentials (account_id, client_id, client_secret, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (account_id) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`, accountID, creds.ClientID, creds.ClientSecret, creds.AccessToken, creds.RefreshToken, creds.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save credentials for account %s: %w", accountID, err)
	}
	return nil
}

func (s *PostgresStore) SaveTrendCandidate(ctx context.Context, candidate *models.TrendCandidate) error {
	if candidate.ID == "" {
		candidate.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trend_candidates (id, niche_id, topic, source_url, source_published_at, relevance_score, is_current_version, summary, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, candidate.ID, candidate.NicheID, candidate.Topic, candidate.SourceURL, candidate.SourcePublishedAt,
		candidate.RelevanceScore, candidate.IsCurrentVersion, candidate.Summary, candidate.ExpiresAt, candidate.CreatedAt)
	if err != nil {
		return fmt.Errorf("save trend candidate %s: %w", candidate.ID, err)
	}
	return nil
}

func (s *PostgresStore) SaveGeneratedPost(ctx context.Context, accountID string, post *models.GeneratedPost) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	post.AccountID = accountID
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generated_posts (id, account_id, topic, content, hashtags, predicted_viral_score, reasoning, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, post.ID, accountID, post.Topic, post.Content, pq.Array(post.Hashtags), post.PredictedViralScore, post.Reasoning, post.CreatedAt)
	if err != nil {
		return fmt.Errorf("save generated post %s: %w", post.ID, err)
	}
	return nil
}

func (s *PostgresStore) SavePublishResult(ctx context.Context, record *models.PublishRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO publish_records (id, account_id, platform, post_id, remote_id, success, error, attempts, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, record.ID, record.AccountID, record.Platform, record.PostID, record.RemoteID,
		record.Success, record.Error, record.Attempts, record.PublishedAt)
	if err != nil {
		return fmt.Errorf("save publish result %s: %w", record.ID, err)
	}

	// Invalidate the baselines the new result will shift.
	s.averages.Delete("account:" + record.AccountID)
	return nil
}

func (s *PostgresStore) AccountAverageMetrics(ctx context.Context, accountID string) (*AverageMetrics, error) {
	return s.cachedAverages(ctx, "account:"+accountID, `
		SELECT COALESCE(AVG(es.likes), 0), COALESCE(AVG(es.shares), 0), COALESCE(AVG(es.comments), 0),
		       COALESCE(AVG(es.views), 0), COALESCE(AVG(es.saves), 0), COUNT(*)
		FROM engagement_snapshots es
		JOIN publish_records pr ON pr.post_id = es.post_id
		WHERE pr.account_id = $1
	`, accountID)
}

func (s *PostgresStore) NicheAverageMetrics(ctx context.Context, nicheID string) (*AverageMetrics, error) {
	return s.cachedAverages(ctx, "niche:"+nicheID, `
		SELECT COALESCE(AVG(es.likes), 0), COALESCE(AVG(es.shares), 0), COALESCE(AVG(es.comments), 0),
		       COALESCE(AVG(es.views), 0), COALESCE(AVG(es.saves), 0), COUNT(*)
		FROM engagement_snapshots es
		JOIN publish_records pr ON pr.post_id = es.post_id
		JOIN social_accounts sa ON sa.id = pr.account_id
		WHERE sa.niche_id = $1
	`, nicheID)
}

func (s *PostgresStore) cachedAverages(ctx context.Context, key, query, arg string) (*AverageMetrics, error) {
	val, ok, err := s.averages.Get(ctx, key, func(ctx context.Context, _ string) (interface{}, bool, error) {
		var m AverageMetrics
		err := s.db.QueryRowContext(ctx, query, arg).Scan(
			&m.Likes, &m.Shares, &m.Comments, &m.Views, &m.Saves, &m.SampleSize,
		)
		if err != nil {
			return nil, false, fmt.Errorf("load average metrics for %s: %w", key, err)
		}
		return &m, true, nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return val.(*AverageMetrics), nil
}

func (s *PostgresStore) SaveBatchRecord(ctx context.Context, record *BatchRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_batches (id, started_at, finished_at, accounts, published, failed, skipped, outcomes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, record.ID, record.StartedAt, record.FinishedAt, record.Accounts,
		record.Published, record.Failed, record.Skipped, record.Outcomes)
	if err != nil {
		return fmt.Errorf("save batch record %s: %w", record.ID, err)
	}
	return nil
}

func (s *PostgresStore) RecentBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, accounts, published, failed, skipped, outcomes
		FROM pipeline_batches
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent batches: %w", err)
	}
	defer rows.Close()

	var batches []BatchRecord
	for rows.Next() {
		var b BatchRecord
		if err := rows.Scan(&b.ID, &b.StartedAt, &b.FinishedAt, &b.Accounts,
			&b.Published, &b.Failed, &b.Skipped, &b.Outcomes); err != nil {
			return nil, fmt.Errorf("scan batch record: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
