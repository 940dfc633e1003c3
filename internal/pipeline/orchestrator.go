// Package pipeline runs the research-to-publish batch for due accounts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"signalfire/internal/generate"
	"signalfire/internal/platforms"
	"signalfire/internal/scoring"
	"signalfire/internal/store"
	"signalfire/internal/trends"
	"signalfire/pkg/logging"
	"signalfire/pkg/models"
	"signalfire/pkg/monitoring"
	"signalfire/pkg/validation"
)

const (
	// DefaultMaxConcurrency bounds how many accounts publish in parallel.
	DefaultMaxConcurrency = 5

	defaultPublishAttempts = 3
	defaultRetryBackoff    = 2 * time.Second

	// tokenRefreshSkew refreshes tokens this close to expiry.
	tokenRefreshSkew = 5 * time.Minute
)

// Outcome statuses recorded per account in a batch report.
const (
	StatusPublished = "published"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// AccountOutcome is the result of one account's run within a batch.
type AccountOutcome struct {
	AccountID string          `json:"account_id"`
	Platform  models.Platform `json:"platform"`
	Status    string          `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	PostID    string          `json:"post_id,omitempty"`
	RemoteID  string          `json:"remote_id,omitempty"`
	Attempts  int             `json:"attempts,omitempty"`
}

// BatchReport aggregates per-account outcomes. The batch itself never
// aborts; every failure is isolated to its account.
type BatchReport struct {
	BatchID    string           `json:"batch_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Outcomes   []AccountOutcome `json:"outcomes"`
}

func (r *BatchReport) count(status string) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Options tunes the orchestrator; zero values take defaults. Metrics is
// optional; a nil collector records nothing.
type Options struct {
	MaxConcurrency  int
	PublishAttempts int
	RetryBackoff    time.Duration
	Metrics         *monitoring.PipelineMetrics
}

// Orchestrator drives the publish pipeline end to end.
type Orchestrator struct {
	store     store.Store
	registry  *platforms.Registry
	resolver  *platforms.CredentialResolver
	generator *generate.Generator
	logger    logging.Logger
	opts      Options

	// accountLocks serializes refresh+publish per account. The lock is
	// held across that pair only, never across the batch.
	accountLocks sync.Map

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(st store.Store, registry *platforms.Registry, resolver *platforms.CredentialResolver, generator *generate.Generator, logger logging.Logger, opts Options) *Orchestrator {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.PublishAttempts <= 0 {
		opts.PublishAttempts = defaultPublishAttempts
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	return &Orchestrator{
		store:     st,
		registry:  registry,
		resolver:  resolver,
		generator: generator,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RunBatch processes every due account, bounded by the concurrency
// semaphore, and persists the batch record.
func (o *Orchestrator) RunBatch(ctx context.Context) (*BatchReport, error) {
	accounts, err := o.store.DueAccounts(ctx, o.now())
	if err != nil {
		return nil, fmt.Errorf("load due accounts: %w", err)
	}
	return o.RunBatchForAccounts(ctx, accounts)
}

// RunBatchForAccounts runs a batch over an explicit account set. The job
// manager uses this to publish only the accounts whose cron schedule
// matched the current minute; RunBatch feeds it every due account.
func (o *Orchestrator) RunBatchForAccounts(ctx context.Context, accounts []models.SocialAccount) (*BatchReport, error) {
	started := o.now()
	report := &BatchReport{StartedAt: started, Outcomes: make([]AccountOutcome, len(accounts))}

	sem := semaphore.NewWeighted(int64(o.opts.MaxConcurrency))
	var wg sync.WaitGroup
	for i := range accounts {
		if err := sem.Acquire(ctx, 1); err != nil {
			report.Outcomes[i] = AccountOutcome{
				AccountID: accounts[i].ID,
				Platform:  accounts[i].Platform,
				Status:    StatusSkipped,
				Reason:    "batch cancelled",
			}
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			report.Outcomes[i] = o.processAccount(ctx, &accounts[i])
		}(i)
	}
	wg.Wait()
	report.FinishedAt = o.now()

	o.opts.Metrics.ObserveBatch(report.FinishedAt.Sub(report.StartedAt))
	for _, out := range report.Outcomes {
		o.opts.Metrics.ObservePublish(string(out.Platform), out.Status)
	}

	o.recordBatch(ctx, report)
	return report, nil
}

func (o *Orchestrator) recordBatch(ctx context.Context, report *BatchReport) {
	outcomes := make(models.JSONB, len(report.Outcomes))
	for _, out := range report.Outcomes {
		outcomes[out.AccountID] = map[string]interface{}{
			"status":   out.Status,
			"reason":   out.Reason,
			"post_id":  out.PostID,
			"attempts": out.Attempts,
		}
	}
	record := &store.BatchRecord{
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Accounts:   len(report.Outcomes),
		Published:  report.count(StatusPublished),
		Failed:     report.count(StatusFailed),
		Skipped:    report.count(StatusSkipped),
		Outcomes:   outcomes,
	}
	if err := o.store.SaveBatchRecord(ctx, record); err != nil {
		o.logger.WithError(err).Error("Failed to persist batch record")
		return
	}
	report.BatchID = record.ID
}

// processAccount runs the strictly sequential per-account stages.
func (o *Orchestrator) processAccount(ctx context.Context, account *models.SocialAccount) AccountOutcome {
	log := o.logger.WithFields(logging.Fields{
		"account_id": account.ID,
		"platform":   account.Platform,
	})

	outcome := AccountOutcome{AccountID: account.ID, Platform: account.Platform}

	niche, err := o.store.NicheByID(ctx, account.NicheID)
	if err != nil {
		log.WithError(err).Error("Failed to load niche")
		return failed(outcome, "niche lookup failed")
	}
	if niche == nil {
		return skipped(outcome, "niche not found")
	}

	candidates, err := o.researchCandidates(ctx, niche, log)
	if err != nil {
		var gerr *generate.GenerationError
		if errors.As(err, &gerr) {
			return skipped(outcome, "research response unparseable")
		}
		log.WithError(err).Error("Trend research failed")
		return failed(outcome, "trend research failed")
	}
	if len(candidates) == 0 {
		return skipped(outcome, "no candidates survived trend guards")
	}

	post, candidate, err := o.generatePost(ctx, candidates, account, niche, log)
	if err != nil {
		log.WithError(err).Error("Content generation failed")
		return failed(outcome, "content generation failed")
	}
	if post == nil {
		return skipped(outcome, "all candidates dropped during generation")
	}

	content := renderContent(post)
	if err := validation.ValidateContentLength(account.Platform, content); err != nil {
		log.WithError(err).Warn("Generated content failed platform validation")
		return skipped(outcome, err.Error())
	}

	creds, err := o.resolver.Resolve(ctx, account)
	if err != nil {
		log.WithError(err).Error("Credential resolution failed")
		return failed(outcome, "credential resolution failed")
	}
	if creds == nil {
		return skipped(outcome, "no credentials configured")
	}

	adapter, err := o.registry.Adapter(account.Platform)
	if err != nil {
		return failed(outcome, err.Error())
	}

	if err := o.store.SaveGeneratedPost(ctx, account.ID, post); err != nil {
		log.WithError(err).Error("Failed to persist generated post")
		return failed(outcome, "persisting generated post failed")
	}
	outcome.PostID = post.ID

	result, attempts, err := o.refreshAndPublish(ctx, adapter, account, niche, creds, candidate, content, post, log)
	outcome.Attempts = attempts
	if err != nil {
		var verr *platforms.ValidationError
		if errors.As(err, &verr) {
			o.recordPublish(ctx, account, post.ID, models.PublishResult{Error: verr.Message}, attempts, log)
			return skipped(outcome, verr.Message)
		}
		var aerr *platforms.AuthError
		if errors.As(err, &aerr) {
			log.WithError(err).Error("Token refresh rejected")
			return failed(outcome, "authentication failed")
		}
		log.WithError(err).Error("Publish failed")
		o.recordPublish(ctx, account, post.ID, models.PublishResult{Error: err.Error()}, attempts, log)
		return failed(outcome, "publish connectivity failure")
	}

	o.recordPublish(ctx, account, post.ID, result, attempts, log)
	if !result.Success {
		return failed(outcome, result.Error)
	}

	outcome.RemoteID = result.ID
	outcome.Status = StatusPublished
	log.WithFields(logging.Fields{"post_id": post.ID, "remote_id": result.ID}).Info("Post published")
	return outcome
}

// researchCandidates asks the collaborator for topics and applies both
// trend guards, logging every discard with its reason.
func (o *Orchestrator) researchCandidates(ctx context.Context, niche *models.NicheSettings, log *logrus.Entry) ([]models.TrendCandidate, error) {
	candidates, err := o.generator.ResearchTopics(ctx, niche)
	if err != nil {
		return nil, err
	}

	kept := candidates[:0]
	for i := range candidates {
		c := &candidates[i]
		if v := trends.ValidateRecency(c.SourcePublishedAt, niche.MaxTopicAgeDays); !v.IsValid {
			log.WithFields(logging.Fields{"topic": c.Topic, "reason": v.Reason}).Info("Discarding stale trend candidate")
			o.opts.Metrics.ObserveTrendRejection("stale")
			continue
		}
		if v := trends.ValidateVersionRecency(c.Topic); !v.IsValid {
			log.WithFields(logging.Fields{"topic": c.Topic, "reason": v.Reason}).Info("Discarding outdated-version trend candidate")
			o.opts.Metrics.ObserveTrendRejection("outdated_version")
			continue
		}
		if !c.IsCurrentVersion {
			log.WithField("topic", c.Topic).Info("Discarding candidate flagged as outdated by research")
			o.opts.Metrics.ObserveTrendRejection("flagged_outdated")
			continue
		}
		if err := o.store.SaveTrendCandidate(ctx, c); err != nil {
			log.WithError(err).WithField("topic", c.Topic).Warn("Failed to persist trend candidate")
		}
		kept = append(kept, *c)
	}
	return kept, nil
}

// generatePost tries candidates in relevance order. A parse failure
// drops that candidate only; any other error aborts the account.
func (o *Orchestrator) generatePost(ctx context.Context, candidates []models.TrendCandidate, account *models.SocialAccount, niche *models.NicheSettings, log *logrus.Entry) (*models.GeneratedPost, *models.TrendCandidate, error) {
	sortByRelevance(candidates)
	for i := range candidates {
		c := &candidates[i]
		post, err := o.generator.GenerateContent(ctx, c.Topic, niche)
		if err != nil {
			var gerr *generate.GenerationError
			if errors.As(err, &gerr) {
				log.WithError(err).WithField("topic", c.Topic).Warn("Dropping candidate after unparseable generation")
				continue
			}
			return nil, nil, err
		}

		predicted := scoring.PredictViralPotential(featuresFor(post, c))
		log.WithFields(logging.Fields{
			"topic":            c.Topic,
			"predicted_score":  predicted,
			"collaborator_est": post.PredictedViralScore,
		}).Info("Content generated")
		return post, c, nil
	}
	return nil, nil, nil
}

// refreshAndPublish holds the account lock across token refresh and the
// publish call so concurrent runs never race on credentials.
func (o *Orchestrator) refreshAndPublish(ctx context.Context, adapter platforms.Adapter, account *models.SocialAccount, niche *models.NicheSettings, creds *models.PlatformCredentials, candidate *models.TrendCandidate, content string, post *models.GeneratedPost, log *logrus.Entry) (models.PublishResult, int, error) {
	lockVal, _ := o.accountLocks.LoadOrStore(account.ID, &sync.Mutex{})
	lock := lockVal.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	if creds.Expired(o.now(), tokenRefreshSkew) && creds.RefreshToken != "" {
		pair, err := adapter.RefreshToken(ctx, creds.RefreshToken)
		switch {
		case errors.Is(err, platforms.ErrRefreshUnsupported):
			log.Debug("Platform does not support token refresh, publishing with current token")
			o.opts.Metrics.ObserveTokenRefresh(string(account.Platform), "unsupported")
		case err != nil:
			o.opts.Metrics.ObserveTokenRefresh(string(account.Platform), "failed")
			return models.PublishResult{}, 0, err
		default:
			o.opts.Metrics.ObserveTokenRefresh(string(account.Platform), "refreshed")
			creds.AccessToken = pair.AccessToken
			if pair.RefreshToken != "" {
				creds.RefreshToken = pair.RefreshToken
			}
			creds.ExpiresAt = pair.ExpiresAt
			if err := o.store.SaveCredentials(ctx, account.ID, creds); err != nil {
				log.WithError(err).Warn("Failed to persist refreshed credentials")
			}
		}
	}

	req := buildPublishRequest(account, niche, candidate, content, post, creds)

	var result models.PublishResult
	attempts := 0
	for attempts < o.opts.PublishAttempts {
		attempts++
		var err error
		result, err = adapter.Publish(ctx, req)
		if err != nil {
			return result, attempts, err
		}
		if result.Success {
			return result, attempts, nil
		}
		// Remote rejection: retry with backoff, bounded by the attempt
		// budget.
		log.WithFields(logging.Fields{
			"attempt": attempts,
			"error":   result.Error,
		}).Warn("Publish rejected by platform")
		if attempts < o.opts.PublishAttempts {
			if err := o.sleep(ctx, o.opts.RetryBackoff*time.Duration(attempts)); err != nil {
				return result, attempts, err
			}
		}
	}
	return result, attempts, nil
}

func (o *Orchestrator) recordPublish(ctx context.Context, account *models.SocialAccount, postID string, result models.PublishResult, attempts int, log *logrus.Entry) {
	record := &models.PublishRecord{
		AccountID:   account.ID,
		Platform:    account.Platform,
		PostID:      postID,
		RemoteID:    result.ID,
		Success:     result.Success,
		Error:       result.Error,
		Attempts:    attempts,
		PublishedAt: o.now(),
	}
	if err := o.store.SavePublishResult(ctx, record); err != nil {
		log.WithError(err).Error("Failed to persist publish record")
	}
}

func buildPublishRequest(account *models.SocialAccount, niche *models.NicheSettings, candidate *models.TrendCandidate, content string, post *models.GeneratedPost, creds *models.PlatformCredentials) *models.PublishRequest {
	req := &models.PublishRequest{
		Platform:   account.Platform,
		AccountID:  account.ID,
		ExternalID: account.ExternalID,
		Content:    content,
		Title:      post.Topic,
		Creds:      *creds,
	}
	if candidate != nil {
		req.Link = candidate.SourceURL
	}
	// Instagram and Pinterest require media on every post.
	if account.Platform == models.PlatformInstagram || account.Platform == models.PlatformPinterest {
		if niche.DefaultImageURL != "" {
			req.Media = []models.MediaRef{{URL: niche.DefaultImageURL}}
		}
	}
	return req
}

// renderContent appends the hashtags the collaborator proposed, skipping
// any already present in the body.
func renderContent(post *models.GeneratedPost) string {
	var extra []string
	for _, tag := range post.Hashtags {
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		if !strings.Contains(post.Content, tag) {
			extra = append(extra, tag)
		}
	}
	if len(extra) == 0 {
		return post.Content
	}
	return post.Content + "\n\n" + strings.Join(extra, " ")
}

func featuresFor(post *models.GeneratedPost, candidate *models.TrendCandidate) scoring.PredictionFeatures {
	return scoring.PredictionFeatures{
		HasHook:             hasHook(post.Content),
		HasCallToAction:     containsAny(post.Content, callToActionPhrases),
		HashtagCount:        validation.CountHashtags(renderContent(post)),
		HasEmotionalTrigger: containsAny(post.Content, emotionalPhrases),
		TrendAlignment:      candidate.RelevanceScore,
	}
}

var callToActionPhrases = []string{
	"comment", "share", "follow", "click", "sign up", "learn more",
	"try it", "join", "save this", "link in bio",
}

var emotionalPhrases = []string{
	"amazing", "shocking", "unbelievable", "love", "hate",
	"game-changer", "stunning", "incredible", "finally",
}

// hasHook checks the opening line for a question, an exclamation, or a
// leading number.
func hasHook(content string) bool {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	if firstLine == "" {
		return false
	}
	if strings.ContainsAny(firstLine, "?!") {
		return true
	}
	return firstLine[0] >= '0' && firstLine[0] <= '9'
}

func containsAny(content string, phrases []string) bool {
	lower := strings.ToLower(content)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func sortByRelevance(candidates []models.TrendCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RelevanceScore > candidates[j].RelevanceScore
	})
}

func failed(o AccountOutcome, reason string) AccountOutcome {
	o.Status = StatusFailed
	o.Reason = reason
	return o
}

func skipped(o AccountOutcome, reason string) AccountOutcome {
	o.Status = StatusSkipped
	o.Reason = reason
	return o
}
