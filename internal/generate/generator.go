// Package generate drives the LLM collaborator for trend research and
// content generation. The provider is prompted for strict JSON; anything
// that does not parse into the expected shape becomes a GenerationError
// so the orchestrator can drop the candidate instead of crashing a batch.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"signalfire/pkg/llm"
	"signalfire/pkg/logging"
	"signalfire/pkg/models"
)

// GenerationError marks an LLM response that could not be parsed into
// the expected schema. Candidates failing this way are dropped, never
// retried in the same batch.
type GenerationError struct {
	Stage   string
	Message string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at %s: %s", e.Stage, e.Message)
}

// Generator wraps a completion provider with the pipeline's prompts.
type Generator struct {
	provider llm.Provider
	logger   logging.Logger
	now      func() time.Time
}

func NewGenerator(provider llm.Provider, logger logging.Logger) *Generator {
	return &Generator{provider: provider, logger: logger, now: time.Now}
}

const researchSystemPrompt = `You are a trend researcher for social media content.
Respond with a single JSON object only, no prose and no markdown fences.`

const contentSystemPrompt = `You are a social media copywriter.
Respond with a single JSON object only, no prose and no markdown fences.`

type researchResponse struct {
	Topics []researchTopic `json:"topics"`
}

type researchTopic struct {
	Topic             string  `json:"topic"`
	SourceURL         string  `json:"source_url"`
	SourcePublishedAt string  `json:"source_published_at"`
	RelevanceScore    float64 `json:"relevance_score"`
	IsCurrentVersion  bool    `json:"is_current_version"`
	Summary           string  `json:"summary"`
}

type contentResponse struct {
	Content             string   `json:"content"`
	Hashtags            []string `json:"hashtags"`
	PredictedViralScore float64  `json:"predicted_viral_score"`
	Reasoning           string   `json:"reasoning"`
}

// ResearchTopics asks the provider for fresh trend candidates in the
// niche. Candidates come back unguarded; recency and version filtering
// happen downstream.
func (g *Generator) ResearchTopics(ctx context.Context, niche *models.NicheSettings) ([]models.TrendCandidate, error) {
	maxAge := niche.MaxTopicAgeDays
	if maxAge <= 0 {
		maxAge = 7
	}

	prompt := fmt.Sprintf(`Research current trending topics for the %q niche.
Niche context: %s
Only include topics from sources published within the last %d days.
For AI products and tools, only include topics about the current product version.

Return JSON:
{"topics": [{"topic": string, "source_url": string, "source_published_at": "YYYY-MM-DD or RFC3339 or empty if unknown", "relevance_score": number 0-100, "is_current_version": boolean, "summary": string}]}`,
		niche.Name, niche.Context, maxAge)

	raw, err := g.provider.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: researchSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("research topics for niche %s: %w", niche.ID, err)
	}

	var resp researchResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		return nil, &GenerationError{Stage: "research", Message: fmt.Sprintf("unparseable response: %v", err)}
	}
	if len(resp.Topics) == 0 {
		return nil, &GenerationError{Stage: "research", Message: "response contained no topics"}
	}

	ttl := time.Duration(niche.TrendTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := g.now()

	candidates := make([]models.TrendCandidate, 0, len(resp.Topics))
	for _, t := range resp.Topics {
		if strings.TrimSpace(t.Topic) == "" {
			return nil, &GenerationError{Stage: "research", Message: "topic entry missing topic text"}
		}
		candidates = append(candidates, models.TrendCandidate{
			ID:                uuid.New().String(),
			NicheID:           niche.ID,
			Topic:             t.Topic,
			SourceURL:         t.SourceURL,
			SourcePublishedAt: parsePublishedAt(t.SourcePublishedAt),
			RelevanceScore:    t.RelevanceScore,
			IsCurrentVersion:  t.IsCurrentVersion,
			Summary:           t.Summary,
			ExpiresAt:         now.Add(ttl),
			CreatedAt:         now,
		})
	}

	g.logger.WithFields(logging.Fields{
		"niche_id": niche.ID,
		"topics":   len(candidates),
	}).Info("Trend research complete")

	return candidates, nil
}

// GenerateContent asks the provider to write a post for the topic.
func (g *Generator) GenerateContent(ctx context.Context, topic string, niche *models.NicheSettings) (*models.GeneratedPost, error) {
	prompt := fmt.Sprintf(`Write a social media post about: %s
Niche context: %s

The post should open with a strong hook, include a call to action, and
use 3-10 relevant hashtags.

Return JSON:
{"content": string, "hashtags": [string], "predicted_viral_score": number 0-100, "reasoning": string}`,
		topic, niche.Context)

	raw, err := g.provider.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: contentSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("generate content for topic %q: %w", topic, err)
	}

	var resp contentResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		return nil, &GenerationError{Stage: "content", Message: fmt.Sprintf("unparseable response: %v", err)}
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, &GenerationError{Stage: "content", Message: "response missing content"}
	}
	if resp.PredictedViralScore < 0 || resp.PredictedViralScore > 100 {
		return nil, &GenerationError{Stage: "content", Message: fmt.Sprintf("predicted_viral_score %.1f out of range", resp.PredictedViralScore)}
	}

	return &models.GeneratedPost{
		ID:                  uuid.New().String(),
		Topic:               topic,
		Content:             resp.Content,
		Hashtags:            resp.Hashtags,
		PredictedViralScore: resp.PredictedViralScore,
		Reasoning:           resp.Reasoning,
		CreatedAt:           g.now(),
	}, nil
}

// stripFences removes a markdown code fence if the provider wrapped its
// JSON despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parsePublishedAt(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
