package generate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"signalfire/pkg/llm"
	"signalfire/pkg/logging"
	"signalfire/pkg/models"
)

type fakeProvider struct {
	response string
	err      error
	messages []llm.Message
}

func (f *fakeProvider) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	f.messages = messages
	return f.response, f.err
}

func testNiche() *models.NicheSettings {
	return &models.NicheSettings{
		ID:              "niche_1",
		Name:            "AI tools",
		Context:         "Practical AI tooling for small businesses",
		TrendTTLHours:   48,
		MaxTopicAgeDays: 5,
	}
}

func newTestGenerator(p llm.Provider) *Generator {
	g := NewGenerator(p, logging.NewLogger())
	g.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func TestResearchTopicsParsesCandidates(t *testing.T) {
	p := &fakeProvider{response: `{"topics":[
		{"topic":"Claude agents for bookkeeping","source_url":"https://example.com/a","source_published_at":"2025-05-30","relevance_score":88,"is_current_version":true,"summary":"Agent workflows"},
		{"topic":"Edge inference on phones","source_url":"https://example.com/b","source_published_at":"","relevance_score":71,"is_current_version":true,"summary":"On-device models"}
	]}`}

	g := newTestGenerator(p)
	got, err := g.ResearchTopics(context.Background(), testNiche())
	if err != nil {
		t.Fatalf("ResearchTopics: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}

	first := got[0]
	if first.NicheID != "niche_1" || first.Topic != "Claude agents for bookkeeping" {
		t.Fatalf("unexpected candidate %+v", first)
	}
	if first.SourcePublishedAt == nil || first.SourcePublishedAt.Format("2006-01-02") != "2025-05-30" {
		t.Fatalf("unexpected published-at %v", first.SourcePublishedAt)
	}
	if got[1].SourcePublishedAt != nil {
		t.Fatalf("empty published-at should stay nil, got %v", got[1].SourcePublishedAt)
	}
	wantExpiry := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	if !first.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v from the niche TTL, got %v", wantExpiry, first.ExpiresAt)
	}

	// The prompt carries the niche knobs the provider must honor.
	user := p.messages[len(p.messages)-1].Content
	if !strings.Contains(user, "last 5 days") || !strings.Contains(user, "AI tools") {
		t.Fatalf("prompt missing niche context: %s", user)
	}
}

func TestResearchTopicsMalformedJSONIsGenerationError(t *testing.T) {
	p := &fakeProvider{response: `I found some great topics for you!`}

	g := newTestGenerator(p)
	_, err := g.ResearchTopics(context.Background(), testNiche())

	var gerr *GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if gerr.Stage != "research" {
		t.Fatalf("unexpected stage %q", gerr.Stage)
	}
}

func TestResearchTopicsEmptyTopicsIsGenerationError(t *testing.T) {
	p := &fakeProvider{response: `{"topics":[]}`}

	g := newTestGenerator(p)
	_, err := g.ResearchTopics(context.Background(), testNiche())

	var gerr *GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestResearchTopicsProviderErrorIsNotGenerationError(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}

	g := newTestGenerator(p)
	_, err := g.ResearchTopics(context.Background(), testNiche())
	if err == nil {
		t.Fatal("expected error")
	}
	var gerr *GenerationError
	if errors.As(err, &gerr) {
		t.Fatalf("provider failures must not be classified as parse failures: %v", err)
	}
}

func TestGenerateContentParsesPost(t *testing.T) {
	p := &fakeProvider{response: `{"content":"Stop doing bookkeeping by hand. Try this.","hashtags":["#ai","#smallbusiness"],"predicted_viral_score":72,"reasoning":"strong hook and clear CTA"}`}

	g := newTestGenerator(p)
	post, err := g.GenerateContent(context.Background(), "Claude agents for bookkeeping", testNiche())
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if post.Topic != "Claude agents for bookkeeping" {
		t.Fatalf("unexpected topic %q", post.Topic)
	}
	if post.PredictedViralScore != 72 || len(post.Hashtags) != 2 {
		t.Fatalf("unexpected post %+v", post)
	}
}

func TestGenerateContentStripsCodeFences(t *testing.T) {
	p := &fakeProvider{response: "```json\n{\"content\":\"fenced\",\"hashtags\":[],\"predicted_viral_score\":50,\"reasoning\":\"r\"}\n```"}

	g := newTestGenerator(p)
	post, err := g.GenerateContent(context.Background(), "topic", testNiche())
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if post.Content != "fenced" {
		t.Fatalf("unexpected content %q", post.Content)
	}
}

func TestGenerateContentOutOfRangeScoreRejected(t *testing.T) {
	p := &fakeProvider{response: `{"content":"x","hashtags":[],"predicted_viral_score":140,"reasoning":"r"}`}

	g := newTestGenerator(p)
	_, err := g.GenerateContent(context.Background(), "topic", testNiche())

	var gerr *GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestGenerateContentMissingContentRejected(t *testing.T) {
	p := &fakeProvider{response: `{"hashtags":["#a"],"predicted_viral_score":60,"reasoning":"r"}`}

	g := newTestGenerator(p)
	_, err := g.GenerateContent(context.Background(), "topic", testNiche())

	var gerr *GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}
