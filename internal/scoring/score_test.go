package scoring

import (
	"strings"
	"testing"

	"signalfire/pkg/models"
)

func testDefinition() *models.ViralDefinition {
	return &models.ViralDefinition{
		LikesWeight:    0.3,
		SharesWeight:   0.25,
		CommentsWeight: 0.2,
		ViewsWeight:    0.1,
		SavesWeight:    0.1,
		CTRWeight:      0.05,

		LikesThreshold:    100,
		SharesThreshold:   20,
		CommentsThreshold: 15,
		ViewsThreshold:    2000,
		SavesThreshold:    10,
		CTRThreshold:      2,

		MinimumViralScore: 70,
	}
}

func f(v float64) *float64 { return &v }

func TestCalculateViralScoreAtThresholds(t *testing.T) {
	// Every metric exactly at threshold: each ratio is 1.0, so the
	// score equals the weight sum times 100 minus the missing CTR share.
	snap := &models.EngagementSnapshot{
		Likes: 100, Shares: 20, Comments: 15, Views: 2000, Saves: 10,
	}
	res := CalculateViralScore(snap, testDefinition())
	if res.Score != 95 {
		t.Fatalf("expected score 95 without CTR data, got %v", res.Score)
	}
	if res.Contributions["ctr"] != 0 {
		t.Fatalf("CTR contribution should be 0 without clicks/impressions, got %v", res.Contributions["ctr"])
	}
	if !res.IsViral {
		t.Fatal("95 should clear the 70 minimum")
	}
}

func TestCalculateViralScoreCTR(t *testing.T) {
	snap := &models.EngagementSnapshot{
		Likes: 100, Shares: 20, Comments: 15, Views: 2000, Saves: 10,
		Clicks: f(40), Impressions: f(2000), // ctr = 2% = threshold
	}
	res := CalculateViralScore(snap, testDefinition())
	if res.Score != 100 {
		t.Fatalf("expected 100 with CTR at threshold, got %v", res.Score)
	}
	if got := res.Contributions["ctr"]; got != 5 {
		t.Fatalf("expected CTR contribution 5, got %v", got)
	}
}

func TestCalculateViralScoreZeroImpressions(t *testing.T) {
	snap := &models.EngagementSnapshot{
		Likes: 100, Clicks: f(40), Impressions: f(0),
	}
	res := CalculateViralScore(snap, testDefinition())
	if res.Contributions["ctr"] != 0 {
		t.Fatal("zero impressions must not divide")
	}
}

func TestCalculateViralScoreRatioCap(t *testing.T) {
	// Likes at 50x threshold: ratio capped at 2.0 so the contribution
	// is exactly 2 * 0.3 * 100 = 60.
	snap := &models.EngagementSnapshot{Likes: 5000}
	res := CalculateViralScore(snap, testDefinition())
	if got := res.Contributions["likes"]; got != 60 {
		t.Fatalf("expected capped likes contribution 60, got %v", got)
	}
}

func TestCalculateViralScoreTotalCap(t *testing.T) {
	// Everything at 2x threshold sums past 100; aggregate must cap.
	snap := &models.EngagementSnapshot{
		Likes: 10000, Shares: 4000, Comments: 3000, Views: 400000, Saves: 2000,
		Clicks: f(100000), Impressions: f(100000),
	}
	res := CalculateViralScore(snap, testDefinition())
	if res.Score != 100 {
		t.Fatalf("score must cap at 100, got %v", res.Score)
	}
}

func TestCalculateViralScoreMonotonic(t *testing.T) {
	def := testDefinition()
	prev := -1.0
	for likes := 0.0; likes <= 400; likes += 25 {
		snap := &models.EngagementSnapshot{Likes: likes, Shares: 10, Comments: 5, Views: 500, Saves: 2}
		res := CalculateViralScore(snap, def)
		if res.Contributions["likes"] < prev {
			t.Fatalf("likes contribution decreased at likes=%v", likes)
		}
		prev = res.Contributions["likes"]
		if res.Score > 100 {
			t.Fatalf("score exceeded 100 at likes=%v", likes)
		}
	}
}

func TestAnalysisNamesTopDriversWhenViral(t *testing.T) {
	snap := &models.EngagementSnapshot{
		Likes: 200, Shares: 40, Comments: 15, Views: 2000, Saves: 10,
	}
	res := CalculateViralScore(snap, testDefinition())
	if !res.IsViral {
		t.Fatalf("expected viral, score %v", res.Score)
	}
	if !strings.Contains(res.Analysis, "likes") || !strings.Contains(res.Analysis, "shares") {
		t.Fatalf("analysis should name the two top drivers, got %q", res.Analysis)
	}
}

func TestAnalysisNamesWeakContributorsWhenNotViral(t *testing.T) {
	snap := &models.EngagementSnapshot{Likes: 50, Shares: 2, Comments: 1, Views: 100, Saves: 0}
	res := CalculateViralScore(snap, testDefinition())
	if res.IsViral {
		t.Fatalf("expected non-viral, score %v", res.Score)
	}
	if !strings.Contains(res.Analysis, "improve") {
		t.Fatalf("analysis should list improvement targets, got %q", res.Analysis)
	}
}
