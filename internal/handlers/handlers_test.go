package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"signalfire/internal/store"
	"signalfire/pkg/logging"
	"signalfire/pkg/models"
	"signalfire/pkg/monitoring"
)

type fakeStore struct {
	store.Store

	snapshot   *models.EngagementSnapshot
	definition *models.ViralDefinition
	accountAvg *store.AverageMetrics
	nicheAvg   *store.AverageMetrics
	batches    []store.BatchRecord
}

func (f *fakeStore) LatestSnapshot(ctx context.Context, postID string) (*models.EngagementSnapshot, error) {
	return f.snapshot, nil
}

func (f *fakeStore) ViralDefinitionByAccount(ctx context.Context, accountID string) (*models.ViralDefinition, error) {
	return f.definition, nil
}

func (f *fakeStore) AccountAverageMetrics(ctx context.Context, accountID string) (*store.AverageMetrics, error) {
	return f.accountAvg, nil
}

func (f *fakeStore) NicheAverageMetrics(ctx context.Context, nicheID string) (*store.AverageMetrics, error) {
	return f.nicheAvg, nil
}

func (f *fakeStore) RecentBatches(ctx context.Context, limit int) ([]store.BatchRecord, error) {
	if limit < len(f.batches) {
		return f.batches[:limit], nil
	}
	return f.batches, nil
}

func testRouter(st store.Store) *gin.Engine {
	return testRouterWithMetrics(st, nil)
}

func testRouterWithMetrics(st store.Store, metrics *monitoring.PipelineMetrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := New(st, nil, logging.NewLogger(), metrics)
	h.Register(router)
	return router
}

func testDefinition() *models.ViralDefinition {
	return &models.ViralDefinition{
		ID: "def_1", AccountID: "acc_1",
		LikesWeight: 0.2, SharesWeight: 0.3, CommentsWeight: 0.2,
		ViewsWeight: 0.1, SavesWeight: 0.1, CTRWeight: 0.1,
		LikesThreshold: 100, SharesThreshold: 50, CommentsThreshold: 25,
		ViewsThreshold: 10000, SavesThreshold: 40, CTRThreshold: 2,
		MinimumViralScore: 70, TimeframeHours: 48,
		ComparisonMethod: models.CompareAccountAverage,
	}
}

func TestGetScoreComputesOnDemand(t *testing.T) {
	st := &fakeStore{
		snapshot: &models.EngagementSnapshot{
			PostID: "post_1", CheckpointHours: 24,
			Likes: 100, Shares: 50, Comments: 25, Views: 10000, Saves: 40,
			CapturedAt: time.Now(),
		},
		definition: testDefinition(),
		accountAvg: &store.AverageMetrics{Likes: 50, Shares: 25, Comments: 10, Saves: 15, SampleSize: 12},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/scores/post_1?account_id=acc_1", nil)
	testRouter(st).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ScoreResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// All five counted metrics exactly at threshold without CTR data.
	if resp.Result.Score != 90 {
		t.Fatalf("expected score 90, got %v", resp.Result.Score)
	}
	if !resp.Result.IsViral {
		t.Fatal("expected viral at minimum score 70")
	}
	if resp.Comparison == nil {
		t.Fatal("expected account-average comparison")
	}
	// 215 engagement vs a 100 average.
	if resp.Comparison.PercentageDiff != 115 {
		t.Fatalf("unexpected comparison %+v", resp.Comparison)
	}
}

func TestGetScoreCountsComputations(t *testing.T) {
	st := &fakeStore{
		snapshot: &models.EngagementSnapshot{
			PostID: "post_1", CheckpointHours: 24,
			Likes: 10, Shares: 5, CapturedAt: time.Now(),
		},
		definition: testDefinition(),
		accountAvg: &store.AverageMetrics{Likes: 5, SampleSize: 3},
	}
	metrics := &monitoring.PipelineMetrics{
		Scores: prometheus.NewCounter(prometheus.CounterOpts{Name: "score_computations_total"}),
	}
	router := testRouterWithMetrics(st, metrics)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/scores/post_1?account_id=acc_1", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := testutil.ToFloat64(metrics.Scores); got != 1 {
		t.Fatalf("expected 1 score computation counted, got %v", got)
	}
}

func TestGetScoreNoSnapshots(t *testing.T) {
	st := &fakeStore{definition: testDefinition()}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/scores/post_missing?account_id=acc_1", nil)
	testRouter(st).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetScoreRequiresAccountID(t *testing.T) {
	st := &fakeStore{
		snapshot: &models.EngagementSnapshot{PostID: "post_1", CheckpointHours: 1},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/scores/post_1", nil)
	testRouter(st).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetScoreAbsoluteMethodSkipsComparison(t *testing.T) {
	def := testDefinition()
	def.ComparisonMethod = models.CompareAbsolute
	st := &fakeStore{
		snapshot: &models.EngagementSnapshot{
			PostID: "post_1", CheckpointHours: 6,
			Likes: 10, CapturedAt: time.Now(),
		},
		definition: def,
		accountAvg: &store.AverageMetrics{Likes: 50, SampleSize: 5},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/scores/post_1?account_id=acc_1", nil)
	testRouter(st).ServeHTTP(w, req)

	var resp ScoreResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Comparison != nil {
		t.Fatalf("absolute definitions must not compare, got %+v", resp.Comparison)
	}
}

func TestGetScoreNoHistorySkipsComparison(t *testing.T) {
	st := &fakeStore{
		snapshot: &models.EngagementSnapshot{
			PostID: "post_1", CheckpointHours: 1, Likes: 10, CapturedAt: time.Now(),
		},
		definition: testDefinition(),
		accountAvg: &store.AverageMetrics{SampleSize: 0},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/scores/post_1?account_id=acc_1", nil)
	testRouter(st).ServeHTTP(w, req)

	var resp ScoreResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Comparison != nil {
		t.Fatalf("empty history must not produce a comparison, got %+v", resp.Comparison)
	}
}

func TestRecentBatches(t *testing.T) {
	st := &fakeStore{batches: []store.BatchRecord{
		{ID: "batch_1", Published: 2},
		{ID: "batch_2", Published: 1},
	}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pipeline/batches/recent?limit=1", nil)
	testRouter(st).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Batches []store.BatchRecord `json:"batches"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Batches) != 1 || resp.Batches[0].ID != "batch_1" {
		t.Fatalf("unexpected batches %+v", resp.Batches)
	}
}

func TestRecentBatchesRejectsBadLimit(t *testing.T) {
	st := &fakeStore{}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pipeline/batches/recent?limit=0", nil)
	testRouter(st).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
