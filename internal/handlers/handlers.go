// Package handlers exposes the pipeline's operational HTTP surface.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"signalfire/internal/pipeline"
	"signalfire/internal/scoring"
	"signalfire/internal/store"
	"signalfire/pkg/logging"
	"signalfire/pkg/middleware"
	"signalfire/pkg/models"
	"signalfire/pkg/monitoring"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ScoreResponse is the on-demand score for one post.
type ScoreResponse struct {
	PostID     string                    `json:"post_id"`
	Checkpoint int                       `json:"checkpoint_hours"`
	Result     models.ViralScoreResult   `json:"result"`
	Comparison *models.AverageComparison `json:"comparison,omitempty"`
}

// Handlers wires the store and orchestrator into HTTP endpoints.
type Handlers struct {
	store   store.Store
	orch    *pipeline.Orchestrator
	logger  logging.Logger
	metrics *monitoring.PipelineMetrics
}

func New(st store.Store, orch *pipeline.Orchestrator, logger logging.Logger, metrics *monitoring.PipelineMetrics) *Handlers {
	return &Handlers{store: st, orch: orch, logger: logger, metrics: metrics}
}

// Register attaches the pipeline routes to the router.
func (h *Handlers) Register(router *gin.Engine) {
	router.POST("/pipeline/run", h.RunPipeline)
	router.GET("/pipeline/batches/recent", h.RecentBatches)
	router.GET("/scores/:post_id", h.GetScore)
}

// RunPipeline triggers a batch immediately.
func (h *Handlers) RunPipeline(c middleware.Context) {
	report, err := h.orch.RunBatch(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Manual batch run failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to run pipeline batch"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// RecentBatches lists the most recent batch records.
func (h *Handlers) RecentBatches(c middleware.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be an integer between 1 and 100"})
			return
		}
		limit = n
	}

	batches, err := h.store.RecentBatches(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load recent batches")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch batches"})
		return
	}
	if batches == nil {
		batches = []store.BatchRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

// GetScore computes the viral score for a post from its latest snapshot
// and the owning account's definition. Scores are recomputed on demand
// and never served stale.
func (h *Handlers) GetScore(c middleware.Context) {
	postID := c.Param("post_id")

	ctx := c.Request.Context()
	snapshot, err := h.store.LatestSnapshot(ctx, postID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load snapshot")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch engagement data"})
		return
	}
	if snapshot == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No engagement snapshots for post"})
		return
	}

	accountID := c.Query("account_id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "account_id query parameter required"})
		return
	}

	def, err := h.store.ViralDefinitionByAccount(ctx, accountID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load viral definition")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch viral definition"})
		return
	}
	if def == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No viral definition for account"})
		return
	}

	resp := ScoreResponse{
		PostID:     postID,
		Checkpoint: snapshot.CheckpointHours,
		Result:     scoring.CalculateViralScore(snapshot, def),
	}
	h.metrics.ObserveScore()

	if cmp := h.compareToBaseline(c, snapshot, def, accountID); cmp != nil {
		resp.Comparison = cmp
	}

	c.JSON(http.StatusOK, resp)
}

// compareToBaseline applies the definition's comparison method against
// the historical average. Absolute definitions skip the comparison.
func (h *Handlers) compareToBaseline(c middleware.Context, snapshot *models.EngagementSnapshot, def *models.ViralDefinition, accountID string) *models.AverageComparison {
	ctx := c.Request.Context()

	var avg *store.AverageMetrics
	var err error
	switch def.ComparisonMethod {
	case models.CompareAccountAverage:
		avg, err = h.store.AccountAverageMetrics(ctx, accountID)
	case models.CompareNicheAverage:
		nicheID := c.Query("niche_id")
		if nicheID == "" {
			return nil
		}
		avg, err = h.store.NicheAverageMetrics(ctx, nicheID)
	default:
		return nil
	}
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load average metrics, skipping comparison")
		return nil
	}
	if avg == nil || avg.SampleSize == 0 {
		return nil
	}

	current := snapshot.Likes + snapshot.Shares + snapshot.Comments + snapshot.Saves
	cmp := scoring.CompareToAverage(current, avg.EngagementTotal())
	return &cmp
}
