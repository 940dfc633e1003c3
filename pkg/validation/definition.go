package validation

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"signalfire/pkg/models"
)

// WeightSumTolerance is how far the six weights may drift from 1.0 before
// a definition is rejected.
const WeightSumTolerance = 0.01

var validate = validator.New()

type definitionRules struct {
	LikesWeight    float64 `validate:"gte=0,lte=1"`
	SharesWeight   float64 `validate:"gte=0,lte=1"`
	CommentsWeight float64 `validate:"gte=0,lte=1"`
	ViewsWeight    float64 `validate:"gte=0,lte=1"`
	SavesWeight    float64 `validate:"gte=0,lte=1"`
	CTRWeight      float64 `validate:"gte=0,lte=1"`

	LikesThreshold    float64 `validate:"gt=0"`
	SharesThreshold   float64 `validate:"gt=0"`
	CommentsThreshold float64 `validate:"gt=0"`
	ViewsThreshold    float64 `validate:"gt=0"`
	SavesThreshold    float64 `validate:"gt=0"`
	CTRThreshold      float64 `validate:"gt=0"`

	MinimumViralScore float64 `validate:"gte=0,lte=100"`
	TimeframeHours    int     `validate:"gt=0"`
	ComparisonMethod  string  `validate:"oneof=account_average niche_average absolute"`
}

// ValidateViralDefinition enforces the write-time invariants on a viral
// definition: each weight in [0,1], weights summing to 1.0 within
// tolerance, positive thresholds, a 0-100 minimum score and a known
// comparison method. Violations are rejected, never renormalized.
func ValidateViralDefinition(def *models.ViralDefinition) error {
	rules := definitionRules{
		LikesWeight:    def.LikesWeight,
		SharesWeight:   def.SharesWeight,
		CommentsWeight: def.CommentsWeight,
		ViewsWeight:    def.ViewsWeight,
		SavesWeight:    def.SavesWeight,
		CTRWeight:      def.CTRWeight,

		LikesThreshold:    def.LikesThreshold,
		SharesThreshold:   def.SharesThreshold,
		CommentsThreshold: def.CommentsThreshold,
		ViewsThreshold:    def.ViewsThreshold,
		SavesThreshold:    def.SavesThreshold,
		CTRThreshold:      def.CTRThreshold,

		MinimumViralScore: def.MinimumViralScore,
		TimeframeHours:    def.TimeframeHours,
		ComparisonMethod:  string(def.ComparisonMethod),
	}
	if err := validate.Struct(rules); err != nil {
		return fmt.Errorf("viral definition invalid: %w", err)
	}

	if sum := def.WeightSum(); math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("viral definition weights sum to %.4f, must sum to 1.0 (±%.2f)", sum, WeightSumTolerance)
	}
	return nil
}
