package scoring

import "math"

// PredictionFeatures describes a drafted post before it is published.
type PredictionFeatures struct {
	HasHook             bool
	HasCallToAction     bool
	HashtagCount        int
	HasEmotionalTrigger bool
	TrendAlignment      float64 // 0-100
	PatternSuccessRate  *float64 // 0-100, when a matched pattern exists
}

const (
	predictionBase        = 30.0
	hookBonus             = 15.0
	ctaBonus              = 10.0
	hashtagBandBonus      = 10.0
	emotionalBonus        = 10.0
	trendAlignmentScale   = 0.15
	patternRateScale      = 0.1
	hashtagOverusePenalty = 10.0

	optimalHashtagMin = 3
	optimalHashtagMax = 10
)

// PredictViralPotential is a heuristic, additive pre-publish estimate in
// [0,100]. It is advisory only and never gates publishing.
func PredictViralPotential(f PredictionFeatures) float64 {
	score := predictionBase
	if f.HasHook {
		score += hookBonus
	}
	if f.HasCallToAction {
		score += ctaBonus
	}
	if f.HashtagCount >= optimalHashtagMin && f.HashtagCount <= optimalHashtagMax {
		score += hashtagBandBonus
	}
	if f.HasEmotionalTrigger {
		score += emotionalBonus
	}
	score += f.TrendAlignment * trendAlignmentScale
	if f.PatternSuccessRate != nil {
		score += *f.PatternSuccessRate * patternRateScale
	}
	if f.HashtagCount > optimalHashtagMax {
		score -= hashtagOverusePenalty
	}
	return math.Max(0, math.Min(score, 100))
}
