package scoring

import "testing"

func TestPredictViralPotentialBase(t *testing.T) {
	if got := PredictViralPotential(PredictionFeatures{}); got != 30 {
		t.Fatalf("bare draft should score the base 30, got %v", got)
	}
}

func TestPredictViralPotentialBonuses(t *testing.T) {
	rate := 80.0
	f := PredictionFeatures{
		HasHook:             true,
		HasCallToAction:     true,
		HashtagCount:        5,
		HasEmotionalTrigger: true,
		TrendAlignment:      100,
		PatternSuccessRate:  &rate,
	}
	// 30 + 15 + 10 + 10 + 10 + 15 + 8 = 98
	if got := PredictViralPotential(f); got != 98 {
		t.Fatalf("expected 98, got %v", got)
	}
}

func TestPredictViralPotentialClampsAt100(t *testing.T) {
	rate := 100.0
	f := PredictionFeatures{
		HasHook: true, HasCallToAction: true, HashtagCount: 5,
		HasEmotionalTrigger: true, TrendAlignment: 100, PatternSuccessRate: &rate,
	}
	if got := PredictViralPotential(f); got != 100 {
		t.Fatalf("expected clamp at 100, got %v", got)
	}
}

func TestPredictViralPotentialHashtagOveruse(t *testing.T) {
	with := PredictViralPotential(PredictionFeatures{HashtagCount: 15})
	without := PredictViralPotential(PredictionFeatures{HashtagCount: 0})
	if with >= without {
		t.Fatalf("overusing hashtags should penalize: %v vs %v", with, without)
	}
}
