package validation

import (
	"testing"

	"signalfire/pkg/models"
)

func validDefinition() *models.ViralDefinition {
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
		TimeframeHours:    24,
		ComparisonMethod:  models.CompareAccountAverage,
	}
}

func TestValidateViralDefinitionAccepts(t *testing.T) {
	if err := ValidateViralDefinition(validDefinition()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateViralDefinitionToleratesSmallDrift(t *testing.T) {
	def := validDefinition()
	def.LikesWeight = 0.305 // sums to 1.005, within tolerance
	if err := ValidateViralDefinition(def); err != nil {
		t.Fatalf("drift within tolerance should pass: %v", err)
	}
}

func TestValidateViralDefinitionRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.ViralDefinition)
	}{
		{"weights under 1.0", func(d *models.ViralDefinition) { d.LikesWeight = 0.1 }},
		{"weights over 1.0", func(d *models.ViralDefinition) { d.SharesWeight = 0.5 }},
		{"negative weight", func(d *models.ViralDefinition) { d.CTRWeight = -0.05; d.LikesWeight = 0.4 }},
		{"weight above one", func(d *models.ViralDefinition) { d.LikesWeight = 1.2 }},
		{"zero threshold", func(d *models.ViralDefinition) { d.ViewsThreshold = 0 }},
		{"negative threshold", func(d *models.ViralDefinition) { d.SavesThreshold = -5 }},
		{"minimum score above 100", func(d *models.ViralDefinition) { d.MinimumViralScore = 101 }},
		{"unknown comparison method", func(d *models.ViralDefinition) { d.ComparisonMethod = "median" }},
		{"zero timeframe", func(d *models.ViralDefinition) { d.TimeframeHours = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := validDefinition()
			tc.mutate(def)
			if err := ValidateViralDefinition(def); err == nil {
				t.Fatal("expected definition to be rejected")
			}
		})
	}
}
