package scoring

import (
	"fmt"

	"signalfire/pkg/models"
)

// CompareToAverage relates a current metric to its historical average.
// A zero average short-circuits to a "no historical data" outcome
// instead of dividing by zero.
func CompareToAverage(current, average float64) models.AverageComparison {
	if average == 0 {
		return models.AverageComparison{
			PercentageDiff: 0,
			Analysis:       "no historical data to compare against",
		}
	}

	diff := (current - average) / average * 100

	var analysis string
	switch {
	case diff > 50:
		analysis = fmt.Sprintf("exceptional: %.1f%% above the average", diff)
	case diff > 20:
		analysis = fmt.Sprintf("strong: %.1f%% above the average", diff)
	case diff > -10:
		analysis = "in line with the average"
	case diff > -30:
		analysis = fmt.Sprintf("below average by %.1f%%", -diff)
	default:
		analysis = fmt.Sprintf("significantly underperforming, %.1f%% below the average", -diff)
	}

	return models.AverageComparison{PercentageDiff: diff, Analysis: analysis}
}
