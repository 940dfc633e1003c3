// Package scoring converts raw engagement counters into normalized,
// threshold-relative viral scores.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"signalfire/pkg/models"
)

const (
	// ratioCap bounds how much a single overperforming metric can
	// contribute: at most 2x its threshold counts toward the blend.
	ratioCap = 2.0
	// scoreCap is the hard ceiling on the aggregate score.
	scoreCap = 100.0
	// weakContributionFloor marks contributions flagged as improvement
	// targets in the analysis of a non-viral post.
	weakContributionFloor = 10.0
)

type contribution struct {
	metric string
	value  float64
}

// CalculateViralScore scores a snapshot against the account's viral
// definition. Per metric: ratio = min(value/threshold, 2.0), contribution
// = ratio * weight * 100. CTR contributes only when clicks are recorded
// and impressions are positive. The aggregate is rounded and capped at
// 100; IsViral compares against the definition's minimum score.
func CalculateViralScore(snapshot *models.EngagementSnapshot, def *models.ViralDefinition) models.ViralScoreResult {
	contribs := []contribution{
		{"likes", metricContribution(snapshot.Likes, def.LikesThreshold, def.LikesWeight)},
		{"shares", metricContribution(snapshot.Shares, def.SharesThreshold, def.SharesWeight)},
		{"comments", metricContribution(snapshot.Comments, def.CommentsThreshold, def.CommentsWeight)},
		{"views", metricContribution(snapshot.Views, def.ViewsThreshold, def.ViewsWeight)},
		{"saves", metricContribution(snapshot.Saves, def.SavesThreshold, def.SavesWeight)},
		{"ctr", ctrContribution(snapshot, def)},
	}

	var total float64
	breakdown := make(map[string]float64, len(contribs))
	for _, c := range contribs {
		breakdown[c.metric] = c.value
		total += c.value
	}

	score := math.Min(math.Round(total), scoreCap)
	isViral := score >= def.MinimumViralScore

	return models.ViralScoreResult{
		Score:         score,
		IsViral:       isViral,
		Contributions: breakdown,
		Analysis:      buildAnalysis(contribs, score, isViral),
	}
}

func metricContribution(value, threshold, weight float64) float64 {
	if threshold <= 0 {
		return 0
	}
	ratio := math.Min(value/threshold, ratioCap)
	return ratio * weight * 100
}

// ctrContribution computes the CTR contribution only when both clicks
// and positive impressions are present; otherwise it is zero.
func ctrContribution(snapshot *models.EngagementSnapshot, def *models.ViralDefinition) float64 {
	if snapshot.Clicks == nil || snapshot.Impressions == nil || *snapshot.Impressions <= 0 {
		return 0
	}
	ctr := *snapshot.Clicks / *snapshot.Impressions * 100
	return metricContribution(ctr, def.CTRThreshold, def.CTRWeight)
}

// buildAnalysis names the top two drivers for a viral post, or every
// contributor under the floor as an improvement target otherwise.
func buildAnalysis(contribs []contribution, score float64, isViral bool) string {
	sorted := make([]contribution, len(contribs))
	copy(sorted, contribs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].value > sorted[j].value })

	if isViral {
		drivers := []string{sorted[0].metric}
		if len(sorted) > 1 {
			drivers = append(drivers, sorted[1].metric)
		}
		return fmt.Sprintf("Viral at %.0f: driven by %s", score, strings.Join(drivers, " and "))
	}

	var weak []string
	for _, c := range sorted {
		if c.value < weakContributionFloor {
			weak = append(weak, c.metric)
		}
	}
	if len(weak) == 0 {
		return fmt.Sprintf("Not viral at %.0f: all metrics contribute but none dominate", score)
	}
	return fmt.Sprintf("Not viral at %.0f: improve %s", score, strings.Join(weak, ", "))
}
