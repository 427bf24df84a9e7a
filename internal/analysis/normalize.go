package analysis

import (
	"fmt"
	"math"

	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

const (
	maxSevenYear   = 95
	minDemandScore = -50
	maxDemandScore = 50
)

// DeriveTimeline computes the projection from an overall mid estimate:
// 60% of it at three years, all of it at five, 130% capped at 95 at seven.
func DeriveTimeline(mid float64) models.Timeline {
	return models.Timeline{
		ThreeYear: math.Round(mid * 0.6),
		FiveYear:  math.Round(mid),
		SevenYear: math.Min(math.Round(mid*1.3), maxSevenYear),
	}
}

// Normalize clamps every score into its documented range and fills a missing
// timeline from the overall score. It returns one note per adjustment made.
func Normalize(r *models.AnalysisResult) []string {
	if r == nil {
		return nil
	}
	var notes []string
	clamp := func(field string, v *float64, lo, hi float64) {
		if c := math.Max(lo, math.Min(hi, *v)); c != *v {
			notes = append(notes, fmt.Sprintf("%s %.4g clamped to %.4g", field, *v, c))
			*v = c
		}
	}
	clampRisk := func(field string, risk *models.RiskEstimate) {
		clamp(field+".low", &risk.Low, 0, 100)
		clamp(field+".mid", &risk.Mid, 0, 100)
		clamp(field+".high", &risk.High, 0, 100)
	}

	for i := range r.Tasks {
		field := fmt.Sprintf("tasks[%d]", i)
		clamp(field+".timePercent", &r.Tasks[i].TimePercent, 0, 100)
		clampRisk(field+".automationRisk", &r.Tasks[i].AutomationRisk)
	}
	if r.OverallScore != nil {
		clampRisk("overallScore", r.OverallScore)
	}

	if r.Timeline == nil && r.OverallScore != nil {
		tl := DeriveTimeline(r.OverallScore.Mid)
		r.Timeline = &tl
		notes = append(notes, "timeline derived from overallScore.mid")
	}
	if r.Timeline != nil {
		clamp("timeline.threeYear", &r.Timeline.ThreeYear, 0, 100)
		clamp("timeline.fiveYear", &r.Timeline.FiveYear, 0, 100)
		clamp("timeline.sevenYear", &r.Timeline.SevenYear, 0, 100)
	}

	if m := r.Metrics; m != nil {
		clamp("metrics.routineAutomation", &m.RoutineAutomation.Score, 0, 100)
		clamp("metrics.complexAutomation", &m.ComplexAutomation.Score, 0, 100)
		clamp("metrics.positionDemand", &m.PositionDemand.Score, minDemandScore, maxDemandScore)
		clamp("metrics.wagePressure", &m.WagePressure.Score, 0, 100)
		clamp("metrics.reskillUrgency", &m.ReskillUrgency.Score, 0, 100)
	}

	return notes
}
