package fusion

import (
	"math"

	"sentinel-be/internal/entity"
)

// ComputeRunMetrics aggregates one run's case outcomes. An empty run scores zero everywhere.
func ComputeRunMetrics(runId string, items []entity.CaseMetricInput) entity.RunMetrics {
	out := entity.RunMetrics{RunId: runId}
	if len(items) == 0 {
		return out
	}

	var (
		leadTimes          []float64
		falsePositives     int
		predictedPositives int
		severityErr        float64
		brier              float64
	)
	for _, item := range items {
		if item.PredictedPositive {
			predictedPositives++
			if item.TrueOutbreak {
				if days, ok := leadDays(item.CaseDate, item.OfficialAlertDate); ok {
					leadTimes = append(leadTimes, days)
				}
			} else {
				falsePositives++
			}
		}

		severityErr += math.Abs(item.PredSeverity - item.TrueSeverity)

		target := 0.0
		if item.TrueOutbreak {
			target = 1
		}
		p := item.PredConfidencePct / 100
		brier += (p - target) * (p - target)
	}

	n := float64(len(items))
	out.SeverityMAE = severityErr / n
	out.CalibrationBrier = brier / n
	if predictedPositives > 0 {
		out.FalseAlarmRate = float64(falsePositives) / float64(predictedPositives)
	}
	if len(leadTimes) > 0 {
		var sum float64
		for _, d := range leadTimes {
			sum += d
		}
		out.LeadTimeDays = sum / float64(len(leadTimes))
	}
	return out
}

func leadDays(caseDate, alertDate string) (float64, bool) {
	from, ok := entity.ParseDate(caseDate)
	if !ok {
		return 0, false
	}
	to, ok := entity.ParseDate(alertDate)
	if !ok {
		return 0, false
	}
	return math.Round(to.Sub(from).Hours() / 24), true
}
