package fusion

import (
	"math"
	"strings"

	"sentinel-be/internal/entity"
)

const (
	LearningRate = 0.08

	MinWeight    = entity.MinFusionWeight
	MaxWeight    = entity.MaxFusionWeight
	MinThreshold = entity.MinFusionThreshold
	MaxThreshold = entity.MaxFusionThreshold

	thresholdStep = 0.01
	// Positive predictions also require this confidence, independent of the guardrail.
	positiveConfidencePct = 60.0
	severeTruth           = 7.0
)

// Scores are the realized component scores of one case, each on 0..10.
type Scores struct {
	Genomics float64
	Epi      float64
	Geo      float64
}

func (s Scores) Map() map[string]float64 {
	return map[string]float64{"genomics": s.Genomics, "epi": s.Epi, "geo": s.Geo}
}

// Dominant names the highest component. Ties go to the earlier of genomics, epi, geo.
func (s Scores) Dominant() string {
	name, best := "genomics", s.Genomics
	if s.Epi > best {
		name, best = "epi", s.Epi
	}
	if s.Geo > best {
		name = "geo"
	}
	return name
}

func DefaultState() entity.FusionState {
	return entity.FusionState{WGenomics: 0.4, WEpi: 0.4, WGeo: 0.2, Threshold: 0.7}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// PredictedPositive applies the fusion threshold, not the review guardrail.
func PredictedPositive(state entity.FusionState, severity, confidencePct float64) bool {
	return severity >= state.Threshold*10 && confidencePct >= positiveConfidencePct
}

// Update applies one online step of the weight rule and the threshold nudge.
func Update(current entity.FusionState, scores Scores, predSeverity, predConfidencePct float64, truth bool, trueSeverity float64) entity.FusionState {
	weighted := current.WGenomics*scores.Genomics + current.WEpi*scores.Epi + current.WGeo*scores.Geo
	errTerm := (trueSeverity - weighted) / 10

	step := func(w, component float64) float64 {
		direction := (component - weighted) / 10
		return clamp(w+LearningRate*errTerm*direction, MinWeight, MaxWeight)
	}
	g, e, o := normalize(
		step(current.WGenomics, scores.Genomics),
		step(current.WEpi, scores.Epi),
		step(current.WGeo, scores.Geo),
	)

	threshold := current.Threshold
	positive := PredictedPositive(current, predSeverity, predConfidencePct)
	if positive && !truth {
		threshold += thresholdStep
	}
	if !positive && truth && trueSeverity >= severeTruth {
		threshold -= thresholdStep
	}

	return entity.FusionState{
		WGenomics: g,
		WEpi:      e,
		WGeo:      o,
		Threshold: clamp(threshold, MinThreshold, MaxThreshold),
	}
}

// normalize rescales to a unit sum. A rescaled weight that leaves the clamp
// bounds is pinned to the bound and the remainder is spread over the others.
func normalize(g, e, o float64) (float64, float64, float64) {
	w := [3]float64{g, e, o}
	total := w[0] + w[1] + w[2]
	if total == 0 {
		total = 1
	}
	for i := range w {
		w[i] /= total
	}

	var pinned [3]bool
	for pass := 0; pass < len(w); pass++ {
		moved := false
		for i := range w {
			if pinned[i] {
				continue
			}
			if c := clamp(w[i], MinWeight, MaxWeight); c != w[i] {
				w[i], pinned[i], moved = c, true, true
			}
		}
		if !moved {
			break
		}
		var fixed, free float64
		for i := range w {
			if pinned[i] {
				fixed += w[i]
			} else {
				free += w[i]
			}
		}
		if free == 0 {
			break
		}
		for i := range w {
			if !pinned[i] {
				w[i] *= (1 - fixed) / free
			}
		}
	}
	return w[0], w[1], w[2]
}

var promptUpdates = map[string]string{
	entity.AgentIngest:   "Prioritize source reliability calibration and keep normalization strict.",
	entity.AgentGenomics: "Highlight lineage deviation and recombination when novelty is rising.",
	entity.AgentEpiOsint: "Penalize noisy stories lacking source diversity.",
	entity.AgentMeta:     "State weighted contribution and confidence rationale in concise JSON.",
}

// PromptUpdates returns a fresh copy of the fixed per-stage prompt hints.
func PromptUpdates() map[string]string {
	out := make(map[string]string, len(promptUpdates))
	for k, v := range promptUpdates {
		out[k] = v
	}
	return out
}

// BuildStrategyUpdate derives the strategy note for a finished case.
func BuildStrategyUpdate(predPositive, truth bool, scores Scores, metaNotes string) (string, map[string]string) {
	var note string
	switch {
	case predPositive && !truth:
		note = "Reduce false alarms by down-weighting low reliability OSINT anomalies."
	case !predPositive && truth:
		note = "Improve sensitivity for early outbreak indicators, especially recombination plus travel pressure."
	default:
		note = "Preserve current strategy and continue calibration on confidence signals."
	}

	merged := strings.TrimSpace(note + " Dominant signal: " + scores.Dominant() + ". " + metaNotes)
	return merged, PromptUpdates()
}

// MergePrompts layers updates over base. Neither input is modified.
func MergePrompts(base, updates map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(updates))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range updates {
		out[k] = v
	}
	return out
}

// StateFromMemory rebuilds the fusion state persisted with a strategy row.
// Missing keys take their defaults; an invalid row yields the default state.
func StateFromMemory(mem *entity.StrategyMemory) entity.FusionState {
	def := DefaultState()
	if mem == nil {
		return def
	}
	pick := func(key string, fallback float64) float64 {
		if v, ok := mem.Weights[key]; ok {
			return v
		}
		return fallback
	}
	threshold := mem.Threshold
	if threshold == 0 {
		threshold = def.Threshold
	}
	state := entity.FusionState{
		WGenomics: pick("w_genomics", def.WGenomics),
		WEpi:      pick("w_epi", def.WEpi),
		WGeo:      pick("w_geo", def.WGeo),
		Threshold: threshold,
	}
	if err := state.Validate(); err != nil {
		return def
	}
	return state
}
