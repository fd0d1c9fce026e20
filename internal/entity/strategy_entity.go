package entity

import (
	"errors"
	"fmt"
	"math"
	"time"
)

type FusionState struct {
	WGenomics float64 `json:"w_genomics"`
	WEpi      float64 `json:"w_epi"`
	WGeo      float64 `json:"w_geo"`
	Threshold float64 `json:"threshold"`
}

// Bounds every fusion state stays within, learned or seeded.
const (
	MinFusionWeight    = 0.05
	MaxFusionWeight    = 0.9
	MinFusionThreshold = 0.4
	MaxFusionThreshold = 0.85
)

var ErrInvalidFusionState = errors.New("invalid fusion state")

// Validate checks each weight against [0.05, 0.9], a unit weight sum and the
// threshold against [0.4, 0.85].
func (f FusionState) Validate() error {
	for _, w := range []float64{f.WGenomics, f.WEpi, f.WGeo} {
		if !within(w, MinFusionWeight, MaxFusionWeight) {
			return fmt.Errorf("%w: weight %v outside [%v, %v]", ErrInvalidFusionState, w, MinFusionWeight, MaxFusionWeight)
		}
	}
	if sum := f.WGenomics + f.WEpi + f.WGeo; math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("%w: weights sum to %v", ErrInvalidFusionState, sum)
	}
	if !within(f.Threshold, MinFusionThreshold, MaxFusionThreshold) {
		return fmt.Errorf("%w: threshold %v outside [%v, %v]", ErrInvalidFusionState, f.Threshold, MinFusionThreshold, MaxFusionThreshold)
	}
	return nil
}

// within tolerates float drift at the bounds left by clamp and renormalize.
func within(v, lo, hi float64) bool {
	const eps = 1e-9
	return !math.IsNaN(v) && v >= lo-eps && v <= hi+eps
}

func (f FusionState) Weights() map[string]float64 {
	return map[string]float64{
		"w_genomics": f.WGenomics,
		"w_epi":      f.WEpi,
		"w_geo":      f.WGeo,
	}
}

type StrategyMemory struct {
	RunId          string
	CaseId         string
	StrategyNotes  string
	UpdatedPrompts map[string]string
	Weights        map[string]float64
	Threshold      float64
	Embedding      []float32
	CreatedAt      time.Time
}
