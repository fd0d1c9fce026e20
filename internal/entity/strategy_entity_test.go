package entity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFusionStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		state   FusionState
		wantErr bool
	}{
		{name: "default", state: FusionState{WGenomics: 0.4, WEpi: 0.4, WGeo: 0.2, Threshold: 0.7}},
		{name: "at bounds", state: FusionState{WGenomics: 0.9, WEpi: 0.05, WGeo: 0.05, Threshold: 0.85}},
		{name: "lowest threshold", state: FusionState{WGenomics: 0.4, WEpi: 0.4, WGeo: 0.2, Threshold: 0.4}},
		{name: "weight above max", state: FusionState{WGenomics: 1, WEpi: 0, WGeo: 0, Threshold: 0.7}, wantErr: true},
		{name: "weight below min", state: FusionState{WGenomics: 0.5, WEpi: 0.48, WGeo: 0.02, Threshold: 0.7}, wantErr: true},
		{name: "sum off", state: FusionState{WGenomics: 0.5, WEpi: 0.5, WGeo: 0.5, Threshold: 0.7}, wantErr: true},
		{name: "threshold above max", state: FusionState{WGenomics: 0.4, WEpi: 0.4, WGeo: 0.2, Threshold: 0.99}, wantErr: true},
		{name: "threshold below min", state: FusionState{WGenomics: 0.4, WEpi: 0.4, WGeo: 0.2, Threshold: 0.3}, wantErr: true},
		{name: "nan weight", state: FusionState{WGenomics: math.NaN(), WEpi: 0.4, WGeo: 0.2, Threshold: 0.7}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFusionState)
				return
			}
			assert.NoError(t, err)
		})
	}
}
