package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestLocalProviderStableAndUnitNorm(t *testing.T) {
	p := NewLocalProvider(64)
	ctx := context.Background()

	a, err := p.Embed(ctx, "case-001 | Kenya | Nairobi | Recombination detected")
	require.NoError(t, err)
	b, err := NewLocalProvider(64).Embed(ctx, "CASE-001 | kenya | nairobi | recombination DETECTED")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("embedding not stable under case folding (-want +got):\n%s", diff)
	}
}

func TestLocalProviderEmptyText(t *testing.T) {
	vec, err := NewLocalProvider(8).Embed(context.Background(), "  ---  ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vec)
}

func TestFitDim(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		dim  int
		want []float32
	}{
		{name: "pad", in: []float32{3, 4}, dim: 3, want: []float32{0.6, 0.8, 0}},
		{name: "truncate", in: []float32{3, 4, 12}, dim: 2, want: []float32{0.6, 0.8}},
		{name: "zero", in: []float32{0, 0}, dim: 2, want: []float32{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitDim(tt.in, tt.dim)
			require.Len(t, got, tt.dim)
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-6)
			}
		})
	}
}

type stubProvider struct {
	vec   []float32
	err   error
	calls int
}

func (s *stubProvider) Embed(context.Context, string) ([]float32, error) {
	s.calls++
	return s.vec, s.err
}

func TestFallbackProvider(t *testing.T) {
	ctx := context.Background()
	local := NewLocalProvider(16).Vector("measles outbreak")

	t.Run("primary error uses local", func(t *testing.T) {
		p := NewFallbackProvider(&stubProvider{err: errors.New("down")}, 16)
		got, err := p.Embed(ctx, "measles outbreak")
		require.NoError(t, err)
		assert.Equal(t, local, got)
	})

	t.Run("empty vector uses local", func(t *testing.T) {
		p := NewFallbackProvider(&stubProvider{}, 16)
		got, err := p.Embed(ctx, "measles outbreak")
		require.NoError(t, err)
		assert.Equal(t, local, got)
	})

	t.Run("primary vector is fitted", func(t *testing.T) {
		p := NewFallbackProvider(&stubProvider{vec: []float32{2, 0}}, 4)
		got, err := p.Embed(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0, 0, 0}, got)
	})
}

func TestCachedProviderMemoizes(t *testing.T) {
	stub := &stubProvider{vec: []float32{1, 0}}
	p := NewCachedProvider(stub, 0)

	first, err := p.Embed(context.Background(), "same")
	require.NoError(t, err)
	first[0] = 42

	second, err := p.Embed(context.Background(), "same")
	require.NoError(t, err)

	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, []float32{1, 0}, second)
}
