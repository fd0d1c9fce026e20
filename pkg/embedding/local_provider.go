package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9_]+`)

// LocalProvider is a deterministic hashing embedder. It needs no network and
// gives the same vector for the same text across processes.
type LocalProvider struct {
	Dim int
}

func NewLocalProvider(dim int) *LocalProvider {
	if dim <= 0 {
		dim = 1024
	}
	return &LocalProvider{Dim: dim}
}

func (p *LocalProvider) Embed(_ context.Context, text string) ([]float32, error) {
	return p.Vector(text), nil
}

func (p *LocalProvider) Vector(text string) []float32 {
	vec := make([]float32, p.Dim)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		digest := sha256.Sum256([]byte(token))
		idx := binary.BigEndian.Uint32(digest[0:4]) % uint32(p.Dim)
		sign := float32(1)
		if digest[4]%2 != 0 {
			sign = -1
		}
		weight := 1 + float32(digest[5])/255
		vec[idx] += sign * weight
	}
	return normalizeVector(vec)
}
