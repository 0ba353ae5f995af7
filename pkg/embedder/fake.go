package embedder

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"math"
)

// Deterministic produces stable pseudo-random unit vectors from content
// hashes. It exists for tests and offline smoke runs; identical texts always
// map to identical vectors.
type Deterministic struct {
	Dim int
}

func NewDeterministic(dim int) *Deterministic {
	if dim <= 0 {
		dim = 64
	}
	return &Deterministic{Dim: dim}
}

func (d *Deterministic) Embed(_ context.Context, text string) ([]float32, error) {
	sum := md5.Sum([]byte(text))
	seed := binary.LittleEndian.Uint64(sum[:8])

	vec := make([]float32, d.Dim)
	var norm float64
	state := seed
	for i := range vec {
		// xorshift64
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		v := float64(int64(state)) / float64(math.MaxInt64)
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

func (d *Deterministic) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := d.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (d *Deterministic) Dimension() int {
	return d.Dim
}

func (d *Deterministic) Close() error {
	return nil
}
