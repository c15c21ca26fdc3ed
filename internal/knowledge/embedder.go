package knowledge

import (
	"context"
	"hash/fnv"
	"math"

	"cogcore/internal/llm"
)

// DeterministicEmbedder is a lightweight, hash-based embedder suitable for
// tests and for offline/dev deployments with no configured LLM embedding
// endpoint. It hashes byte 3-grams into a fixed-size, L2-normalized vector.
type DeterministicEmbedder struct {
	dim  int
	seed uint64
}

// NewDeterministicEmbedder builds a DeterministicEmbedder of the given
// dimension (defaults to 64 when dim <= 0).
func NewDeterministicEmbedder(dim int, seed uint64) *DeterministicEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &DeterministicEmbedder{dim: dim, seed: seed}
}

var _ llm.Embedder = (*DeterministicEmbedder)(nil)

// Embed implements llm.Embedder.
func (d *DeterministicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, d.dim)
	b := []byte(text)
	if len(b) == 0 {
		return v, nil
	}
	if len(b) < 3 {
		hashGramInto(d.seed, b, v)
	} else {
		for i := 0; i <= len(b)-3; i++ {
			hashGramInto(d.seed, b[i:i+3], v)
		}
	}
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq > 0 {
		inv := float32(1.0 / math.Sqrt(sumSq))
		for i := range v {
			v[i] *= inv
		}
	}
	return v, nil
}

func hashGramInto(seed uint64, gram []byte, v []float32) {
	h := fnv.New64a()
	if seed != 0 {
		var tmp [8]byte
		for i := 0; i < 8; i++ {
			tmp[i] = byte(seed >> (8 * i))
		}
		_, _ = h.Write(tmp[:])
	}
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}
