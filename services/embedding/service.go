package embedding

import (
	"crypto/md5"
	"encoding/hex"
)

// DefaultDimension is the embedding dimension used when none is configured.
const DefaultDimension = 384

// Embedder converts free text into a fixed-dimension numeric vector.
// Implementations must be deterministic per input; real embedding models
// plug in behind this interface without touching the retrieval layer.
type Embedder interface {
	// Embed returns a vector of exactly Dimension() values.
	Embed(text string) ([]float64, error)

	// Dimension returns the fixed output vector length.
	Dimension() int
}

// HashEmbedder is a deterministic placeholder embedder. It derives a base
// sequence from the md5 digest of the input and cycles it out to the
// configured dimension. No network or disk access; it never fails, even
// for empty input.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a HashEmbedder with the given dimension.
// Non-positive dimensions fall back to DefaultDimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &HashEmbedder{dimension: dimension}
}

// Dimension returns the fixed output vector length.
func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

// Embed maps text to a vector of e.dimension values in [-1, 1].
// Each hex pair of the md5 digest becomes one component; the resulting
// base sequence is repeated cyclically to fill the dimension and
// truncated when it would overrun.
func (e *HashEmbedder) Embed(text string) ([]float64, error) {
	sum := md5.Sum([]byte(text))
	digest := hex.EncodeToString(sum[:])

	base := make([]float64, 0, len(digest)/2)
	for i := 0; i+2 <= len(digest); i += 2 {
		var v int
		for _, c := range digest[i : i+2] {
			v = v*16 + hexValue(byte(c))
		}
		base = append(base, float64(v)/255.0*2-1)
	}

	vector := make([]float64, e.dimension)
	for i := range vector {
		vector[i] = base[i%len(base)]
	}
	return vector, nil
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return 0
	}
}
