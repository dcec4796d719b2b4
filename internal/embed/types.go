// Package embed provides vector embedding providers for the semantic index.
// The remote embedding service is treated as untrusted: short or malformed
// responses degrade gracefully instead of failing an index build.
package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants
const (
	// DefaultBatchSize is the number of texts sent per embedding request.
	DefaultBatchSize = 10

	// DefaultTimeout is the per-request timeout for the remote service.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of attempts per request.
	DefaultMaxRetries = 3

	// StaticDimensions is the embedding dimension for the static embedder.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving
	// input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension, or 0 when unknown
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Available checks if the embedder is ready
	Available(ctx context.Context) bool

	// Close releases resources
	Close() error
}

// Cosine returns the cosine similarity of two vectors. Vectors of different
// lengths compare over the shared prefix; zero-norm vectors score 0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		na += float64(v) * float64(v)
	}
	for _, v := range b {
		nb += float64(v) * float64(v)
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// MeanPool averages chunk vectors element-wise. It fails when the input is
// empty or the vectors disagree on dimensionality, since averaging
// incompatible vectors would produce a silently corrupt embedding.
func MeanPool(vectors [][]float32) ([]float32, bool) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, false
	}
	dims := len(vectors[0])
	pooled := make([]float64, dims)
	for _, vec := range vectors {
		if len(vec) != dims {
			return nil, false
		}
		for i, v := range vec {
			pooled[i] += float64(v)
		}
	}
	out := make([]float32, dims)
	for i := range pooled {
		out[i] = float32(pooled[i] / float64(len(vectors)))
	}
	return out, true
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
