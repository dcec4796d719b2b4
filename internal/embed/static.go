package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
)

// StaticEmbedder generates embeddings using a hash-based approach. It needs
// no network and no model download, producing deterministic vectors with
// reduced semantic quality. Used for tests and offline operation.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

// functionWords are high-frequency Chinese function words that carry no
// retrieval signal for regulatory text.
var functionWords = map[string]bool{
	"的": true, "了": true, "和": true, "与": true, "或": true,
	"及": true, "等": true, "在": true, "对": true, "由": true,
	"并": true, "是": true, "为": true, "以": true, "按": true,
}

// Weights for vector generation
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramRunes  = 2
)

// staticTokenRegex matches ASCII alphanumeric runs and single CJK ideographs,
// the same token shape the lexical index uses.
var staticTokenRegex = regexp.MustCompile(`[A-Za-z0-9]+|[\x{4e00}-\x{9fff}]`)

// NewStaticEmbedder creates a new static embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed generates embedding for a single text.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, StaticDimensions), nil
	}
	return normalizeVector(e.generateVector(trimmed)), nil
}

// generateVector creates a hash-based vector from text: individual tokens at
// full weight plus rune bigrams at reduced weight, so adjacent-character
// compounds (罚款, 洗钱) still pull related texts together.
func (e *StaticEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, StaticDimensions)

	tokens := staticTokenRegex.FindAllString(strings.ToLower(text), -1)
	filtered := tokens[:0:len(tokens)]
	for _, tok := range tokens {
		if !functionWords[tok] {
			filtered = append(filtered, tok)
		}
	}

	for _, token := range filtered {
		vector[hashToIndex(token, StaticDimensions)] += tokenWeight
	}
	for _, ngram := range runeNgrams(filtered, ngramRunes) {
		vector[hashToIndex(ngram, StaticDimensions)] += ngramWeight
	}
	return vector
}

// runeNgrams slides an n-token window over the token stream.
func runeNgrams(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	ngrams := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		ngrams = append(ngrams, strings.Join(tokens[i:i+n], ""))
	}
	return ngrams
}

// hashToIndex uses FNV-64 to map a string to an index.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = emb
	}
	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int {
	return StaticDimensions
}

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string {
	return "static"
}

// Available checks if the embedder is ready (always true until closed).
func (e *StaticEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close releases resources.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ Embedder = (*StaticEmbedder)(nil)
