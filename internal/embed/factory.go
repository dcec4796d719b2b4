package embed

import (
	"fmt"
	"strings"
)

// NewEmbedder constructs the provider selected by name. "none" (or empty)
// returns a nil Embedder, which callers treat as semantic search disabled.
func NewEmbedder(provider string, cfg OpenAIConfig) (Embedder, error) {
	switch strings.ToLower(provider) {
	case "", "none":
		return nil, nil
	case "static":
		return NewStaticEmbedder(), nil
	case "openai":
		return NewOpenAIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}
