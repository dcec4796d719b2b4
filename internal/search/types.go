// Package search fuses lexical and semantic rankings over the article corpus
// into one hybrid result list, with optional metadata pre-filtering.
package search

import (
	"github.com/angelala00/pbc-regulations-sub001/internal/metaquery"
)

// Match signal names reported in Hit.MatchType.
const (
	MatchBM25   = "bm25"
	MatchVector = "vector"
)

// DefaultTopK is the result count when the caller does not specify one.
const DefaultTopK = 10

// Hit is one ranked search result at article granularity.
type Hit struct {
	LawID     string   `json:"law_id"`
	LawTitle  string   `json:"law_title"`
	ArticleID string   `json:"article_id"`
	ArticleNo string   `json:"article_no"`
	Snippet   string   `json:"snippet"`
	Score     float64  `json:"score"`
	MatchType []string `json:"match_type"`
}

// Options controls one search invocation.
type Options struct {
	// TopK caps the result count; zero means DefaultTopK.
	TopK int

	// DisableBM25 and DisableVector switch off one ranking signal. With
	// both disabled the search returns nothing.
	DisableBM25   bool
	DisableVector bool

	// Filters restrict candidates to articles of documents whose metadata
	// matches every filter. Empty means no restriction.
	Filters []metaquery.Filter
}
