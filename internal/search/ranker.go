package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/angelala00/pbc-regulations-sub001/internal/corpus"
	"github.com/angelala00/pbc-regulations-sub001/internal/index"
	"github.com/angelala00/pbc-regulations-sub001/internal/metaquery"
)

// snippetRunes is the snippet window length in runes.
const snippetRunes = 180

// RankerConfig tunes the hybrid fusion.
type RankerConfig struct {
	// BM25Weight and VectorWeight scale each signal's scores before
	// summation.
	BM25Weight   float64
	VectorWeight float64

	// TriggerTerms activate the auxiliary lexical query when any of them
	// appears in the user query. The boost needs the lexical signal
	// enabled.
	TriggerTerms    []string
	AuxiliaryQuery  string
	AuxiliaryWeight float64
}

// DefaultRankerConfig returns the fusion defaults: lexical matches count
// double, and penalty-flavored queries pull in enforcement vocabulary.
func DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		BM25Weight:      2.0,
		VectorWeight:    1.0,
		TriggerTerms:    []string{"处罚", "违法", "罚款"},
		AuxiliaryQuery:  "罚款 责令 违反",
		AuxiliaryWeight: 1.0,
	}
}

// Ranker fuses the lexical and semantic indexes into one ranked hit list.
// The semantic index may be nil, degrading to lexical-only search.
type Ranker struct {
	store   *corpus.Store
	engine  *metaquery.Engine
	bm25    *index.BM25Index
	vector  *index.EmbeddingIndex
	records []index.ArticleRecord
	cfg     RankerConfig
}

// NewRanker creates the hybrid ranker over a built index pair.
func NewRanker(store *corpus.Store, bm25 *index.BM25Index, vector *index.EmbeddingIndex, cfg RankerConfig) *Ranker {
	return &Ranker{
		store:   store,
		engine:  metaquery.NewEngine(),
		bm25:    bm25,
		vector:  vector,
		records: bm25.Records(),
		cfg:     cfg,
	}
}

// Search runs the hybrid query. Each enabled signal contributes its top 2k
// candidates; scores merge per article as a weighted sum and the fused list
// is cut to top k. An empty query, or both signals disabled, yields nothing.
func (r *Ranker) Search(ctx context.Context, query string, opts Options) []Hit {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if opts.DisableBM25 && opts.DisableVector {
		return nil
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	restrict, ok := r.restrictSet(opts.Filters)
	if !ok {
		return nil
	}
	fetch := 2 * topK

	type fused struct {
		pos    int
		score  float64
		byBM25 bool
		byVec  bool
	}
	merged := make(map[string]*fused)
	var order []string

	add := func(hits []index.Scored, weight float64, vector bool) {
		for _, h := range hits {
			id := r.records[h.Pos].ArticleID
			entry, exists := merged[id]
			if !exists {
				entry = &fused{pos: h.Pos}
				merged[id] = entry
				order = append(order, id)
			}
			entry.score += h.Score * weight
			if vector {
				entry.byVec = true
			} else {
				entry.byBM25 = true
			}
		}
	}

	if !opts.DisableBM25 {
		add(r.bm25.Search(query, fetch, restrict), r.cfg.BM25Weight, false)
		if aux := r.auxiliaryQuery(query); aux != "" {
			add(r.bm25.Search(aux, fetch, restrict), r.cfg.AuxiliaryWeight, false)
		}
	}
	if !opts.DisableVector && r.vector != nil {
		add(r.vector.Search(ctx, query, fetch, restrict), r.cfg.VectorWeight, true)
	}

	hits := make([]Hit, 0, len(merged))
	for _, id := range order {
		entry := merged[id]
		rec := r.records[entry.pos]
		var matchTypes []string
		if entry.byBM25 {
			matchTypes = append(matchTypes, MatchBM25)
		}
		if entry.byVec {
			matchTypes = append(matchTypes, MatchVector)
		}
		hits = append(hits, Hit{
			LawID:     rec.LawID,
			LawTitle:  rec.LawTitle,
			ArticleID: rec.ArticleID,
			ArticleNo: rec.ArticleNo,
			Snippet:   makeSnippet(rec.Text, query),
			Score:     entry.score,
			MatchType: matchTypes,
		})
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	slog.Debug("hybrid_search",
		slog.String("query", query),
		slog.Int("hits", len(hits)))
	return hits
}

// auxiliaryQuery returns the enforcement-vocabulary boost query when the user
// query carries a trigger term, or "" otherwise.
func (r *Ranker) auxiliaryQuery(query string) string {
	if r.cfg.AuxiliaryQuery == "" {
		return ""
	}
	for _, term := range r.cfg.TriggerTerms {
		if term != "" && strings.Contains(query, term) {
			return r.cfg.AuxiliaryQuery
		}
	}
	return ""
}

// restrictSet translates metadata filters into an article position allow-set.
// No filters means no restriction (nil set, ok). Filters that match zero
// documents report not-ok: the caller returns empty instead of scanning all.
func (r *Ranker) restrictSet(filters []metaquery.Filter) (map[int]struct{}, bool) {
	if len(filters) == 0 {
		return nil, true
	}
	matched := r.engine.Filter(r.store.MetadataRows(), filters)
	if len(matched) == 0 {
		return nil, false
	}
	allowedDocs := make(map[string]struct{}, len(matched))
	for _, row := range matched {
		value := row["doc_id"]
		if value == nil {
			continue
		}
		// Stringified to match Document.ID, which normalizes numeric
		// manifest IDs the same way.
		if id := strings.TrimSpace(fmt.Sprint(value)); id != "" {
			allowedDocs[id] = struct{}{}
		}
	}
	restrict := make(map[int]struct{})
	for pos, rec := range r.records {
		if _, ok := allowedDocs[rec.LawID]; ok {
			restrict[pos] = struct{}{}
		}
	}
	if len(restrict) == 0 {
		return nil, false
	}
	return restrict, true
}

// makeSnippet builds a fixed-width snippet with newlines collapsed, centered
// on the longest query term found in the text.
func makeSnippet(text, query string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) <= snippetRunes {
		return collapsed
	}

	// Whole whitespace-separated phrases, longest first, so a CJK query
	// centers on the full phrase rather than its first ideograph. Byte
	// offsets convert to rune offsets for window math.
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		terms = []string{strings.ToLower(query)}
	}
	sort.SliceStable(terms, func(a, b int) bool {
		return len([]rune(terms[a])) > len([]rune(terms[b]))
	})
	lowered := strings.ToLower(collapsed)
	center := snippetRunes / 2
	for _, term := range terms {
		byteIdx := strings.Index(lowered, term)
		if byteIdx < 0 {
			continue
		}
		runeIdx := len([]rune(lowered[:byteIdx]))
		center = runeIdx + len([]rune(term))/2
		break
	}

	start := center - snippetRunes/2
	if start < 0 {
		start = 0
	}
	end := start + snippetRunes
	if end > len(runes) {
		end = len(runes)
		start = end - snippetRunes
	}
	return string(runes[start:end])
}
