package index

import (
	"log/slog"
	"math"
	"sort"
)

// Okapi BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Scored pairs an article position in the corpus with its relevance score.
type Scored struct {
	Pos   int
	Score float64
}

type posting struct {
	pos int
	tf  int
}

// BM25Index is an in-memory inverted index over the article corpus scored
// with Okapi BM25. It is built once and read-only afterwards.
type BM25Index struct {
	records  []ArticleRecord
	postings map[string][]posting
	lengths  []int
	avgLen   float64
}

// NewBM25Index builds the inverted index over records.
func NewBM25Index(records []ArticleRecord) *BM25Index {
	idx := &BM25Index{
		records:  records,
		postings: make(map[string][]posting),
		lengths:  make([]int, len(records)),
	}

	var totalLen int
	for pos, rec := range records {
		idx.lengths[pos] = len(rec.Tokens)
		totalLen += len(rec.Tokens)

		counts := make(map[string]int, len(rec.Tokens))
		for _, tok := range rec.Tokens {
			counts[tok]++
		}
		for term, tf := range counts {
			idx.postings[term] = append(idx.postings[term], posting{pos: pos, tf: tf})
		}
	}
	if len(records) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(records))
	}

	slog.Info("bm25_index_built",
		slog.Int("articles", len(records)),
		slog.Int("terms", len(idx.postings)))
	return idx
}

// Len returns the number of indexed articles.
func (idx *BM25Index) Len() int {
	return len(idx.records)
}

// Record returns the article at corpus position pos.
func (idx *BM25Index) Record(pos int) ArticleRecord {
	return idx.records[pos]
}

// Records returns the full article corpus backing the index.
func (idx *BM25Index) Records() []ArticleRecord {
	return idx.records
}

// idf uses the standard smoothed form, always positive.
func (idx *BM25Index) idf(df int) float64 {
	n := float64(len(idx.records))
	return math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
}

// Search scores the corpus against query and returns up to topK articles in
// descending score order. Articles scoring zero are excluded. Ties keep
// corpus order. A restrict set limits candidates to those positions; nil
// means no restriction. A query that tokenizes to nothing returns nothing.
func (idx *BM25Index) Search(query string, topK int, restrict map[int]struct{}) []Scored {
	terms := Tokenize(query)
	if len(terms) == 0 || topK <= 0 {
		return nil
	}

	scores := make(map[int]float64)
	for _, term := range terms {
		plist, ok := idx.postings[term]
		if !ok {
			continue
		}
		idf := idx.idf(len(plist))
		for _, p := range plist {
			if restrict != nil {
				if _, allowed := restrict[p.pos]; !allowed {
					continue
				}
			}
			tf := float64(p.tf)
			norm := 1 - bm25B + bm25B*float64(idx.lengths[p.pos])/idx.avgLen
			scores[p.pos] += idf * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
		}
	}
	if len(scores) == 0 {
		return nil
	}

	results := make([]Scored, 0, len(scores))
	for pos, score := range scores {
		if score > 0 {
			results = append(results, Scored{Pos: pos, Score: score})
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Pos < results[b].Pos
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
