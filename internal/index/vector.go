package index

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/angelala00/pbc-regulations-sub001/internal/embed"
)

// Semantic index defaults.
const (
	// DefaultChunkSize is the maximum article length, in runes, embedded
	// in one piece. Longer articles are chunked and mean-pooled.
	DefaultChunkSize = 8192

	// DefaultChunkOverlap is the rune overlap between adjacent chunks.
	DefaultChunkOverlap = 200

	// DefaultConcurrency bounds concurrent embedding batches.
	DefaultConcurrency = 4

	// queryCacheSize bounds the per-index query embedding cache.
	queryCacheSize = 128
)

// EmbeddingOptions configures semantic index construction. Zero values take
// the package defaults.
type EmbeddingOptions struct {
	CachePath    string
	BatchSize    int
	ChunkSize    int
	ChunkOverlap int
	Concurrency  int
}

func (o EmbeddingOptions) withDefaults() EmbeddingOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = embed.DefaultBatchSize
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = DefaultChunkOverlap
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

// EmbeddingIndex holds one embedding per article for cosine-similarity
// search. Articles whose embedding failed carry a nil vector and never match.
type EmbeddingIndex struct {
	records  []ArticleRecord
	vectors  [][]float32
	provider embed.Embedder
	opts     EmbeddingOptions

	cacheMu sync.Mutex
	cache   *vectorCache

	queryCache *lru.Cache[string, []float32]
}

// NewEmbeddingIndex creates the semantic index over records. Call Build
// before Search.
func NewEmbeddingIndex(records []ArticleRecord, provider embed.Embedder, opts EmbeddingOptions) *EmbeddingIndex {
	idx := &EmbeddingIndex{
		records:  records,
		vectors:  make([][]float32, len(records)),
		provider: provider,
		opts:     opts.withDefaults(),
	}
	idx.cache = loadVectorCache(idx.opts.CachePath)
	idx.queryCache, _ = lru.New[string, []float32](queryCacheSize)
	return idx
}

// Build embeds every article not already covered by the content-hash cache.
// Provider failures degrade to unembedded articles rather than failing the
// build; only context cancellation aborts. The cache is persisted after each
// completed batch so an interrupted build resumes where it stopped.
func (idx *EmbeddingIndex) Build(ctx context.Context) error {
	type pending struct {
		pos    int
		hash   string
		chunks []string
	}

	var misses []pending
	for pos, rec := range idx.records {
		hash := ContentHash(rec.Text)
		if vec, ok := idx.cache.get(rec.ArticleID, hash); ok {
			idx.vectors[pos] = vec
			continue
		}
		misses = append(misses, pending{
			pos:    pos,
			hash:   hash,
			chunks: chunkText(rec.Text, idx.opts.ChunkSize, idx.opts.ChunkOverlap),
		})
	}

	if len(misses) == 0 {
		slog.Info("embedding_index_ready",
			slog.Int("articles", len(idx.records)),
			slog.Bool("from_cache", true))
		return nil
	}

	// Batches group articles until their chunk count reaches the batch
	// size, so the text count per provider request stays bounded even when
	// long articles split into several chunks. An article with more chunks
	// than the batch size forms a batch alone; embedTexts splits its
	// request.
	var batches [][]pending
	var current []pending
	chunkCount := 0
	for _, item := range misses {
		if len(current) > 0 && chunkCount+len(item.chunks) > idx.opts.BatchSize {
			batches = append(batches, current)
			current = nil
			chunkCount = 0
		}
		current = append(current, item)
		chunkCount += len(item.chunks)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.opts.Concurrency)

	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			var texts []string
			spans := make([][2]int, len(batch))
			for i, item := range batch {
				spans[i] = [2]int{len(texts), len(texts) + len(item.chunks)}
				texts = append(texts, item.chunks...)
			}

			vectors, err := idx.embedTexts(ctx, texts)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Warn("embedding_batch_failed",
					slog.Int("articles", len(batch)),
					slog.String("error", err.Error()))
				return nil
			}

			idx.cacheMu.Lock()
			defer idx.cacheMu.Unlock()
			for i, item := range batch {
				pooled, ok := embed.MeanPool(vectors[spans[i][0]:spans[i][1]])
				if !ok {
					slog.Warn("embedding_pool_failed",
						slog.String("article_id", idx.records[item.pos].ArticleID))
					continue
				}
				idx.vectors[item.pos] = pooled
				idx.cache.put(idx.records[item.pos].ArticleID, item.hash, pooled)
			}
			if err := idx.cache.persist(); err != nil {
				slog.Warn("embedding_cache_persist_failed",
					slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	embedded := 0
	for _, vec := range idx.vectors {
		if vec != nil {
			embedded++
		}
	}
	slog.Info("embedding_index_ready",
		slog.Int("articles", len(idx.records)),
		slog.Int("embedded", embedded))
	return nil
}

// embedTexts sends texts to the provider in requests of at most BatchSize
// texts each, concatenating the results in order.
func (idx *EmbeddingIndex) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += idx.opts.BatchSize {
		end := start + idx.opts.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		part, err := idx.provider.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, part...)
	}
	return vectors, nil
}

// chunkText splits text into rune windows of at most size with the given
// overlap between neighbors.
func chunkText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Search embeds the query and ranks articles by cosine similarity, keeping
// only positive scores. A failed query embedding yields no results: semantic
// search degrades silently when the provider is down.
func (idx *EmbeddingIndex) Search(ctx context.Context, query string, topK int, restrict map[int]struct{}) []Scored {
	if query == "" || topK <= 0 {
		return nil
	}

	queryVec, ok := idx.queryCache.Get(query)
	if !ok {
		vec, err := idx.provider.Embed(ctx, query)
		if err != nil {
			slog.Warn("query_embedding_failed", slog.String("error", err.Error()))
			return nil
		}
		idx.queryCache.Add(query, vec)
		queryVec = vec
	}

	var results []Scored
	for pos, vec := range idx.vectors {
		if vec == nil {
			continue
		}
		if restrict != nil {
			if _, allowed := restrict[pos]; !allowed {
				continue
			}
		}
		score := embed.Cosine(queryVec, vec)
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
