// Package service wires the corpus store, both indexes, and the metadata
// query engine into one application-lifetime facade. An Engine is fully
// built when its constructor returns; every operation afterwards is
// read-only, total, and safe for concurrent use.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/angelala00/pbc-regulations-sub001/internal/corpus"
	"github.com/angelala00/pbc-regulations-sub001/internal/embed"
	"github.com/angelala00/pbc-regulations-sub001/internal/index"
	"github.com/angelala00/pbc-regulations-sub001/internal/metaquery"
	"github.com/angelala00/pbc-regulations-sub001/internal/search"
)

// ErrDocumentNotFound reports an unknown document ID.
var ErrDocumentNotFound = errors.New("document not found")

// Options configures engine construction.
type Options struct {
	// ArtifactDir is the extraction artifact directory the corpus loads
	// from.
	ArtifactDir string

	// Embedder powers the semantic index. Nil disables semantic search;
	// lexical search still works.
	Embedder embed.Embedder

	// EmbeddingCachePath is the on-disk embedding cache location. Empty
	// disables persistence.
	EmbeddingCachePath string

	// Ranker overrides the fusion defaults when non-nil.
	Ranker *search.RankerConfig
}

// Engine is the retrieval facade over one corpus snapshot.
type Engine struct {
	store  *corpus.Store
	bm25   *index.BM25Index
	vector *index.EmbeddingIndex
	ranker *search.Ranker
	meta   *metaquery.Engine
}

// NewEngine loads the corpus and builds both indexes. Embedding-provider
// failures degrade to a partially embedded semantic index; only context
// cancellation aborts construction.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	store := corpus.NewStore(opts.ArtifactDir)
	records := index.BuildRecords(store)
	bm25 := index.NewBM25Index(records)

	var vector *index.EmbeddingIndex
	if opts.Embedder != nil && opts.Embedder.Available(ctx) {
		vector = index.NewEmbeddingIndex(records, opts.Embedder, index.EmbeddingOptions{
			CachePath: opts.EmbeddingCachePath,
		})
		if err := vector.Build(ctx); err != nil {
			return nil, fmt.Errorf("build embedding index: %w", err)
		}
	} else {
		slog.Info("semantic_index_disabled")
	}

	rankerCfg := search.DefaultRankerConfig()
	if opts.Ranker != nil {
		rankerCfg = *opts.Ranker
	}

	return &Engine{
		store:  store,
		bm25:   bm25,
		vector: vector,
		ranker: search.NewRanker(store, bm25, vector, rankerCfg),
		meta:   metaquery.NewEngine(),
	}, nil
}

// Search runs a hybrid query over the article corpus.
func (e *Engine) Search(ctx context.Context, query string, opts search.Options) []search.Hit {
	if e.vector == nil {
		opts.DisableVector = true
	}
	return e.ranker.Search(ctx, query, opts)
}

// MetadataResult is the metadata query response.
type MetadataResult struct {
	Rows     []metaquery.Row `json:"rows"`
	RowCount int             `json:"row_count"`
}

// QueryMetadata evaluates a metadata DSL query over the document rows. The
// only error source is query validation; evaluation itself cannot fail.
func (e *Engine) QueryMetadata(q metaquery.Query) (*MetadataResult, error) {
	rows, err := e.meta.Run(e.store.MetadataRows(), q)
	if err != nil {
		return nil, err
	}
	return &MetadataResult{Rows: rows, RowCount: len(rows)}, nil
}

// DocumentContent is the full or article-sliced text of one document.
type DocumentContent struct {
	DocID    string                  `json:"doc_id"`
	Title    string                  `json:"title"`
	Text     string                  `json:"text"`
	Articles []corpus.ArticleSection `json:"articles,omitempty"`
}

// DocumentText returns a document's text. With article IDs given, only the
// matching sections (by exact ID or trailing number) are returned, joined in
// document order; when nothing matches, the whole document comes back.
func (e *Engine) DocumentText(docID string, articleIDs []string) (*DocumentContent, error) {
	doc := e.store.Get(docID)
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}

	content := &DocumentContent{DocID: doc.ID, Title: doc.Title}
	if len(articleIDs) == 0 {
		content.Text = e.store.ReadText(docID)
		return content, nil
	}

	sections := corpus.FilterSectionsByIDs(e.store.Articles(docID), articleIDs)
	parts := make([]string, 0, len(sections))
	for _, section := range sections {
		parts = append(parts, section.Text)
	}
	content.Text = strings.Join(parts, "\n\n")
	content.Articles = sections
	return content, nil
}

// Articles returns the segmented articles of a document.
func (e *Engine) Articles(docID string) ([]corpus.ArticleSection, error) {
	if e.store.Get(docID) == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}
	return e.store.Articles(docID), nil
}

// Schema describes the queryable corpus surface.
type Schema struct {
	Documents  int                       `json:"documents"`
	Fields     []corpus.FieldDescription `json:"fields"`
	TextScopes []corpus.TextScope        `json:"text_scopes"`
}

// DescribeSchema returns the metadata field catalog and text scopes.
func (e *Engine) DescribeSchema() *Schema {
	return &Schema{
		Documents:  e.store.Len(),
		Fields:     e.store.DescribeFields(),
		TextScopes: e.store.TextScopes(),
	}
}

// Store exposes the underlying corpus snapshot.
func (e *Engine) Store() *corpus.Store {
	return e.store
}
