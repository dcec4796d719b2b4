package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelala00/pbc-regulations-sub001/internal/embed"
	"github.com/angelala00/pbc-regulations-sub001/internal/metaquery"
	"github.com/angelala00/pbc-regulations-sub001/internal/search"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "structured"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "texts"), 0o755))

	manifest := []map[string]any{
		{"doc_id": "aml-law", "title": "反洗钱法", "text_path": "texts/aml.txt", "level": "国家法律", "issuer": "人大常委会", "year": float64(2021)},
		{"doc_id": "pay-rule", "title": "支付管理办法", "text_path": "texts/pay.txt", "level": "部门规章", "issuer": "人民银行", "year": float64(2019)},
		{"doc_id": "credit-reg", "title": "征信管理条例", "level": "行政法规", "issuer": "国务院", "year": float64(2013)},
	}
	data, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "structured", "manifest.json"), data, 0o644))

	aml := "第一条 为了预防洗钱活动，制定本法。\n第二条 对洗钱行为依法罚款。"
	pay := "第一条 为了规范支付结算业务，制定本办法。"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "texts", "aml.txt"), []byte(aml), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "texts", "pay.txt"), []byte(pay), 0o644))

	engine, err := NewEngine(context.Background(), Options{
		ArtifactDir: dir,
		Embedder:    embed.NewStaticEmbedder(),
	})
	require.NoError(t, err)
	return engine
}

func TestEngineSearch(t *testing.T) {
	engine := newTestEngine(t)

	hits := engine.Search(context.Background(), "洗钱", search.Options{TopK: 5})
	require.NotEmpty(t, hits)
	assert.Equal(t, "aml-law", hits[0].LawID)
}

func TestEngineSearchWithoutEmbedder(t *testing.T) {
	dir := t.TempDir()
	engine, err := NewEngine(context.Background(), Options{ArtifactDir: dir})
	require.NoError(t, err)

	// Empty corpus plus no embedder still answers queries, with nothing.
	assert.Empty(t, engine.Search(context.Background(), "洗钱", search.Options{}))
	assert.Equal(t, 0, engine.DescribeSchema().Documents)
}

func TestEngineQueryMetadata(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.QueryMetadata(metaquery.Query{
		Select:  []string{"doc_id", "title"},
		Filters: []metaquery.Filter{{Field: "year", Op: metaquery.OpGreaterEqual, Value: 2019}},
		OrderBy: []metaquery.OrderBy{{Field: "year", Direction: "desc"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "aml-law", result.Rows[0]["doc_id"])
}

func TestEngineQueryMetadataAggregate(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.QueryMetadata(metaquery.Query{
		GroupBy:    []string{"issuer"},
		Aggregates: []metaquery.Aggregate{{Func: metaquery.FuncCount, Field: "*", Alias: "n"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowCount)
}

func TestEngineQueryMetadataValidation(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.QueryMetadata(metaquery.Query{
		Filters: []metaquery.Filter{{Field: "year", Op: "between", Value: 1}},
	})
	var verr *metaquery.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEngineDocumentText(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("full document", func(t *testing.T) {
		content, err := engine.DocumentText("aml-law", nil)
		require.NoError(t, err)
		assert.Equal(t, "反洗钱法", content.Title)
		assert.Contains(t, content.Text, "第二条")
		assert.Empty(t, content.Articles)
	})

	t.Run("sliced to one article", func(t *testing.T) {
		content, err := engine.DocumentText("aml-law", []string{"aml-law-article-2"})
		require.NoError(t, err)
		require.Len(t, content.Articles, 1)
		assert.Equal(t, "第二条", content.Articles[0].ArticleNo)
		assert.NotContains(t, content.Text, "第一条")
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := engine.DocumentText("nope", nil)
		assert.ErrorIs(t, err, ErrDocumentNotFound)
	})

	t.Run("document without text", func(t *testing.T) {
		content, err := engine.DocumentText("credit-reg", nil)
		require.NoError(t, err)
		assert.Empty(t, content.Text)
	})
}

func TestEngineArticles(t *testing.T) {
	engine := newTestEngine(t)

	articles, err := engine.Articles("aml-law")
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "aml-law-article-1", articles[0].ArticleID)

	_, err = engine.Articles("missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestEngineDescribeSchema(t *testing.T) {
	engine := newTestEngine(t)

	schema := engine.DescribeSchema()
	assert.Equal(t, 3, schema.Documents)
	assert.NotEmpty(t, schema.Fields)
	require.Len(t, schema.TextScopes, 2)
	assert.Equal(t, "law", schema.TextScopes[0].Name)
}
