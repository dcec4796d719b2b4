package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelala00/pbc-regulations-sub001/internal/embed"
)

// countingEmbedder wraps the static embedder and counts provider calls.
type countingEmbedder struct {
	*embed.StaticEmbedder
	batchCalls int32
	embedCalls int32
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{StaticEmbedder: embed.NewStaticEmbedder()}
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&c.batchCalls, 1)
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&c.embedCalls, 1)
	return c.StaticEmbedder.Embed(ctx, text)
}

// failingEmbedder always errors.
type failingEmbedder struct{ embed.StaticEmbedder }

func (f *failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("provider down")
}

func (f *failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("provider down")
}

// mismatchEmbedder returns vectors whose dimension depends on the text
// length, so pooling multiple chunks fails.
type mismatchEmbedder struct{ embed.StaticEmbedder }

func (m *mismatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = make([]float32, 2+len([]rune(text))%3)
		out[i][0] = 1
	}
	return out, nil
}

// sizeRecordingEmbedder tracks the largest EmbedBatch request it served.
type sizeRecordingEmbedder struct {
	*embed.StaticEmbedder
	maxBatch int32
}

func (s *sizeRecordingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for {
		cur := atomic.LoadInt32(&s.maxBatch)
		if int32(len(texts)) <= cur || atomic.CompareAndSwapInt32(&s.maxBatch, cur, int32(len(texts))) {
			break
		}
	}
	return s.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestEmbeddingIndexBuildAndSearch(t *testing.T) {
	records := testRecords("洗钱行为处罚", "支付结算管理", "反洗钱义务")
	idx := NewEmbeddingIndex(records, newCountingEmbedder(), EmbeddingOptions{})
	require.NoError(t, idx.Build(context.Background()))

	hits := idx.Search(context.Background(), "洗钱", 10, nil)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Greater(t, h.Score, 0.0)
	}
	// Best match should be one of the laundering articles.
	assert.NotEqual(t, 1, hits[0].Pos)
}

func TestEmbeddingIndexCacheHit(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "embeddings.json")
	records := testRecords("洗钱行为处罚", "支付结算管理")

	first := newCountingEmbedder()
	idx := NewEmbeddingIndex(records, first, EmbeddingOptions{CachePath: cachePath})
	require.NoError(t, idx.Build(context.Background()))
	assert.Positive(t, atomic.LoadInt32(&first.batchCalls))

	// A fresh index over the same texts comes entirely from the cache.
	second := newCountingEmbedder()
	idx2 := NewEmbeddingIndex(records, second, EmbeddingOptions{CachePath: cachePath})
	require.NoError(t, idx2.Build(context.Background()))
	assert.Zero(t, atomic.LoadInt32(&second.batchCalls))

	hits := idx2.Search(context.Background(), "洗钱", 10, nil)
	assert.NotEmpty(t, hits)
}

func TestEmbeddingIndexContentChangeInvalidates(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "embeddings.json")
	records := testRecords("洗钱行为处罚")
	idx := NewEmbeddingIndex(records, newCountingEmbedder(), EmbeddingOptions{CachePath: cachePath})
	require.NoError(t, idx.Build(context.Background()))

	changed := testRecords("修订后的条文内容")
	second := newCountingEmbedder()
	idx2 := NewEmbeddingIndex(changed, second, EmbeddingOptions{CachePath: cachePath})
	require.NoError(t, idx2.Build(context.Background()))
	assert.Positive(t, atomic.LoadInt32(&second.batchCalls))
}

func TestEmbeddingIndexProviderFailure(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "embeddings.json")
	records := testRecords("洗钱行为处罚")
	idx := NewEmbeddingIndex(records, &failingEmbedder{}, EmbeddingOptions{CachePath: cachePath})

	// Failure degrades, never aborts the build.
	require.NoError(t, idx.Build(context.Background()))
	assert.Empty(t, idx.Search(context.Background(), "洗钱", 10, nil))

	// Nothing was persisted for the failed articles.
	_, err := os.Stat(cachePath)
	assert.True(t, os.IsNotExist(err))
}

func TestEmbeddingIndexDimensionMismatchDropsArticle(t *testing.T) {
	// A small chunk size forces multi-chunk pooling; the mismatching
	// provider then fails the pool for articles whose chunks disagree.
	records := testRecords("第一条为了规范支付业务维护当事人合法权益制定本办法")
	idx := NewEmbeddingIndex(records, &mismatchEmbedder{}, EmbeddingOptions{
		ChunkSize:    8,
		ChunkOverlap: 2,
	})
	require.NoError(t, idx.Build(context.Background()))
	assert.Empty(t, idx.Search(context.Background(), "支付", 10, nil))
}

func TestEmbeddingIndexBatchSizeBoundsTexts(t *testing.T) {
	// Each 10-rune article chunks into three windows, so batching by
	// article count would send nine texts in one request.
	records := testRecords(
		"一二三四五六七八九十",
		"甲乙丙丁戊己庚辛壬癸",
		"壹贰叁肆伍陆柒捌玖拾",
	)
	emb := &sizeRecordingEmbedder{StaticEmbedder: embed.NewStaticEmbedder()}
	idx := NewEmbeddingIndex(records, emb, EmbeddingOptions{
		BatchSize:    3,
		ChunkSize:    4,
		ChunkOverlap: 1,
	})
	require.NoError(t, idx.Build(context.Background()))
	assert.LessOrEqual(t, atomic.LoadInt32(&emb.maxBatch), int32(3))

	hits := idx.Search(context.Background(), "甲乙", 10, nil)
	assert.NotEmpty(t, hits)
}

func TestEmbeddingIndexQueryFailure(t *testing.T) {
	records := testRecords("洗钱行为处罚")
	good := newCountingEmbedder()
	idx := NewEmbeddingIndex(records, good, EmbeddingOptions{})
	require.NoError(t, idx.Build(context.Background()))

	// Swap in a provider that fails query embedding.
	idx.provider = &failingEmbedder{}
	assert.Empty(t, idx.Search(context.Background(), "洗钱", 10, nil))
}

func TestEmbeddingIndexQueryCache(t *testing.T) {
	records := testRecords("洗钱行为处罚")
	emb := newCountingEmbedder()
	idx := NewEmbeddingIndex(records, emb, EmbeddingOptions{})
	require.NoError(t, idx.Build(context.Background()))

	idx.Search(context.Background(), "洗钱", 10, nil)
	idx.Search(context.Background(), "洗钱", 10, nil)
	assert.Equal(t, int32(1), atomic.LoadInt32(&emb.embedCalls))
}

func TestChunkText(t *testing.T) {
	t.Run("short text single chunk", func(t *testing.T) {
		chunks := chunkText("短文本", 10, 2)
		assert.Equal(t, []string{"短文本"}, chunks)
	})

	t.Run("long text overlaps", func(t *testing.T) {
		text := "一二三四五六七八九十"
		chunks := chunkText(text, 4, 1)
		require.Equal(t, []string{"一二三四", "四五六七", "七八九十"}, chunks)
	})
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, ContentHash("abc"), ContentHash("abc"))
	assert.NotEqual(t, ContentHash("abc"), ContentHash("abd"))
	assert.Len(t, ContentHash(""), 40)
}
