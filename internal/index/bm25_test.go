package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"ascii words", "PBC Circular 2021", []string{"pbc", "circular", "2021"}},
		{"cjk per ideograph", "反洗钱", []string{"反", "洗", "钱"}},
		{"mixed", "第3条 罚款RMB", []string{"第", "3", "条", "罚", "款", "rmb"}},
		{"punctuation dropped", "（一）许可；", []string{"一", "许", "可"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func testRecords(texts ...string) []ArticleRecord {
	records := make([]ArticleRecord, len(texts))
	for i, text := range texts {
		records[i] = ArticleRecord{
			LawID:     "law-1",
			LawTitle:  "测试条例",
			ArticleID: "law-1-article-" + string(rune('1'+i)),
			ArticleNo: "第一条",
			Text:      text,
			Tokens:    Tokenize(text),
		}
	}
	return records
}

func TestBM25Search(t *testing.T) {
	idx := NewBM25Index(testRecords(
		"洗钱行为的处罚与罚款规则",
		"支付结算业务管理",
		"洗钱",
	))

	hits := idx.Search("洗钱", 10, nil)
	require.Len(t, hits, 2)
	// The shorter article with full term coverage ranks first.
	assert.Equal(t, 2, hits[0].Pos)
	assert.Equal(t, 0, hits[1].Pos)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestBM25NoMatchExcluded(t *testing.T) {
	idx := NewBM25Index(testRecords("洗钱", "支付"))
	hits := idx.Search("征信", 10, nil)
	assert.Empty(t, hits)
}

func TestBM25EmptyQuery(t *testing.T) {
	idx := NewBM25Index(testRecords("洗钱"))
	assert.Empty(t, idx.Search("", 10, nil))
	assert.Empty(t, idx.Search("，。！", 10, nil))
	assert.Empty(t, idx.Search("洗钱", 0, nil))
}

func TestBM25TopKTruncation(t *testing.T) {
	idx := NewBM25Index(testRecords("洗钱甲", "洗钱乙", "洗钱丙"))
	hits := idx.Search("洗钱", 2, nil)
	assert.Len(t, hits, 2)
}

func TestBM25StableTieBreak(t *testing.T) {
	idx := NewBM25Index(testRecords("洗钱条款", "洗钱条款", "洗钱条款"))
	hits := idx.Search("洗钱", 10, nil)
	require.Len(t, hits, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{hits[0].Pos, hits[1].Pos, hits[2].Pos})
	assert.Equal(t, hits[0].Score, hits[1].Score)
}

func TestBM25RestrictSet(t *testing.T) {
	idx := NewBM25Index(testRecords("洗钱甲", "洗钱乙"))
	hits := idx.Search("洗钱", 10, map[int]struct{}{1: {}})
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Pos)
}
