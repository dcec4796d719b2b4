package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentTextEmpty(t *testing.T) {
	assert.Nil(t, SegmentText("", "doc-1"))
}

func TestSegmentTextNoHeadings(t *testing.T) {
	sections := SegmentText("  这是一份没有条文结构的通知全文。  ", "doc-1")
	require.Len(t, sections, 1)
	assert.Equal(t, "doc-1-article-1", sections[0].ArticleID)
	assert.Equal(t, FullTextArticleNo, sections[0].ArticleNo)
	assert.Equal(t, "这是一份没有条文结构的通知全文。", sections[0].Text)
	assert.Equal(t, 0, sections[0].Index)
}

func TestSegmentTextHeadings(t *testing.T) {
	text := "第一条 为了加强管理，制定本法。\n第二条 本法适用于境内机构。\n第 3 条 另有规定的除外。"
	sections := SegmentText(text, "law-9")

	require.Len(t, sections, 3)
	assert.Equal(t, "第一条", sections[0].ArticleNo)
	assert.Equal(t, "第一条\n为了加强管理，制定本法。", sections[0].Text)
	assert.Equal(t, "第二条", sections[1].ArticleNo)
	assert.Equal(t, "第 3 条", sections[2].ArticleNo)

	for i, section := range sections {
		assert.Equal(t, i, section.Index)
	}
	assert.Equal(t, "law-9-article-1", sections[0].ArticleID)
	assert.Equal(t, "law-9-article-3", sections[2].ArticleID)
}

func TestSegmentTextLeadingContentKept(t *testing.T) {
	text := "中国人民银行令\n第一条 总则。"
	sections := SegmentText(text, "doc-2")

	require.Len(t, sections, 2)
	assert.Equal(t, FullTextArticleNo, sections[0].ArticleNo)
	assert.Contains(t, sections[0].Text, "中国人民银行令")
	assert.Equal(t, "第一条", sections[1].ArticleNo)
}

func TestSegmentTextBlankLeadingContentDropped(t *testing.T) {
	sections := SegmentText("\n\n第一条 总则。", "doc-3")
	require.Len(t, sections, 1)
	assert.Equal(t, "第一条", sections[0].ArticleNo)
	assert.Equal(t, "doc-3-article-1", sections[0].ArticleID)
}

func TestSegmentTextCJKNumerals(t *testing.T) {
	text := "第十二条 甲。第一百零三条 乙。"
	sections := SegmentText(text, "d")
	// 零 is not in the numeral class, so the second heading does not match.
	require.NotEmpty(t, sections)
	assert.Equal(t, "第十二条", sections[0].ArticleNo)
}

func TestFilterSectionsByIDs(t *testing.T) {
	sections := SegmentText("第一条 甲。\n第二条 乙。\n第三条 丙。", "law-1")
	require.Len(t, sections, 3)

	t.Run("exact id", func(t *testing.T) {
		got := FilterSectionsByIDs(sections, []string{"law-1-article-2"})
		require.Len(t, got, 1)
		assert.Equal(t, "第二条", got[0].ArticleNo)
	})

	t.Run("no ids returns all", func(t *testing.T) {
		assert.Equal(t, sections, FilterSectionsByIDs(sections, nil))
	})

	t.Run("no match falls back to all", func(t *testing.T) {
		assert.Equal(t, sections, FilterSectionsByIDs(sections, []string{"law-1-article-99"}))
	})

	t.Run("trailing number matches arabic heading", func(t *testing.T) {
		numbered := SegmentText("第1条 甲。第2条 乙。", "law-2")
		require.Len(t, numbered, 2)
		got := FilterSectionsByIDs(numbered, []string{"article-2"})
		require.Len(t, got, 1)
		assert.Equal(t, "第2条", got[0].ArticleNo)
	})
}
