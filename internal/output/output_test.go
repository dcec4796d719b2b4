package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelala00/pbc-regulations-sub001/internal/search"
)

func TestHitsRendering(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Hits([]search.Hit{
		{
			LawTitle:  "反洗钱法",
			ArticleNo: "第二条",
			Snippet:   "对洗钱行为依法罚款。",
			Score:     3.14,
			MatchType: []string{"bm25", "vector"},
		},
	})

	got := buf.String()
	assert.Contains(t, got, "反洗钱法")
	assert.Contains(t, got, "第二条")
	assert.Contains(t, got, "3.140")
	assert.Contains(t, got, "bm25+vector")
}

func TestHitsEmpty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Hits(nil)
	assert.Equal(t, "no results\n", buf.String())
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf).JSON(map[string]int{"row_count": 2}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded["row_count"])
}
