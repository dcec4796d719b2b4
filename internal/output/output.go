// Package output provides consistent CLI output formatting for query
// results: aligned text rendering and indented JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/angelala00/pbc-regulations-sub001/internal/search"
)

// Writer provides formatted output for the CLI. Write errors on console
// output are intentionally ignored.
type Writer struct {
	out io.Writer
}

// New creates a new output Writer.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Line prints one plain line.
func (w *Writer) Line(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Linef prints one formatted line.
func (w *Writer) Linef(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format+"\n", args...)
}

// JSON prints v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Hits renders a ranked result list: rank, score, title, article number and
// matched signals on one line, the snippet indented below.
func (w *Writer) Hits(hits []search.Hit) {
	if len(hits) == 0 {
		w.Line("no results")
		return
	}
	for i, hit := range hits {
		w.Linef("%2d. [%.3f] %s %s (%s)", i+1, hit.Score,
			hit.LawTitle, hit.ArticleNo, strings.Join(hit.MatchType, "+"))
		w.Linef("    %s", hit.Snippet)
	}
}
