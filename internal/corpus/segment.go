package corpus

import (
	"fmt"
	"regexp"
	"strings"
)

// FullTextArticleNo marks a section that covers a whole document because no
// article headings were detected.
const FullTextArticleNo = "全文"

// articleHeadingPattern matches "第 <numeral> 条" headings with Arabic or CJK
// numerals and optional interior whitespace.
var articleHeadingPattern = regexp.MustCompile(`第\s*[一二三四五六七八九十百千万两俩壹贰叁肆伍陆柒捌玖0-9]+\s*条`)

// ArticleSection is one heading-delimited slice of a document.
type ArticleSection struct {
	// ArticleID is "<doc_id>-article-<n>", 1-based.
	ArticleID string

	// ArticleNo is the heading text, or FullTextArticleNo for the fallback
	// section.
	ArticleNo string

	// Text is the heading plus trimmed body.
	Text string

	// Index is the zero-based position within the document.
	Index int
}

// SegmentText splits a full law text into ordered article sections.
//
// Empty input yields zero sections: an empty-text document has no searchable
// content. A non-empty text with no headings yields exactly one fallback
// section with ArticleNo == FullTextArticleNo. Non-empty content before the
// first heading is kept as its own fallback-numbered section, never dropped.
func SegmentText(text, docID string) []ArticleSection {
	if text == "" {
		return nil
	}

	var sections []ArticleSection
	appendSection := func(heading, body string) {
		body = strings.TrimSpace(body)
		if heading == "" && body == "" {
			return
		}
		articleNo := FullTextArticleNo
		if heading != "" {
			articleNo = strings.TrimSpace(heading)
		}
		sectionText := articleNo
		if body != "" {
			sectionText = articleNo + "\n" + body
		}
		sections = append(sections, ArticleSection{
			ArticleID: fmt.Sprintf("%s-article-%d", docID, len(sections)+1),
			ArticleNo: articleNo,
			Text:      sectionText,
			Index:     len(sections),
		})
	}

	matches := articleHeadingPattern.FindAllStringIndex(text, -1)
	if len(matches) > 0 {
		// Leading content before the first heading.
		appendSection("", text[:matches[0][0]])
		for i, m := range matches {
			heading := text[m[0]:m[1]]
			bodyEnd := len(text)
			if i+1 < len(matches) {
				bodyEnd = matches[i+1][0]
			}
			appendSection(heading, text[m[1]:bodyEnd])
		}
	}

	if len(sections) == 0 {
		sections = append(sections, ArticleSection{
			ArticleID: fmt.Sprintf("%s-article-1", docID),
			ArticleNo: FullTextArticleNo,
			Text:      strings.TrimSpace(text),
			Index:     0,
		})
	}
	return sections
}

var trailingNumberPattern = regexp.MustCompile(`(\d+)$`)
var anyNumberPattern = regexp.MustCompile(`\d+`)

// FilterSectionsByIDs keeps sections matching the requested article IDs,
// either by exact ID or by trailing article number. With no IDs, or when
// nothing matches, the original slice is returned so callers always have
// content to show.
func FilterSectionsByIDs(sections []ArticleSection, ids []string) []ArticleSection {
	if len(ids) == 0 {
		return sections
	}

	idSet := make(map[string]struct{}, len(ids))
	tailNumbers := make(map[string]struct{})
	for _, id := range ids {
		idSet[id] = struct{}{}
		if m := trailingNumberPattern.FindString(id); m != "" {
			tailNumbers[m] = struct{}{}
		}
	}

	var filtered []ArticleSection
	for _, section := range sections {
		if _, ok := idSet[section.ArticleID]; ok {
			filtered = append(filtered, section)
			continue
		}
		if len(tailNumbers) > 0 {
			if num := anyNumberPattern.FindString(section.ArticleNo); num != "" {
				if _, ok := tailNumbers[num]; ok {
					filtered = append(filtered, section)
				}
			}
		}
	}
	if len(filtered) == 0 {
		return sections
	}
	return filtered
}
