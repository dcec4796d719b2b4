package index

import (
	"github.com/angelala00/pbc-regulations-sub001/internal/corpus"
)

// ArticleRecord is one indexed article: the unit of retrieval for both the
// lexical and the semantic index.
type ArticleRecord struct {
	LawID     string
	LawTitle  string
	ArticleID string
	ArticleNo string
	Text      string
	Tokens    []string
}

// BuildRecords flattens the document store into the article corpus, in
// document load order then article order. Documents without readable text
// contribute no records.
func BuildRecords(store *corpus.Store) []ArticleRecord {
	var records []ArticleRecord
	for _, doc := range store.Documents() {
		for _, section := range store.Articles(doc.ID) {
			records = append(records, ArticleRecord{
				LawID:     doc.ID,
				LawTitle:  doc.Title,
				ArticleID: section.ArticleID,
				ArticleNo: section.ArticleNo,
				Text:      section.Text,
				Tokens:    Tokenize(section.Text),
			})
		}
	}
	return records
}
