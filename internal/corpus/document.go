// Package corpus loads pre-extracted regulatory documents into memory and
// slices their text into article-level sections. This is the ingestion-facing
// layer: everything downstream (indexes, metadata queries) works off the
// snapshot held here.
package corpus

// Document is the in-memory representation of a single law/policy document.
// Documents are loaded once at startup and immutable afterwards.
type Document struct {
	// ID is globally unique within a corpus snapshot.
	ID string

	// Title is the document title, defaulted to ID when absent.
	Title string

	// TextPath points at the extracted plain-text file. Empty when the
	// source artifact carried no usable text pointer.
	TextPath string

	// Metadata carries arbitrary extra fields from the source artifact.
	Metadata map[string]any
}

// MetadataRow returns the flattened metadata view of the document.
// doc_id and title are always present, defaulted from the document.
func (d *Document) MetadataRow() map[string]any {
	row := make(map[string]any, len(d.Metadata)+2)
	for k, v := range d.Metadata {
		row[k] = v
	}
	if _, ok := row["doc_id"]; !ok {
		row["doc_id"] = d.ID
	}
	if _, ok := row["title"]; !ok {
		row["title"] = d.Title
	}
	return row
}

// FieldDescription describes one queryable metadata field.
type FieldDescription struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Values      []string `json:"values,omitempty"`
}

// TextScope names a searchable text granularity.
type TextScope struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
