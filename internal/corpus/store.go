package corpus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// ManifestRelPath is the structured manifest location inside the
	// artifact directory, tried before the per-task extract fallback.
	ManifestRelPath = "structured/manifest.json"

	// ExtractDirName holds per-task extraction files (*_extract.json)
	// used when no manifest is available.
	ExtractDirName = "extract_uniq"

	// textCacheSize bounds the number of document texts kept in memory.
	textCacheSize = 512

	// maxSampleValues caps the enumerated values reported per field by
	// DescribeFields, so schema discovery never scans unbounded data.
	maxSampleValues = 15
)

// Store holds the corpus snapshot for the process lifetime. Loading happens
// once in NewStore; all accessors afterwards are read-only and safe for
// concurrent use.
type Store struct {
	artifactDir string
	docs        map[string]*Document
	order       []string // doc IDs in load order

	textMu    sync.Mutex
	textCache *lru.Cache[string, string]
}

// NewStore loads documents from the artifact directory. A missing or corrupt
// manifest degrades to the extract-file fallback, and an empty corpus is a
// valid (logged) outcome rather than an error: the retrieval layer must come
// up even when ingestion artifacts are incomplete.
func NewStore(artifactDir string) *Store {
	s := &Store{
		artifactDir: artifactDir,
		docs:        make(map[string]*Document),
	}
	s.textCache, _ = lru.New[string, string](textCacheSize)

	docs := s.loadFromManifest()
	if len(docs) == 0 {
		docs = s.loadFromExtracts()
	}
	for _, doc := range docs {
		if _, exists := s.docs[doc.ID]; exists {
			continue
		}
		s.docs[doc.ID] = doc
		s.order = append(s.order, doc.ID)
	}

	if len(s.order) == 0 {
		slog.Warn("corpus_empty", slog.String("artifact_dir", artifactDir))
	} else {
		slog.Info("corpus_loaded",
			slog.String("artifact_dir", artifactDir),
			slog.Int("documents", len(s.order)))
	}
	return s
}

// loadFromManifest reads the structured manifest: a JSON array of document
// records carrying doc_id/id, title, text_path and arbitrary extra fields.
func (s *Store) loadFromManifest() []*Document {
	path := filepath.Join(s.artifactDir, filepath.FromSlash(ManifestRelPath))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("corpus_manifest_invalid",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil
	}

	var docs []*Document
	for _, record := range raw {
		doc := s.documentFromRecord(record, len(docs)+1)
		if doc == nil {
			continue
		}
		doc.Metadata["source"] = "manifest"
		docs = append(docs, doc)
	}
	return docs
}

// loadFromExtracts scans per-task extraction files. Each *_extract.json is a
// JSON array of document records in the same shape as the manifest.
func (s *Store) loadFromExtracts() []*Document {
	extractDir := filepath.Join(s.artifactDir, ExtractDirName)
	matches, err := filepath.Glob(filepath.Join(extractDir, "*_extract.json"))
	if err != nil || len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)

	var docs []*Document
	for _, path := range matches {
		taskName := strings.TrimSuffix(filepath.Base(path), "_extract.json")
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("corpus_extract_unreadable",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		var raw []map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			slog.Warn("corpus_extract_invalid",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		for _, record := range raw {
			doc := s.documentFromRecord(record, len(docs)+1)
			if doc == nil {
				continue
			}
			doc.Metadata["source"] = taskName
			docs = append(docs, doc)
		}
	}
	return docs
}

// documentFromRecord builds a Document from one raw manifest/extract record.
// Records without an id get a sequential fallback id so a sloppy artifact
// never silently drops documents.
func (s *Store) documentFromRecord(record map[string]any, serial int) *Document {
	if record == nil {
		return nil
	}

	id := strings.TrimSpace(stringValue(record["doc_id"]))
	if id == "" {
		id = strings.TrimSpace(stringValue(record["id"]))
	}
	if id == "" {
		id = fmt.Sprintf("doc:%d", serial)
	}
	title := strings.TrimSpace(stringValue(record["title"]))
	if title == "" {
		title = id
	}

	textPath := stringValue(record["text_path"])
	if textPath == "" {
		textPath = stringValue(record["textPath"])
	}

	metadata := make(map[string]any, len(record))
	for k, v := range record {
		if k == "text_path" || k == "textPath" {
			continue
		}
		metadata[k] = v
	}

	return &Document{
		ID:       id,
		Title:    title,
		TextPath: s.resolvePath(textPath),
		Metadata: metadata,
	}
}

// resolvePath resolves a text-file pointer relative to the artifact dir and
// returns "" when the file does not exist. A missing text file keeps the
// document loadable for metadata queries while excluding it from text search.
func (s *Store) resolvePath(candidate string) string {
	if candidate == "" {
		return ""
	}
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(s.artifactDir, filepath.FromSlash(candidate))
	}
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Documents returns all documents in load order.
func (s *Store) Documents() []*Document {
	docs := make([]*Document, 0, len(s.order))
	for _, id := range s.order {
		docs = append(docs, s.docs[id])
	}
	return docs
}

// Get returns the document for docID, or nil when unknown.
func (s *Store) Get(docID string) *Document {
	return s.docs[docID]
}

// Len returns the number of loaded documents.
func (s *Store) Len() int {
	return len(s.order)
}

// ReadText returns the document's full text, or "" when the document is
// unknown or its backing file is unreadable. Results are cached per doc ID.
func (s *Store) ReadText(docID string) string {
	s.textMu.Lock()
	defer s.textMu.Unlock()

	if text, ok := s.textCache.Get(docID); ok {
		return text
	}

	text := s.readTextUncached(docID)
	s.textCache.Add(docID, text)
	return text
}

func (s *Store) readTextUncached(docID string) string {
	doc := s.docs[docID]
	if doc == nil || doc.TextPath == "" {
		return ""
	}
	data, err := os.ReadFile(doc.TextPath)
	if err != nil {
		slog.Warn("corpus_text_unreadable",
			slog.String("doc_id", docID),
			slog.String("path", doc.TextPath),
			slog.String("error", err.Error()))
		return ""
	}
	return string(data)
}

// Articles returns the article sections of a document, segmenting its text
// on demand. Documents without text yield no articles.
func (s *Store) Articles(docID string) []ArticleSection {
	text := s.ReadText(docID)
	if text == "" {
		return nil
	}
	return SegmentText(text, docID)
}

// MetadataRows returns one flattened metadata row per document, in load
// order. The returned rows are fresh copies the caller may mutate.
func (s *Store) MetadataRows() []map[string]any {
	rows := make([]map[string]any, 0, len(s.order))
	for _, id := range s.order {
		rows = append(rows, s.docs[id].MetadataRow())
	}
	return rows
}

// wellKnownFields describes the fields the extraction pipeline emits.
// Sampling fills in observed values for enum-ish fields.
var wellKnownFields = []FieldDescription{
	{Name: "doc_id", Type: "string", Description: "Unique document identifier"},
	{Name: "title", Type: "string", Description: "Document title"},
	{Name: "remark", Type: "string", Description: "Original remark or snippet from source"},
	{Name: "level", Type: "enum", Description: "Regulation level (e.g. 国家法律/部门规章)"},
	{Name: "issuer", Type: "string", Description: "Issuing agency when present"},
	{Name: "doc_type", Type: "string", Description: "Document type / category string"},
	{Name: "year", Type: "string", Description: "Year parsed from title or remark"},
	{Name: "source", Type: "string", Description: "Artifact source that produced this entry"},
	{Name: "category", Type: "string[]", Description: "Normalized categories from structuring step"},
	{Name: "tags", Type: "string[]", Description: "Tags manually attached to the document"},
}

// DescribeFields introspects the loaded metadata rows and produces the
// queryable field catalog. Enumerated samples follow document load order and
// are capped at maxSampleValues.
func (s *Store) DescribeFields() []FieldDescription {
	rows := s.MetadataRows()
	if len(rows) == 0 {
		return nil
	}

	collect := func(field string) []string {
		var seen []string
		has := make(map[string]struct{})
		for _, row := range rows {
			if len(seen) >= maxSampleValues {
				break
			}
			value, ok := row[field]
			if !ok || value == nil {
				continue
			}
			var candidates []any
			if list, isList := value.([]any); isList {
				candidates = list
			} else {
				candidates = []any{value}
			}
			for _, item := range candidates {
				text := stringValue(item)
				if _, dup := has[text]; dup || text == "" {
					continue
				}
				has[text] = struct{}{}
				seen = append(seen, text)
				if len(seen) >= maxSampleValues {
					break
				}
			}
		}
		return seen
	}

	fields := make([]FieldDescription, 0, len(wellKnownFields))
	for _, field := range wellKnownFields {
		desc := field
		if desc.Type == "enum" {
			desc.Values = collect(desc.Name)
		}
		fields = append(fields, desc)
	}
	return fields
}

// TextScopes lists the searchable text granularities.
func (s *Store) TextScopes() []TextScope {
	return []TextScope{
		{Name: "law", Description: "Full document text"},
		{Name: "article", Description: "Article-level text when available; falls back to full text"},
	}
}
