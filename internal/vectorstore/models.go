package vectorstore

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Table names one of the three persistent tables described in §3, plus the
// single-row directory structure record which lives in its own table.
type Table string

const (
	TableFileEmbeddings Table = "file_embeddings"
	TableDocumentChunks Table = "document_chunk_embeddings"
	TablePRComments     Table = "pr_comments"
	TableDirectory      Table = "directory_structure"
)

// AllTables lists every table EnsureTables provisions.
func AllTables() []Table {
	return []Table{TableFileEmbeddings, TableDocumentChunks, TablePRComments, TableDirectory}
}

// Record is the storage-engine-agnostic row the Store persists and indexes.
// Content is what gets FTS-indexed; Vector is what gets ANN/exact-indexed.
// Metadata carries table-specific columns not common to every record kind,
// mirroring the teacher's map[string]interface{} document metadata
// convention but scoped per logical table rather than per collection.
type Record struct {
	ID          string
	ProjectPath string
	Content     string
	Vector      []float32
	Metadata    map[string]interface{}
}

// structToMetadata round-trips a struct through JSON to produce a generic
// metadata map, so typed record constructors don't need hand-written field
// copying for every column.
func structToMetadata(v interface{}) map[string]interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}

func metadataToStruct(m map[string]interface{}, out interface{}) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// ContentHash8 returns the first 8 hex characters of MD5(content), the
// fingerprint used in file_embeddings IDs and change detection (§3).
func ContentHash8(content string) string {
	sum := md5.Sum([]byte(content)) //nolint:gosec
	return hex.EncodeToString(sum[:])[:8]
}

// FileEmbeddingRecord represents one source/code file (§3).
type FileEmbeddingRecord struct {
	ID           string    `json:"-"`
	Path         string    `json:"path"`
	ProjectPath  string    `json:"-"`
	Name         string    `json:"name"`
	Language     string    `json:"language"`
	Content      string    `json:"-"`
	ContentHash  string    `json:"contentHash"`
	LastModified time.Time `json:"lastModified"`
	Vector       []float32 `json:"-"`
}

// NewFileEmbeddingRecord builds a FileEmbeddingRecord with its derived ID
// and content hash, matching the invariant id = relativePath#contentHash8.
func NewFileEmbeddingRecord(path, projectPath, name, language, content string, lastModified time.Time, vector []float32) FileEmbeddingRecord {
	hash := ContentHash8(content)
	return FileEmbeddingRecord{
		ID:           fmt.Sprintf("%s#%s", path, hash),
		Path:         path,
		ProjectPath:  projectPath,
		Name:         name,
		Language:     language,
		Content:      content,
		ContentHash:  hash,
		LastModified: lastModified,
		Vector:       vector,
	}
}

// ToRecord converts to the storage-engine-agnostic Record.
func (r FileEmbeddingRecord) ToRecord() Record {
	return Record{
		ID:          r.ID,
		ProjectPath: r.ProjectPath,
		Content:     r.Content,
		Vector:      r.Vector,
		Metadata:    structToMetadata(r),
	}
}

// FileEmbeddingFromRecord reconstructs a typed record from a generic Record.
func FileEmbeddingFromRecord(rec Record) (FileEmbeddingRecord, error) {
	var r FileEmbeddingRecord
	if err := metadataToStruct(rec.Metadata, &r); err != nil {
		return FileEmbeddingRecord{}, err
	}
	r.ID = rec.ID
	r.ProjectPath = rec.ProjectPath
	r.Content = rec.Content
	r.Vector = rec.Vector
	return r, nil
}

// DocumentChunkRecord represents one H2/H3 section, or the whole document
// when it carries no sub-headings (§3).
type DocumentChunkRecord struct {
	ID                   string    `json:"-"`
	OriginalDocumentPath string    `json:"originalDocumentPath"`
	ProjectPath          string    `json:"-"`
	HeadingText          *string   `json:"headingText"`
	DocumentTitle        string    `json:"documentTitle"`
	Language             string    `json:"language"`
	StartLineInDoc       int       `json:"startLineInDoc"`
	Content              string    `json:"-"`
	ContentHash          string    `json:"contentHash"`
	// DocumentContentHash is ContentHash8 of the *whole* source document,
	// not just this chunk; every chunk sharing OriginalDocumentPath carries
	// the same value so the Indexer can mtime/hash-gate the documents phase
	// (§4.5) without re-reading and re-chunking unchanged documents.
	DocumentContentHash string    `json:"documentContentHash"`
	LastModified        time.Time `json:"lastModified"`
	Vector              []float32 `json:"-"`
}

// NewDocumentChunkRecord builds a DocumentChunkRecord with its derived ID
// (originalDocumentPath#slug(heading)_startLine). documentContentHash is
// ContentHash8 of the whole source document (see DocumentContentHash).
func NewDocumentChunkRecord(docPath, projectPath string, heading *string, title, language string, startLine int, content, documentContentHash string, lastModified time.Time, vector []float32) DocumentChunkRecord {
	slug := "body"
	if heading != nil {
		slug = slugify(*heading)
	}
	return DocumentChunkRecord{
		ID:                   fmt.Sprintf("%s#%s_%d", docPath, slug, startLine),
		OriginalDocumentPath: docPath,
		ProjectPath:          projectPath,
		HeadingText:          heading,
		DocumentTitle:        title,
		Language:             language,
		StartLineInDoc:       startLine,
		Content:              content,
		ContentHash:          ContentHash8(content),
		DocumentContentHash:  documentContentHash,
		LastModified:         lastModified,
		Vector:               vector,
	}
}

func (r DocumentChunkRecord) ToRecord() Record {
	return Record{
		ID:          r.ID,
		ProjectPath: r.ProjectPath,
		Content:     r.Content,
		Vector:      r.Vector,
		Metadata:    structToMetadata(r),
	}
}

func DocumentChunkFromRecord(rec Record) (DocumentChunkRecord, error) {
	var r DocumentChunkRecord
	if err := metadataToStruct(rec.Metadata, &r); err != nil {
		return DocumentChunkRecord{}, err
	}
	r.ID = rec.ID
	r.ProjectPath = rec.ProjectPath
	r.Content = rec.Content
	r.Vector = rec.Vector
	return r, nil
}

// PRCommentRecord represents one human review comment (§3).
type PRCommentRecord struct {
	ID                string     `json:"-"`
	PRNumber          int        `json:"prNumber"`
	Repository        string     `json:"repository"`
	ProjectPath       string     `json:"-"`
	CommentType       string     `json:"commentType"`
	CommentText       string     `json:"-"`
	FilePath          *string    `json:"filePath"`
	LineNumber        *int       `json:"lineNumber"`
	LineRangeStart    *int       `json:"lineRangeStart"`
	LineRangeEnd      *int       `json:"lineRangeEnd"`
	OriginalCode      string     `json:"originalCode"`
	SuggestedCode     string     `json:"suggestedCode"`
	DiffHunk          string     `json:"diffHunk"`
	Author            string     `json:"author"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	ReviewID          string     `json:"reviewId"`
	ReviewState       string     `json:"reviewState"`
	IssueCategory     string     `json:"issueCategory"`
	Severity          string     `json:"severity"`
	PatternTags       []string   `json:"patternTags"`
	CommentEmbedding  []float32  `json:"-"`
	CodeEmbedding     []float32  `json:"-"`
	CombinedEmbedding []float32  `json:"-"`
}

// NewPRCommentRecord builds a PRCommentRecord. CombinedEmbedding is required
// (invariant: combinedEmbedding non-null for every record) and is what the
// generic Record.Vector carries for retrieval.
func NewPRCommentRecord(id string, prNumber int, repository, projectPath string) PRCommentRecord {
	return PRCommentRecord{ID: id, PRNumber: prNumber, Repository: repository, ProjectPath: projectPath}
}

func (r PRCommentRecord) ToRecord() Record {
	return Record{
		ID:          r.ID,
		ProjectPath: r.ProjectPath,
		Content:     r.CommentText,
		Vector:      r.CombinedEmbedding,
		Metadata:    structToMetadata(r),
	}
}

func PRCommentFromRecord(rec Record) (PRCommentRecord, error) {
	var r PRCommentRecord
	if err := metadataToStruct(rec.Metadata, &r); err != nil {
		return PRCommentRecord{}, err
	}
	r.ID = rec.ID
	r.ProjectPath = rec.ProjectPath
	r.CommentText = rec.Content
	r.CombinedEmbedding = rec.Vector
	return r, nil
}

// DirectoryStructureRecord is the single optional per-project record with
// the rendered project tree (§3).
type DirectoryStructureRecord struct {
	ID          string    `json:"-"`
	ProjectName string    `json:"projectName"`
	ProjectPath string    `json:"-"`
	Tree        string    `json:"-"`
	GeneratedAt time.Time `json:"generatedAt"`
	Vector      []float32 `json:"-"`
}

// NewDirectoryStructureRecord builds the well-known per-project record with
// id = "__project_structure__{name}".
func NewDirectoryStructureRecord(projectName, projectPath, tree string, generatedAt time.Time, vector []float32) DirectoryStructureRecord {
	return DirectoryStructureRecord{
		ID:          fmt.Sprintf("__project_structure__%s", projectName),
		ProjectName: projectName,
		ProjectPath: projectPath,
		Tree:        tree,
		GeneratedAt: generatedAt,
		Vector:      vector,
	}
}

func (r DirectoryStructureRecord) ToRecord() Record {
	return Record{
		ID:          r.ID,
		ProjectPath: r.ProjectPath,
		Content:     r.Tree,
		Vector:      r.Vector,
		Metadata:    structToMetadata(r),
	}
}

// Row is one ranked result from Store.Search: the underlying Record plus
// its fused score and which retrieval channel(s) contributed.
type Row struct {
	Record
	Score         float64
	MatchedVector bool
	MatchedFTS    bool
}

func slugify(s string) string {
	out := make([]rune, 0, len(s))
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			lastDash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
			lastDash = false
		default:
			if !lastDash && len(out) > 0 {
				out = append(out, '-')
				lastDash = true
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "section"
	}
	return string(out)
}
