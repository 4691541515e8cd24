package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/care-engine/care/internal/careerr"
	"github.com/care-engine/care/internal/classify"
	"github.com/care-engine/care/internal/embeddings"
	"github.com/care-engine/care/internal/logging"
	"github.com/care-engine/care/internal/markdown"
	"github.com/care-engine/care/internal/repository"
	"github.com/care-engine/care/internal/vectorstore"
)

// Options configures IndexProject (§4.5, §6.4).
type Options struct {
	// ProjectName labels the directory-structure record; defaults to
	// filepath.Base(rootDir).
	ProjectName string
	// ExcludePatterns are additional ignore globs combined with .gitignore.
	ExcludePatterns []string
	// RespectGitignore applies .gitignore rules during the walk. withDefaults
	// does not set it, so the zero value leaves .gitignore unconsulted; the
	// care index command sets it unless --no-gitignore is given.
	RespectGitignore bool
	// MaxTreeDepth bounds the rendered directory tree; defaults to 5.
	MaxTreeDepth int
	// BatchSizeMin/BatchSizeMax bound the adaptive embedding batch size
	// (default 64/256, per min(256, max(64, N/8))).
	BatchSizeMin int
	BatchSizeMax int
}

func (o Options) withDefaults() Options {
	if o.MaxTreeDepth <= 0 {
		o.MaxTreeDepth = 5
	}
	if o.BatchSizeMin <= 0 {
		o.BatchSizeMin = 64
	}
	if o.BatchSizeMax <= 0 {
		o.BatchSizeMax = 256
	}
	return o
}

// Summary reports one IndexProject run's outcome (§4.5).
type Summary struct {
	Processed []string
	Skipped   []string
	Excluded  []string
	Failed    []string
}

// Indexer implements the Indexer pipeline (§4.5).
type Indexer struct {
	store    vectorstore.Store
	embedder embeddings.Provider
	logger   *logging.Logger
}

// New constructs an Indexer over the given store and embedding provider. A
// nil logger falls back to a no-op logger.
func New(store vectorstore.Store, embedder embeddings.Provider, logger *logging.Logger) *Indexer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Indexer{store: store, embedder: embedder, logger: logger}
}

type readFile struct {
	candidate repository.FileCandidate
	content   string
	readErr   error
}

// IndexProject walks rootDir (or, when files is non-empty, the subset of
// rootDir named by files), embeds surviving content, and persists it (§4.5).
func (ix *Indexer) IndexProject(ctx context.Context, rootDir string, files []string, opts Options) (Summary, error) {
	opts = opts.withDefaults()
	projectPath := rootDir
	var summary Summary

	if err := ix.store.EnsureTables(ctx); err != nil {
		return summary, careerr.New(careerr.VectorStoreUnavailable, rootDir, err)
	}

	candidates, err := repository.Walk(ctx, rootDir, repository.WalkOptions{
		ExcludePatterns:  opts.ExcludePatterns,
		RespectGitignore: opts.RespectGitignore,
	})
	if err != nil {
		return summary, careerr.New(careerr.FileRead, rootDir, err)
	}

	if len(files) > 0 {
		allowed := make(map[string]bool, len(files))
		for _, f := range files {
			allowed[filepath.ToSlash(f)] = true
		}
		filtered := candidates[:0:0]
		for _, c := range candidates {
			if allowed[filepath.ToSlash(c.RelPath)] {
				filtered = append(filtered, c)
			} else {
				summary.Excluded = append(summary.Excluded, c.RelPath)
			}
		}
		candidates = filtered
	}

	ix.emitDirectoryStructure(ctx, rootDir, projectPath, opts, candidates)

	existingByPath, err := ix.loadExisting(ctx, projectPath)
	if err != nil {
		ix.logger.Warn(ctx, "failed to load existing file records", zap.Error(err))
	}

	var toRead []repository.FileCandidate
	for _, c := range candidates {
		if prior, ok := existingByPath[c.RelPath]; ok && !prior.LastModified.Before(c.ModTime) {
			summary.Skipped = append(summary.Skipped, c.RelPath)
			continue
		}
		toRead = append(toRead, c)
	}

	records, readSummary := ix.embedBatches(ctx, projectPath, toRead, existingByPath, opts)
	summary.Skipped = append(summary.Skipped, readSummary.Skipped...)
	summary.Failed = append(summary.Failed, readSummary.Failed...)
	summary.Processed = append(summary.Processed, readSummary.Processed...)

	if len(records) > 0 {
		upsertRecords := make([]vectorstore.Record, 0, len(records))
		for _, r := range records {
			upsertRecords = append(upsertRecords, r.ToRecord())
		}
		if err := ix.store.Upsert(ctx, vectorstore.TableFileEmbeddings, upsertRecords); err != nil {
			return summary, careerr.New(careerr.VectorStoreUnavailable, rootDir, err)
		}
	}

	ix.indexDocuments(ctx, projectPath, candidates, &summary)

	sort.Strings(summary.Processed)
	sort.Strings(summary.Skipped)
	sort.Strings(summary.Excluded)
	sort.Strings(summary.Failed)
	return summary, nil
}

// emitDirectoryStructure renders and upserts the single per-project tree
// record (§4.5 step 2). Failure is logged, never fatal.
func (ix *Indexer) emitDirectoryStructure(ctx context.Context, rootDir, projectPath string, opts Options, candidates []repository.FileCandidate) {
	projectName := opts.ProjectName
	if projectName == "" {
		projectName = filepath.Base(rootDir)
	}
	tree := renderTree(candidates, opts.MaxTreeDepth)
	rec := vectorstore.NewDirectoryStructureRecord(projectName, projectPath, tree, time.Now(), nil)
	if err := ix.store.Upsert(ctx, vectorstore.TableDirectory, []vectorstore.Record{rec.ToRecord()}); err != nil {
		ix.logger.Warn(ctx, "failed to upsert directory structure record", zap.Error(err))
	}
}

// loadExisting performs the pre-filter's single bulk query (§4.5 step 3).
func (ix *Indexer) loadExisting(ctx context.Context, projectPath string) (map[string]vectorstore.FileEmbeddingRecord, error) {
	existingByPath := make(map[string]vectorstore.FileEmbeddingRecord)
	recs, err := ix.store.ListByProject(ctx, vectorstore.TableFileEmbeddings, projectPath)
	if err != nil {
		return existingByPath, err
	}
	for _, rec := range recs {
		fe, ferr := vectorstore.FileEmbeddingFromRecord(rec)
		if ferr != nil {
			continue
		}
		existingByPath[fe.Path] = fe
	}
	return existingByPath, nil
}

// batchSize implements the adaptive batch-size formula min(256, max(64, N/8)).
func batchSize(n, floor, ceiling int) int {
	size := n / 8
	if size < floor {
		size = floor
	}
	if size > ceiling {
		size = ceiling
	}
	return size
}

// embedBatches reads, hashes, and embeds the surviving candidates in
// adaptively-sized batches, applying the second-chance content-hash skip
// (§4.5 step 4).
func (ix *Indexer) embedBatches(ctx context.Context, projectPath string, toRead []repository.FileCandidate, existingByPath map[string]vectorstore.FileEmbeddingRecord, opts Options) ([]vectorstore.FileEmbeddingRecord, Summary) {
	var out []vectorstore.FileEmbeddingRecord
	var summary Summary
	if len(toRead) == 0 {
		return out, summary
	}

	size := batchSize(len(toRead), opts.BatchSizeMin, opts.BatchSizeMax)
	for start := 0; start < len(toRead); start += size {
		end := start + size
		if end > len(toRead) {
			end = len(toRead)
		}
		batch := make([]readFile, end-start)
		for i, c := range toRead[start:end] {
			data, rerr := os.ReadFile(c.AbsPath)
			batch[i] = readFile{candidate: c, readErr: rerr}
			if rerr == nil {
				batch[i].content = string(data)
			}
		}

		var pendingIdx []int
		var pendingTexts []string
		for i, rf := range batch {
			if rf.readErr != nil {
				summary.Failed = append(summary.Failed, rf.candidate.RelPath)
				continue
			}
			hash := vectorstore.ContentHash8(rf.content)
			if prior, ok := existingByPath[rf.candidate.RelPath]; ok && prior.ContentHash == hash {
				summary.Skipped = append(summary.Skipped, rf.candidate.RelPath)
				continue
			}
			pendingIdx = append(pendingIdx, i)
			pendingTexts = append(pendingTexts, rf.content)
		}
		if len(pendingTexts) == 0 {
			continue
		}

		vectors, err := ix.embedder.EmbedBatch(ctx, pendingTexts)
		if err != nil {
			for _, i := range pendingIdx {
				summary.Failed = append(summary.Failed, batch[i].candidate.RelPath)
			}
			ix.logger.Warn(ctx, "batch embedding failed", zap.Error(err), zap.Int("batchSize", len(pendingTexts)))
			continue
		}

		for j, i := range pendingIdx {
			c := batch[i].candidate
			rec := vectorstore.NewFileEmbeddingRecord(
				c.RelPath,
				projectPath,
				filepath.Base(c.RelPath),
				classify.Language(c.RelPath),
				batch[i].content,
				c.ModTime,
				[]float32(vectors[j]),
			)
			out = append(out, rec)
			summary.Processed = append(summary.Processed, c.RelPath)
		}
	}
	return out, summary
}

// docState is the per-document (LastModified, DocumentContentHash) pair
// carried identically by every chunk of that document, used to mtime/hash
// gate the documents phase the same way step 4 gates code files.
type docState struct {
	lastModified time.Time
	contentHash  string
}

// loadExistingDocs mirrors loadExisting for the document-chunks table: one
// bulk query, grouped by OriginalDocumentPath (§4.5's "at most one bulk DB
// query" performance contract extends to the documents phase too).
func (ix *Indexer) loadExistingDocs(ctx context.Context, projectPath string) (map[string]docState, error) {
	existing := make(map[string]docState)
	recs, err := ix.store.ListByProject(ctx, vectorstore.TableDocumentChunks, projectPath)
	if err != nil {
		return existing, err
	}
	for _, rec := range recs {
		ch, cerr := vectorstore.DocumentChunkFromRecord(rec)
		if cerr != nil {
			continue
		}
		existing[ch.OriginalDocumentPath] = docState{lastModified: ch.LastModified, contentHash: ch.DocumentContentHash}
	}
	return existing, nil
}

// indexDocuments implements §4.5 step 6: chunk, embed, and upsert every
// documentation-classified candidate whose mtime or content hash changed
// since the last run, after first deleting its prior chunks. Unchanged
// documents are skipped without reading (mtime gate) or without
// re-chunking/re-embedding (content-hash second chance), matching the
// code-file pre-filter at step 3/4 and testable property #3.
func (ix *Indexer) indexDocuments(ctx context.Context, projectPath string, candidates []repository.FileCandidate, summary *Summary) {
	existingByPath, err := ix.loadExistingDocs(ctx, projectPath)
	if err != nil {
		ix.logger.Warn(ctx, "failed to load existing document chunk records", zap.Error(err))
	}

	for _, c := range candidates {
		if !classify.IsDocumentationFile(c.RelPath) {
			continue
		}

		if prior, ok := existingByPath[c.RelPath]; ok && !prior.lastModified.Before(c.ModTime) {
			summary.Skipped = append(summary.Skipped, c.RelPath)
			continue
		}

		data, rerr := os.ReadFile(c.AbsPath)
		if rerr != nil {
			summary.Failed = append(summary.Failed, c.RelPath)
			continue
		}
		content := string(data)

		docHash := vectorstore.ContentHash8(content)
		if prior, ok := existingByPath[c.RelPath]; ok && prior.contentHash == docHash {
			summary.Skipped = append(summary.Skipped, c.RelPath)
			continue
		}

		chunks := markdown.ChunkDocument(c.RelPath, content)
		if len(chunks) == 0 {
			continue
		}

		language := classify.Language(c.RelPath)
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Content
		}
		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			summary.Failed = append(summary.Failed, c.RelPath)
			ix.logger.Warn(ctx, "document chunk embedding failed", zap.String("path", c.RelPath), zap.Error(err))
			continue
		}

		if _, err := ix.store.DeleteWhere(ctx, vectorstore.TableDocumentChunks, vectorstore.ByIDPrefix(c.RelPath+"#")); err != nil {
			ix.logger.Warn(ctx, "failed to delete prior chunks", zap.String("path", c.RelPath), zap.Error(err))
		}

		recs := make([]vectorstore.Record, 0, len(chunks))
		for i, ch := range chunks {
			rec := vectorstore.NewDocumentChunkRecord(
				c.RelPath,
				projectPath,
				ch.HeadingText,
				ch.DocumentTitle,
				language,
				ch.StartLine,
				ch.Content,
				docHash,
				c.ModTime,
				[]float32(vectors[i]),
			)
			recs = append(recs, rec.ToRecord())
		}
		if err := ix.store.Upsert(ctx, vectorstore.TableDocumentChunks, recs); err != nil {
			ix.logger.Warn(ctx, "failed to upsert document chunks", zap.String("path", c.RelPath), zap.Error(err))
			continue
		}
		summary.Processed = append(summary.Processed, fmt.Sprintf("%s (%d chunks)", c.RelPath, len(chunks)))
	}
}
