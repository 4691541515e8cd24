package retriever

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/care-engine/care/internal/classify"
	"github.com/care-engine/care/internal/config"
	"github.com/care-engine/care/internal/contextinfer"
	"github.com/care-engine/care/internal/embedcache"
	"github.com/care-engine/care/internal/embeddings"
	"github.com/care-engine/care/internal/logging"
	"github.com/care-engine/care/internal/vectorstore"
)

// snippetPassageChars bounds the snippet text embedded for H1 relevance
// (§4.6 step 1: "first 10,000 chars").
const snippetPassageChars = 10000

// topDocuments is the number of surviving documents the re-ranker returns
// (§4.6 step 3: "top 4 surviving documents").
const topDocuments = 4

// Options configures GetContext (§6.4).
type Options struct {
	// ProjectPath roots project-isolation filtering; defaults to the
	// current working directory when empty.
	ProjectPath string
	// IsTestFile overrides the Glossary-derived test-file detection.
	IsTestFile *bool
	// IncludeProjectStructure is accepted for interface completeness with
	// §6.4; the directory-structure record is never part of a code-search
	// bundle's three channels, so it has no effect on GetContext's output.
	IncludeProjectStructure bool
}

// Retriever implements the Context Retriever (§4.6): given a file path and
// its content, it runs three parallel retrieval streams against the Vector
// Store, re-ranks the documentation stream, and assembles a ContextBundle.
type Retriever struct {
	store    vectorstore.Store
	embedder embeddings.Provider
	cache    *embedcache.Cache
	logger   *logging.Logger
	cfg      config.RetrieverConfig

	snippetGroup singleflight.Group
}

// New constructs a Retriever. A nil logger falls back to a no-op logger.
func New(store vectorstore.Store, embedder embeddings.Provider, cache *embedcache.Cache, logger *logging.Logger, cfg config.RetrieverConfig) *Retriever {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Retriever{store: store, embedder: embedder, cache: cache, logger: logger, cfg: cfg}
}

// snippetEmbeddings holds the three embeddings computed once per GetContext
// call (§4.6 step 1), any of which may be nil in degraded mode.
type snippetEmbeddings struct {
	passage       embeddings.Vector // first snippetPassageChars, H1 relevance only
	query         embeddings.Vector // snippet (or testing-augmented) query embedding
	guidelineText string
	guideline     embeddings.Vector
}

// GetContext assembles a ContextBundle for the given file (§4.6). It never
// returns an error for degraded sub-operations (embedding failures, branch
// failures) — those downgrade the corresponding output instead.
func (r *Retriever) GetContext(ctx context.Context, filePath, content string, opts Options) (ContextBundle, error) {
	projectPath := opts.ProjectPath
	if projectPath == "" {
		projectPath = "."
	}

	language := classify.Language(filePath)
	isTestFile := classify.IsTestFile(filePath)
	if opts.IsTestFile != nil {
		isTestFile = *opts.IsTestFile
	}

	reviewedCtx := contextinfer.InferContext(filePath, "", []string{content}, language)

	se := r.computeSnippetEmbeddings(ctx, content, language, isTestFile)

	var (
		prComments  []PRComment
		guidelines  []Guideline
		codeExamples []CodeExample
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		comments, err := r.retrievePRComments(gctx, projectPath, se.query, isTestFile)
		if err != nil {
			r.logger.Warn(ctx, "pr comment retrieval branch failed, degrading to empty", zap.Error(err))
			return nil
		}
		prComments = comments
		return nil
	})

	g.Go(func() error {
		gl, err := r.retrieveGuidelines(gctx, projectPath, se, reviewedCtx)
		if err != nil {
			r.logger.Warn(ctx, "documentation retrieval branch failed, degrading to empty", zap.Error(err))
			return nil
		}
		guidelines = gl
		return nil
	})

	g.Go(func() error {
		examples, err := r.retrieveCodeExemplars(gctx, projectPath, filePath, se.query, isTestFile)
		if err != nil {
			r.logger.Warn(ctx, "code exemplar retrieval branch failed, degrading to empty", zap.Error(err))
			return nil
		}
		codeExamples = examples
		return nil
	})

	// Per §4.6 "Failure semantics": branch failures never fail the overall
	// operation. Every branch returns nil, so g.Wait never reports an error;
	// a cancelled ctx shows up only as branches that degraded to empty.
	_ = g.Wait()

	bundle := ContextBundle{
		CodeExamples: codeExamples,
		Guidelines:   guidelines,
		PRComments:   capComments(prComments, r.cfg.MaxComments),
		Metadata: BundleMetadata{
			Language:           language,
			IsTestFile:         isTestFile,
			PRContextAvailable: len(prComments) > 0,
		},
	}
	return bundle, nil
}

// computeSnippetEmbeddings implements §4.6 step 1, coalescing concurrent
// callers of the same snippet onto one embedding computation (§5) and
// memoising results in the embedding cache.
func (r *Retriever) computeSnippetEmbeddings(ctx context.Context, content, language string, isTestFile bool) snippetEmbeddings {
	var se snippetEmbeddings
	se.guidelineText = guidelineQuery(language, isTestFile)

	passageText := truncateChars(content, snippetPassageChars)
	se.passage = r.embedPassageCoalesced(ctx, passageText)

	queryText := content
	if isTestFile {
		queryText = testingAugmentedQuery(content)
	}
	se.query = r.embedQueryCoalesced(ctx, queryText)
	se.guideline = r.embedQueryCoalesced(ctx, se.guidelineText)
	return se
}

func (r *Retriever) embedPassageCoalesced(ctx context.Context, text string) embeddings.Vector {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	key := vectorstore.ContentHash8(text)
	if v, ok := r.cache.GetPassage(key); ok {
		return v
	}
	v, err, _ := r.snippetGroup.Do("passage:"+key, func() (interface{}, error) {
		return r.embedder.EmbedPassage(ctx, text)
	})
	if err != nil {
		r.logger.Warn(ctx, "snippet passage embedding failed, degrading", zap.Error(err))
		return nil
	}
	vec, _ := v.(embeddings.Vector)
	if vec != nil {
		r.cache.PutPassage(key, vec)
	}
	return vec
}

func (r *Retriever) embedQueryCoalesced(ctx context.Context, text string) embeddings.Vector {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if v, ok := r.cache.GetQuery(text); ok {
		return v
	}
	v, err, _ := r.snippetGroup.Do("query:"+text, func() (interface{}, error) {
		return r.embedder.EmbedQuery(ctx, text)
	})
	if err != nil {
		r.logger.Warn(ctx, "snippet query embedding failed, degrading", zap.Error(err))
		return nil
	}
	vec, _ := v.(embeddings.Vector)
	if vec != nil {
		r.cache.PutQuery(text, vec)
	}
	return vec
}

// guidelineQuery synthesises the guideline query string (§4.6 step 1).
func guidelineQuery(language string, isTestFile bool) string {
	if isTestFile {
		return fmt.Sprintf("Retrieve technical documentation, testing conventions, and patterns relevant to testing this %s snippet.", language)
	}
	return fmt.Sprintf("Retrieve technical documentation, guidelines, and conventions relevant to this %s snippet.", language)
}

// testingAugmentedQuery widens the snippet query for test files so the
// code-exemplar and comment branches favour testing-pattern matches (§4.6
// step 1).
func testingAugmentedQuery(content string) string {
	return "Testing patterns and conventions for: " + content
}

// retrievePRComments implements the PR-comment branch (§4.6 step 2), bounded
// by the configured timeout.
func (r *Retriever) retrievePRComments(ctx context.Context, projectPath string, queryVec embeddings.Vector, isTestFile bool) ([]PRComment, error) {
	timeout := r.cfg.PRTimeout.Duration()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	q := vectorstore.Query{
		ProjectPath: projectPath,
		Vector:      []float32(queryVec),
		K:           r.cfg.MaxComments,
	}
	rows, err := r.store.Search(ctx, vectorstore.TablePRComments, q)
	if err != nil {
		return nil, err
	}

	floor := r.cfg.PRSimilarityThreshold
	out := make([]PRComment, 0, len(rows))
	for _, row := range rows {
		if row.Score < floor {
			continue
		}
		rec, err := vectorstore.PRCommentFromRecord(row.Record)
		if err != nil {
			continue
		}
		filePath := ""
		if rec.FilePath != nil {
			filePath = *rec.FilePath
		}
		if filePath != "" && classify.IsTestFile(filePath) != isTestFile {
			continue
		}
		body := truncateChars(rec.CommentText, maxCommentBodyChars)
		out = append(out, PRComment{
			ID:             rec.ID,
			PRNumber:       rec.PRNumber,
			Author:         rec.Author,
			Body:           body,
			FilePath:       filePath,
			CreatedAt:      rec.CreatedAt,
			RelevanceScore: row.Score,
		})
	}
	return out, nil
}

// retrieveGuidelines implements the documentation branch and its re-ranker
// (§4.6 steps 2-3).
func (r *Retriever) retrieveGuidelines(ctx context.Context, projectPath string, se snippetEmbeddings, reviewedCtx contextinfer.InferredContext) ([]Guideline, error) {
	q := vectorstore.Query{
		ProjectPath: projectPath,
		Text:        se.guidelineText,
		Vector:      []float32(se.guideline),
		K:           r.cfg.MaxDocCandidates,
	}
	rows, err := r.store.Search(ctx, vectorstore.TableDocumentChunks, q)
	if err != nil {
		return nil, err
	}

	floor := r.cfg.DocFloor
	chunks := make([]docChunkCandidate, 0, len(rows))
	for _, row := range rows {
		if row.Score < floor {
			continue
		}
		rec, err := vectorstore.DocumentChunkFromRecord(row.Record)
		if err != nil {
			continue
		}
		docCtx := r.documentContext(rec.OriginalDocumentPath, rec.DocumentTitle, rec.Content, rec.Language)
		chunks = append(chunks, docChunkCandidate{
			path:          rec.OriginalDocumentPath,
			headingText:   rec.HeadingText,
			documentTitle: rec.DocumentTitle,
			language:      rec.Language,
			content:       rec.Content,
			score:         row.Score,
			area:          docCtx.Area,
			dominantTech:  docCtx.DominantTech,
			isReadmeStyle: docCtx.IsGeneralPurposeReadmeStyle,
		})
	}

	h1Relevance := func(title string) float64 {
		if len(se.passage) == 0 || title == "" {
			return 0
		}
		h1Vec := r.h1Embedding(ctx, title)
		if len(h1Vec) == 0 {
			return 0
		}
		return cosineSimilarity(se.passage, h1Vec)
	}

	ranked := rerankDocuments(chunks, reviewedCtx.Area, reviewedCtx.DominantTech, h1Relevance, r.cfg.Weights, topDocuments)

	out := make([]Guideline, 0, len(ranked))
	for _, rd := range ranked {
		out = append(out, Guideline{
			Path:          rd.bestChunk.path,
			Language:      rd.bestChunk.language,
			Content:       truncateLines(rd.bestChunk.content, maxGuidelineContentLines),
			Similarity:    rd.score,
			HeadingText:   rd.bestChunk.headingText,
			DocumentTitle: rd.bestChunk.documentTitle,
		})
	}
	return out, nil
}

// documentContext infers (and memoises) the {area, dominantTech, keywords,
// isReadmeStyle} tag for a document chunk (§4.4), keyed on (path, title).
func (r *Retriever) documentContext(path, title, sample, language string) contextinfer.InferredContext {
	key := path + "#" + vectorstore.ContentHash8(title)
	if v, ok := r.cache.GetContext(key); ok {
		if ic, ok := v.(contextinfer.InferredContext); ok {
			return ic
		}
	}
	ic := contextinfer.InferContext(path, title, []string{sample}, language)
	r.cache.PutContext(key, ic)
	return ic
}

// h1Embedding embeds (and caches) a document's H1 title for the h1Relevance
// signal (§4.6 step 3).
func (r *Retriever) h1Embedding(ctx context.Context, title string) embeddings.Vector {
	if v, ok := r.cache.GetH1(title); ok {
		return v
	}
	v, err := r.embedder.EmbedPassage(ctx, title)
	if err != nil || len(v) == 0 {
		return nil
	}
	r.cache.PutH1(title, v)
	return v
}

// retrieveCodeExemplars implements the code-exemplar branch and its
// post-processing (§4.6 steps 2, 4).
func (r *Retriever) retrieveCodeExemplars(ctx context.Context, projectPath, reviewedPath string, queryVec embeddings.Vector, isTestFile bool) ([]CodeExample, error) {
	selfRel := normalizeRelPath(reviewedPath, projectPath)
	selfAbs := filepath.Clean(filepath.Join(projectPath, selfRel))

	filter := vectorstore.Predicate(func(rec vectorstore.Record) bool {
		path, _ := rec.Metadata["path"].(string)
		if path == "" {
			return true
		}
		if normalizeRelPath(path, projectPath) == selfRel {
			return false
		}
		if filepath.Clean(filepath.Join(projectPath, path)) == selfAbs {
			return false
		}
		if classify.IsDocumentationFile(path) {
			return false
		}
		return classify.IsTestFile(path) == isTestFile
	})

	q := vectorstore.Query{
		ProjectPath: projectPath,
		Vector:      []float32(queryVec),
		K:           r.cfg.MaxCodeCandidates,
		Filter:      filter,
	}
	rows, err := r.store.Search(ctx, vectorstore.TableFileEmbeddings, q)
	if err != nil {
		return nil, err
	}

	floor := r.cfg.CodeFloor
	byPath := make(map[string]CodeExample)
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Score < floor {
			continue
		}
		rec, err := vectorstore.FileEmbeddingFromRecord(row.Record)
		if err != nil {
			continue
		}
		if existing, ok := byPath[rec.Path]; !ok || row.Score > existing.Similarity {
			if !ok {
				order = append(order, rec.Path)
			}
			byPath[rec.Path] = CodeExample{
				Path:       rec.Path,
				Language:   rec.Language,
				Content:    truncateLines(rec.Content, maxCodeContentLines),
				Similarity: row.Score,
			}
		}
	}

	out := make([]CodeExample, 0, len(order))
	for _, p := range order {
		out = append(out, byPath[p])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	const maxCodeExamples = 8
	if len(out) > maxCodeExamples {
		out = out[:maxCodeExamples]
	}
	return out, nil
}

// normalizeRelPath resolves path to a project-relative, slash-normalised
// form regardless of how the caller spelled it (absolute, relative, with or
// without a trailing slash), per testable property #9.
func normalizeRelPath(path, projectPath string) string {
	p := filepath.ToSlash(strings.TrimSuffix(path, "/"))
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(filepath.ToSlash(projectPath), p)
		if err == nil {
			p = filepath.ToSlash(rel)
		}
	}
	return filepath.Clean(p)
}

func capComments(comments []PRComment, max int) []PRComment {
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].RelevanceScore > comments[j].RelevanceScore })
	if max > 0 && len(comments) > max {
		comments = comments[:max]
	}
	return comments
}
