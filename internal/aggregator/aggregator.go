package aggregator

import (
	"context"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/care-engine/care/internal/config"
	"github.com/care-engine/care/internal/logging"
	"github.com/care-engine/care/internal/retriever"
)

// PRFile is one file touched by a pull request, the Aggregator's unit of
// work (§4.7).
type PRFile struct {
	Path    string
	Content string
}

// UnifiedBundle is the merged, deduplicated, capped result of fanning
// GetContext out across every PRFile (§4.7).
type UnifiedBundle struct {
	CodeExamples []retriever.CodeExample
	Guidelines   []retriever.Guideline
	PRComments   []retriever.PRComment
}

// Aggregator implements GatherUnifiedContextForPR over a Retriever.
type Aggregator struct {
	retriever *retriever.Retriever
	cfg       config.AggregatorConfig
	logger    *logging.Logger
}

// New constructs an Aggregator. A nil logger falls back to a no-op logger.
func New(r *retriever.Retriever, cfg config.AggregatorConfig, logger *logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aggregator{retriever: r, cfg: cfg, logger: logger}
}

// GatherUnifiedContextForPR invokes GetContext once per file, bounded to
// MaxParallelism concurrent calls (default runtime.NumCPU()), and merges
// the three channels keeping the maximum score on any key collision (§4.7).
// It never modifies files.
func (a *Aggregator) GatherUnifiedContextForPR(ctx context.Context, files []PRFile, opts retriever.Options) (UnifiedBundle, error) {
	parallelism := a.cfg.MaxParallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	bundles := make([]retriever.ContextBundle, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			b, err := a.retriever.GetContext(gctx, f.Path, f.Content, opts)
			if err != nil {
				// GetContext itself never fails on branch degradation; a
				// non-nil error here means the overall call context was
				// cancelled. Log and leave this file's bundle empty rather
				// than aborting every other in-flight file.
				a.logger.Warn(ctx, "per-file context retrieval failed", zap.String("path", f.Path), zap.Error(err))
				return nil
			}
			bundles[i] = b
			return nil
		})
	}
	_ = g.Wait()

	merged := mergeBundles(bundles)
	merged.CodeExamples = capCodeExamples(merged.CodeExamples, a.cfg.MaxCodeExamples)
	merged.Guidelines = capGuidelines(merged.Guidelines, a.cfg.MaxGuidelines)
	merged.PRComments = capPRComments(merged.PRComments, a.cfg.MaxComments)
	return merged, nil
}

// mergeBundles merges every per-file bundle's three channels into three
// maps keyed by path, (path, headingText), and commentId respectively,
// keeping the maximum score on collision (§4.7).
func mergeBundles(bundles []retriever.ContextBundle) UnifiedBundle {
	codeByPath := make(map[string]retriever.CodeExample)
	var codeOrder []string
	guidelineByKey := make(map[string]retriever.Guideline)
	var guidelineOrder []string
	commentByID := make(map[string]retriever.PRComment)
	var commentOrder []string

	for _, b := range bundles {
		for _, c := range b.CodeExamples {
			existing, ok := codeByPath[c.Path]
			if !ok {
				codeOrder = append(codeOrder, c.Path)
			}
			if !ok || c.Similarity > existing.Similarity {
				codeByPath[c.Path] = c
			}
		}
		for _, gl := range b.Guidelines {
			key := guidelineKey(gl)
			existing, ok := guidelineByKey[key]
			if !ok {
				guidelineOrder = append(guidelineOrder, key)
			}
			if !ok || gl.Similarity > existing.Similarity {
				guidelineByKey[key] = gl
			}
		}
		for _, pc := range b.PRComments {
			existing, ok := commentByID[pc.ID]
			if !ok {
				commentOrder = append(commentOrder, pc.ID)
			}
			if !ok || pc.RelevanceScore > existing.RelevanceScore {
				commentByID[pc.ID] = pc
			}
		}
	}

	code := make([]retriever.CodeExample, 0, len(codeOrder))
	for _, p := range codeOrder {
		code = append(code, codeByPath[p])
	}
	guidelines := make([]retriever.Guideline, 0, len(guidelineOrder))
	for _, k := range guidelineOrder {
		guidelines = append(guidelines, guidelineByKey[k])
	}
	comments := make([]retriever.PRComment, 0, len(commentOrder))
	for _, id := range commentOrder {
		comments = append(comments, commentByID[id])
	}

	return UnifiedBundle{CodeExamples: code, Guidelines: guidelines, PRComments: comments}
}

func guidelineKey(g retriever.Guideline) string {
	heading := ""
	if g.HeadingText != nil {
		heading = *g.HeadingText
	}
	return g.Path + "\x00" + heading
}

func capCodeExamples(items []retriever.CodeExample, max int) []retriever.CodeExample {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Similarity > items[j].Similarity })
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return items
}

func capGuidelines(items []retriever.Guideline, max int) []retriever.Guideline {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Similarity > items[j].Similarity })
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return items
}

func capPRComments(items []retriever.PRComment, max int) []retriever.PRComment {
	sort.SliceStable(items, func(i, j int) bool { return items[i].RelevanceScore > items[j].RelevanceScore })
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return items
}
