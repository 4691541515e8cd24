package prcomments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/care-engine/care/internal/embeddings"
	"github.com/care-engine/care/internal/vectorstore"
)

// ErrEmptyCommentText is returned when Input.CommentText is blank; every
// PR-Comment record requires non-empty text to embed (§3 invariant:
// combinedEmbedding non-null).
var ErrEmptyCommentText = errors.New("comment text is required")

// Input is the caller-supplied comment payload (§6.3): the engine requires
// only CommentText plus whatever code context is available, and computes
// the three embeddings itself.
type Input struct {
	ID              string
	PRNumber        int
	Repository      string
	CommentType     string
	CommentText     string
	FilePath        *string
	LineNumber      *int
	LineRangeStart  *int
	LineRangeEnd    *int
	OriginalCode    string
	SuggestedCode   string
	DiffHunk        string
	Author          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ReviewID        string
	ReviewState     string
	IssueCategory   string
	Severity        string
	PatternTags     []string
}

// Ingester turns Input payloads into persistable PRCommentRecords by
// computing the comment, code, and combined embeddings (§3, §6.3).
type Ingester struct {
	embedder embeddings.Provider
}

// New constructs an Ingester over the given embedding provider.
func New(embedder embeddings.Provider) *Ingester {
	return &Ingester{embedder: embedder}
}

// ToRecord computes CommentEmbedding, the optional CodeEmbedding, and the
// required CombinedEmbedding, then assembles a PRCommentRecord (§3). It
// performs no scoring of user sentiment or auto-resolve decisions — those
// are outside the core.
func (ing *Ingester) ToRecord(ctx context.Context, projectPath string, in Input) (vectorstore.PRCommentRecord, error) {
	if strings.TrimSpace(in.CommentText) == "" {
		return vectorstore.PRCommentRecord{}, ErrEmptyCommentText
	}

	commentEmbedding, err := ing.embedder.EmbedPassage(ctx, in.CommentText)
	if err != nil {
		return vectorstore.PRCommentRecord{}, fmt.Errorf("embedding comment text: %w", err)
	}

	codeText := strings.TrimSpace(strings.Join(nonEmpty(in.OriginalCode, in.SuggestedCode, in.DiffHunk), "\n\n"))
	var codeEmbedding embeddings.Vector
	if codeText != "" {
		codeEmbedding, err = ing.embedder.EmbedPassage(ctx, codeText)
		if err != nil {
			return vectorstore.PRCommentRecord{}, fmt.Errorf("embedding code context: %w", err)
		}
	}

	combinedText := strings.TrimSpace(strings.Join(nonEmpty(in.CommentText, codeText), "\n\n"))
	combinedEmbedding, err := ing.embedder.EmbedPassage(ctx, combinedText)
	if err != nil {
		return vectorstore.PRCommentRecord{}, fmt.Errorf("embedding combined text: %w", err)
	}
	if len(combinedEmbedding) == 0 {
		return vectorstore.PRCommentRecord{}, fmt.Errorf("%w: combined embedding came back empty", ErrEmptyCommentText)
	}

	id := in.ID
	if strings.TrimSpace(id) == "" {
		// The PR platform does not always assign a stable comment ID up
		// front (e.g. a freshly drafted review comment); synthesize one
		// so (repository, prNumber, id) stays unique (§3 invariant).
		id = uuid.NewString()
	}
	rec := vectorstore.NewPRCommentRecord(id, in.PRNumber, in.Repository, projectPath)
	rec.CommentType = in.CommentType
	rec.CommentText = in.CommentText
	rec.FilePath = in.FilePath
	rec.LineNumber = in.LineNumber
	rec.LineRangeStart = in.LineRangeStart
	rec.LineRangeEnd = in.LineRangeEnd
	rec.OriginalCode = in.OriginalCode
	rec.SuggestedCode = in.SuggestedCode
	rec.DiffHunk = in.DiffHunk
	rec.Author = in.Author
	rec.CreatedAt = in.CreatedAt
	rec.UpdatedAt = in.UpdatedAt
	rec.ReviewID = in.ReviewID
	rec.ReviewState = in.ReviewState
	rec.IssueCategory = in.IssueCategory
	rec.Severity = in.Severity
	rec.PatternTags = in.PatternTags
	rec.CommentEmbedding = commentEmbedding
	rec.CodeEmbedding = codeEmbedding
	rec.CombinedEmbedding = combinedEmbedding
	return rec, nil
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
