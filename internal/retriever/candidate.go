package retriever

import (
	"strings"
	"time"
)

// Candidate is the shared "has-score, has-path, has-content" capability
// set (SPEC_FULL.md §9 design notes) implemented by every retrieval result
// variant. It is a tagged sum via interface + type switch, never an erased
// generic record.
type Candidate interface {
	CandidatePath() string
	CandidateContent() string
	CandidateScore() float64
}

// CodeExample is one code-exemplar result (§6.2): a file similar to the
// snippet under review.
type CodeExample struct {
	Path       string
	Language   string
	Content    string
	Similarity float64
}

func (c CodeExample) CandidatePath() string    { return c.Path }
func (c CodeExample) CandidateContent() string { return c.Content }
func (c CodeExample) CandidateScore() float64  { return c.Similarity }

// maxCodeContentLines truncates CodeExample.Content to this many lines
// (§6.2: "truncated content — lines capped — 300 for code").
const maxCodeContentLines = 300

// Guideline is one documentation-chunk result surviving the multi-signal
// re-ranker (§4.6 step 3).
type Guideline struct {
	Path          string
	Language      string
	Content       string
	Similarity    float64
	HeadingText   *string
	DocumentTitle string
}

func (g Guideline) CandidatePath() string    { return g.Path }
func (g Guideline) CandidateContent() string { return g.Content }
func (g Guideline) CandidateScore() float64  { return g.Similarity }

// maxGuidelineContentLines truncates Guideline.Content to this many lines
// (§6.2: "400 for guidelines").
const maxGuidelineContentLines = 400

// maxCommentBodyChars truncates PRComment.Body (§6.2: "body (<=500 chars)").
const maxCommentBodyChars = 500

// PRComment is one historically relevant human review comment (§6.2).
type PRComment struct {
	ID             string
	PRNumber       int
	Author         string
	Body           string
	FilePath       string
	CreatedAt      time.Time
	RelevanceScore float64
}

func (c PRComment) CandidatePath() string    { return c.FilePath }
func (c PRComment) CandidateContent() string { return c.Body }
func (c PRComment) CandidateScore() float64  { return c.RelevanceScore }

// ContextBundle is the final assembled retrieval result (§4.6 step 5).
type ContextBundle struct {
	CodeExamples []CodeExample
	Guidelines   []Guideline
	PRComments   []PRComment
	Metadata     BundleMetadata
}

// BundleMetadata carries the snippet-level facts the Reviewer needs
// alongside the three candidate lists.
type BundleMetadata struct {
	Language           string
	IsTestFile         bool
	PRContextAvailable bool
}

func truncateLines(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "\n")
}

func truncateChars(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
