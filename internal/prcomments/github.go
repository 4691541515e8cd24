package prcomments

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/care-engine/care/internal/config"
)

// NewGitHubClient builds an authenticated go-github client from a bearer
// token (§6.3: the PR platform is an external collaborator; this is the
// thin construction helper a caller uses to fetch comments before handing
// them to Ingester.ToRecord).
func NewGitHubClient(ctx context.Context, token config.Secret) (*github.Client, error) {
	if !token.IsSet() {
		return nil, fmt.Errorf("github token not set")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
	return github.NewClient(oauth2.NewClient(ctx, ts)), nil
}

// FetchReviewComments lists every review comment on a pull request and
// adapts each into an Input ready for Ingester.ToRecord. Pagination is
// followed to completion; the caller supplies a client built by
// NewGitHubClient (or any equivalent *github.Client).
func FetchReviewComments(ctx context.Context, client *github.Client, owner, repo string, prNumber int) ([]Input, error) {
	repoSlug := owner + "/" + repo
	var inputs []Input
	opts := &github.PullRequestListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		comments, resp, err := client.PullRequests.ListComments(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return inputs, fmt.Errorf("listing review comments for %s#%d: %w", repoSlug, prNumber, err)
		}
		for _, c := range comments {
			inputs = append(inputs, FromGitHubReviewComment(repoSlug, prNumber, c))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return inputs, nil
}

// FromGitHubReviewComment adapts a go-github pull-request review comment
// into an Input, using the library's nil-safe Get* accessors throughout so a
// partially populated payload never panics. It performs no sentiment
// scoring or categorisation — IssueCategory, Severity, and PatternTags are
// left zero-valued for the caller to fill in if it runs its own
// classification pass.
func FromGitHubReviewComment(repo string, prNumber int, c *github.PullRequestComment) Input {
	if c == nil {
		return Input{Repository: repo, PRNumber: prNumber, CommentType: "review_comment"}
	}

	in := Input{
		Repository:  repo,
		PRNumber:    prNumber,
		CommentType: "review_comment",
		CommentText: c.GetBody(),
		DiffHunk:    c.GetDiffHunk(),
		Author:      c.GetUser().GetLogin(),
		CreatedAt:   c.GetCreatedAt().Time,
		UpdatedAt:   c.GetUpdatedAt().Time,
		ReviewID:    formatID(c.GetPullRequestReviewID()),
	}

	if c.ID != nil {
		in.ID = formatID(c.GetID())
	}
	if c.Path != nil {
		path := c.GetPath()
		in.FilePath = &path
	}
	if c.Line != nil {
		line := c.GetLine()
		in.LineNumber = &line
	}
	if c.StartLine != nil && c.Line != nil {
		start := c.GetStartLine()
		end := c.GetLine()
		in.LineRangeStart = &start
		in.LineRangeEnd = &end
	}

	return in
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
