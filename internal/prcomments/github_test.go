package prcomments

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/care-engine/care/internal/config"
)

func TestFromGitHubReviewCommentNilPayload(t *testing.T) {
	in := FromGitHubReviewComment("acme/widgets", 42, nil)

	assert.Equal(t, "acme/widgets", in.Repository)
	assert.Equal(t, 42, in.PRNumber)
	assert.Equal(t, "review_comment", in.CommentType)
	assert.Empty(t, in.ID)
}

func TestFromGitHubReviewCommentMapsFields(t *testing.T) {
	now := time.Now()
	path := "pkg/widget/widget.go"
	c := &github.PullRequestComment{
		ID:        github.Int64(987),
		Body:      github.String("please add a nil check"),
		DiffHunk:  github.String("@@ -1,2 +1,2 @@"),
		Path:      github.String(path),
		Line:      github.Int(12),
		StartLine: github.Int(10),
		User:      &github.User{Login: github.String("reviewer1")},
		CreatedAt: &github.Timestamp{Time: now},
		UpdatedAt: &github.Timestamp{Time: now},
	}

	in := FromGitHubReviewComment("acme/widgets", 42, c)

	assert.Equal(t, "987", in.ID)
	assert.Equal(t, "please add a nil check", in.CommentText)
	require.NotNil(t, in.FilePath)
	assert.Equal(t, path, *in.FilePath)
	require.NotNil(t, in.LineNumber)
	assert.Equal(t, 12, *in.LineNumber)
	require.NotNil(t, in.LineRangeStart)
	require.NotNil(t, in.LineRangeEnd)
	assert.Equal(t, 10, *in.LineRangeStart)
	assert.Equal(t, 12, *in.LineRangeEnd)
}

func TestNewGitHubClientRequiresToken(t *testing.T) {
	_, err := NewGitHubClient(context.Background(), config.Secret(""))

	require.Error(t, err)
}

func TestNewGitHubClientBuildsWithToken(t *testing.T) {
	client, err := NewGitHubClient(context.Background(), config.Secret("ghp_test123"))

	require.NoError(t, err)
	assert.NotNil(t, client)
}
