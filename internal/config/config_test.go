package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 384, cfg.VectorStore.VectorDim)
	assert.Equal(t, 1000, cfg.VectorStore.IVFFlatThreshold)
	assert.Equal(t, 10000, cfg.VectorStore.IVFPQThreshold)
	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
	assert.Equal(t, 50, cfg.Retriever.MaxComments)
	assert.InDelta(t, 0.3, cfg.Retriever.PRSimilarityThreshold, 1e-9)
	assert.Equal(t, 0.6, cfg.Retriever.Weights.ContextMatch)
}

func TestValidateRejectsBadDimension(t *testing.T) {
	cfg := Load()
	cfg.VectorStore.VectorDim = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := Load()
	cfg.VectorStore.IVFPQThreshold = cfg.VectorStore.IVFFlatThreshold
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Load()
	cfg.Embeddings.Provider = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonHTTPBaseURL(t *testing.T) {
	cfg := Load()
	cfg.Embeddings.BaseURL = "ftp://example.com"
	assert.Error(t, cfg.Validate())
}

func TestLoadWithFileRejectsPathOutsideAllowedDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embeddings:\n  model: test\n"), 0600))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "care-engine")
}

func TestLoadWithFileMissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
}

func TestLoadWithFileRejectsInsecurePermissions(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "care-engine")
	require.NoError(t, os.MkdirAll(dir, 0700))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embeddings:\n  model: test\n"), 0644))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure")
}

func TestLoadWithFileAppliesEnvOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CARE_RETRIEVER_MAX_COMMENTS", "7")

	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retriever.MaxComments)
}

func TestDurationRoundTrip(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("5s")))
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "5s", string(text))
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("shh")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "shh", s.Value())
	b, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(b))
}
