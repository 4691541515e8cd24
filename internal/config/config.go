// Package config provides layered configuration loading for the CARE engine.
//
// Configuration is resolved from hardcoded defaults, an optional YAML file,
// and environment variable overrides, in that order of increasing priority.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Config holds the complete CARE engine configuration.
type Config struct {
	Production  ProductionConfig
	Embeddings  EmbeddingsConfig
	EmbedCache  EmbedCacheConfig
	VectorStore VectorStoreConfig
	Indexer     IndexerConfig
	Retriever   RetrieverConfig
	Aggregator  AggregatorConfig
	Logging     LoggingConfig
}

// EmbeddingsConfig configures the embedding provider (§4.1).
type EmbeddingsConfig struct {
	// Provider selects the backend: "fastembed" (local ONNX) or "tei" (HTTP).
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	// CacheDir is the on-disk model cache directory (§6.1).
	CacheDir string `koanf:"cache_dir"`
	// MaxRetries bounds the linear-backoff retry loop on embedding failure (§7).
	MaxRetries int `koanf:"max_retries"`
	// RetryBaseDelay is the linear-backoff unit: attempt n waits n*RetryBaseDelay.
	RetryBaseDelay Duration `koanf:"retry_base_delay"`
}

// EmbedCacheConfig configures the four bounded LRU caches (§4.2).
type EmbedCacheConfig struct {
	PassageSize int `koanf:"passage_size"`
	QuerySize   int `koanf:"query_size"`
	H1Size      int `koanf:"h1_size"`
	ContextSize int `koanf:"context_size"`
}

// VectorStoreConfig configures the three-table persistent store (§4.3, §6.1).
type VectorStoreConfig struct {
	// DataDir is the on-disk root, one subdirectory per table.
	DataDir string `koanf:"data_dir"`
	// VectorDim is D, the configured embedding dimension.
	VectorDim int `koanf:"vector_dim"`
	// IVFFlatThreshold / IVFPQThreshold are the row-count breakpoints of the
	// adaptive index policy table.
	IVFFlatThreshold int `koanf:"ivf_flat_threshold"`
	IVFPQThreshold   int `koanf:"ivf_pq_threshold"`
}

// IndexerConfig configures the Indexer pipeline (§4.5).
type IndexerConfig struct {
	ProjectPath      string   `koanf:"project_path"`
	ExcludePatterns  []string `koanf:"exclude_patterns"`
	RespectGitignore bool     `koanf:"respect_gitignore"`
	MaxFileSizeBytes int64    `koanf:"max_file_size_bytes"`
	BatchSizeMin     int      `koanf:"batch_size_min"`
	BatchSizeMax     int      `koanf:"batch_size_max"`
	MaxTreeDepth     int      `koanf:"max_tree_depth"`
	Watch            bool     `koanf:"watch"`
}

// RetrieverConfig configures the Context Retriever (§4.6, §6.4).
type RetrieverConfig struct {
	MaxComments            int     `koanf:"max_comments"`
	PRSimilarityThreshold   float64 `koanf:"pr_similarity_threshold"`
	PRTimeout               Duration `koanf:"pr_timeout"`
	MaxDocCandidates        int     `koanf:"max_doc_candidates"`
	MaxCodeCandidates       int     `koanf:"max_code_candidates"`
	DocFloor                float64 `koanf:"doc_floor"`
	CodeFloor               float64 `koanf:"code_floor"`
	IncludeProjectStructure bool    `koanf:"include_project_structure"`
	Weights                 RerankWeights `koanf:"weights"`
}

// RerankWeights exposes the re-ranker's weighting constants as tunables,
// per the spec's open question on drifting constants between analyser
// variants (SPEC_FULL.md §9).
type RerankWeights struct {
	SemanticQuality float64 `koanf:"semantic_quality"`
	ContextMatch    float64 `koanf:"context_match"`
	H1Relevance     float64 `koanf:"h1_relevance"`
	AreaMatchBonus  float64 `koanf:"area_match_bonus"`
	TechOverlapBonus float64 `koanf:"tech_overlap_bonus"`
	AreaMismatchPenalty float64 `koanf:"area_mismatch_penalty"`
	GenericPenalty  float64 `koanf:"generic_penalty"`
	DocScoreFloor   float64 `koanf:"doc_score_floor"`
	ChunkScoreFloor float64 `koanf:"chunk_score_floor"`
}

// AggregatorConfig configures the PR Context Aggregator (§4.7).
type AggregatorConfig struct {
	MaxCodeExamples int `koanf:"max_code_examples"`
	MaxGuidelines   int `koanf:"max_guidelines"`
	MaxComments     int `koanf:"max_comments"`
	MaxParallelism  int `koanf:"max_parallelism"`
}

// LoggingConfig configures the ambient logger (§10).
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ProductionConfig carries the production flag the teacher's config layer
// always has; the engine itself only ever runs locally (§1 Non-goals).
// Validate does not inspect it, and nothing else in this package reads it.
type ProductionConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Load returns the hardcoded defaults, suitable for tests and ad-hoc use.
func Load() *Config {
	cfg := &Config{
		Embeddings: EmbeddingsConfig{
			Provider:       "fastembed",
			Model:          "BAAI/bge-small-en-v1.5",
			BaseURL:        "http://localhost:8080",
			CacheDir:       defaultHomeSubdir(".care-engine/fastembed-cache"),
			MaxRetries:     3,
			RetryBaseDelay: Duration(200 * time.Millisecond),
		},
		EmbedCache: EmbedCacheConfig{
			PassageSize: 1000,
			QuerySize:   1000,
			H1Size:      1000,
			ContextSize: 500,
		},
		VectorStore: VectorStoreConfig{
			DataDir:          defaultHomeSubdir(".care-engine/store"),
			VectorDim:        384,
			IVFFlatThreshold: 1000,
			IVFPQThreshold:   10000,
		},
		Indexer: IndexerConfig{
			RespectGitignore: true,
			MaxFileSizeBytes: 1 << 20,
			BatchSizeMin:     64,
			BatchSizeMax:     256,
			MaxTreeDepth:     5,
		},
		Retriever: RetrieverConfig{
			MaxComments:           50,
			PRSimilarityThreshold: 0.3,
			PRTimeout:             Duration(300 * time.Second),
			MaxDocCandidates:      100,
			MaxCodeCandidates:     40,
			DocFloor:              0.05,
			CodeFloor:             0.3,
			Weights: RerankWeights{
				SemanticQuality:     0.2,
				ContextMatch:        0.6,
				H1Relevance:         0.2,
				AreaMatchBonus:      0.8,
				TechOverlapBonus:    0.2,
				AreaMismatchPenalty: -0.2,
				GenericPenalty:      0.7,
				DocScoreFloor:       0.3,
				ChunkScoreFloor:     0.1,
			},
		},
		Aggregator: AggregatorConfig{
			MaxCodeExamples: 40,
			MaxGuidelines:   100,
			MaxComments:     40,
			MaxParallelism:  0, // 0 => runtime.NumCPU()
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
	return cfg
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.VectorStore.VectorDim <= 0 {
		return fmt.Errorf("vector_store.vector_dim must be positive, got %d", c.VectorStore.VectorDim)
	}
	if c.VectorStore.IVFFlatThreshold <= 0 || c.VectorStore.IVFPQThreshold <= c.VectorStore.IVFFlatThreshold {
		return errors.New("vector_store thresholds must be positive and increasing")
	}
	if c.Embeddings.Provider != "fastembed" && c.Embeddings.Provider != "tei" {
		return fmt.Errorf("embeddings.provider must be 'fastembed' or 'tei', got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.BaseURL != "" {
		if err := validateURL(c.Embeddings.BaseURL); err != nil {
			return fmt.Errorf("embeddings.base_url: %w", err)
		}
	}
	if c.Indexer.MaxFileSizeBytes <= 0 {
		return errors.New("indexer.max_file_size_bytes must be positive")
	}
	if c.Retriever.MaxComments <= 0 {
		return errors.New("retriever.max_comments must be positive")
	}
	if c.Retriever.PRSimilarityThreshold < 0 || c.Retriever.PRSimilarityThreshold > 1 {
		return errors.New("retriever.pr_similarity_threshold must be in [0,1]")
	}
	return nil
}

func validateURL(raw string) error {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return fmt.Errorf("must use http:// or https://, got %q", raw)
	}
	return nil
}

// validateHostname checks a bare host (e.g. a TEI override) rather than a
// full URL. Validate does not call it; it has no caller in this package.
func validateHostname(host string) error {
	if host == "" {
		return nil
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	hostnameRegex := regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format: %s", host)
	}
	return nil
}

func defaultHomeSubdir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", name)
	}
	return filepath.Join(home, name)
}
