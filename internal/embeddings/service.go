package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// teiConfig configures the HTTP (TEI-compatible) embedding backend.
type teiConfig struct {
	BaseURL string
	Model   string
}

// teiBackend implements backend against a Text-Embeddings-Inference-style
// HTTP service, as an alternative to the local ONNX fastEmbedBackend.
type teiBackend struct {
	cfg       teiConfig
	client    *http.Client
	dimension int
}

func newTEIBackend(cfg teiConfig) (*teiBackend, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required for tei backend", ErrInvalidConfig)
	}
	return &teiBackend{
		cfg:       cfg,
		client:    &http.Client{},
		dimension: detectDimensionFromModel(cfg.Model),
	}, nil
}

type teiRequest struct {
	Inputs   interface{} `json:"inputs"`
	Truncate bool        `json:"truncate"`
}

func (b *teiBackend) embedPassageBatch(ctx context.Context, texts []string) ([]Vector, error) {
	raw, err := b.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([]Vector, len(raw))
	for i, v := range raw {
		out[i] = v
	}
	return out, nil
}

func (b *teiBackend) embedQuery(ctx context.Context, text string) (Vector, error) {
	raw, err := b.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrEmbeddingFailed)
	}
	return Vector(raw[0]), nil
}

func (b *teiBackend) embed(ctx context.Context, inputs interface{}) ([][]float32, error) {
	body, err := json.Marshal(teiRequest{Inputs: inputs, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return vectors, nil
}

func (b *teiBackend) dimension() int { return b.dimension }

func (b *teiBackend) close() error { return nil }
