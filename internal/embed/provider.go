// Package embed talks to the local sentence-embedding inference engine. The
// engine is probed once at process start; if that probe fails, every later
// call short-circuits without touching the network. Embedding failures are
// load-time defects, not transient network errors, so there are no retries.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/monetizerai/creatorchat/internal/core"
	"github.com/monetizerai/creatorchat/internal/logging"
)

// Dimension is the vector size of the sentence embedding model.
const Dimension = 384

// Provider implements core.EmbedService against an Ollama-style
// POST /api/embeddings endpoint.
type Provider struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client

	// set once in New, read-only afterwards
	unavailable bool
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// New constructs the provider and probes the engine once. A failed probe is
// recorded permanently; the provider is still returned so the rest of the
// pipeline can run on its fallback paths.
func New(ctx context.Context, baseURL, model string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p := &Provider{
		baseURL: baseURL,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}

	if _, err := p.embed(ctx, "warmup"); err != nil {
		logging.From(ctx).Error("embedding engine failed to initialize, retrieval disabled",
			"base_url", baseURL, "model", model, "error", err)
		p.unavailable = true
		return p
	}

	logging.From(ctx).Info("embedding engine ready", "model", model, "dimension", Dimension)
	return p
}

// Dimension implements core.EmbedService.
func (p *Provider) Dimension() int {
	return Dimension
}

// Available reports whether the engine initialized successfully.
func (p *Provider) Available() bool {
	return !p.unavailable
}

// Embed implements core.EmbedService.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.unavailable {
		return nil, core.ErrEmbeddingUnavailable
	}
	return p.embed(ctx, text)
}

func (p *Provider) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal embedding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build embedding request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "embedding request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, goerr.New("embedding engine returned non-200 status",
			goerr.V("status", resp.StatusCode), goerr.V("body", string(payload)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, goerr.Wrap(err, "failed to decode embedding response")
	}

	if len(out.Embedding) != Dimension {
		return nil, goerr.New(fmt.Sprintf("unexpected embedding dimension %d, want %d", len(out.Embedding), Dimension),
			goerr.V("model", p.model))
	}

	return out.Embedding, nil
}
