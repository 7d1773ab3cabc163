package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"contextengine/internal/apperr"
	"contextengine/internal/embedding"
)

// daemonPollInterval is how often WaitForDaemon re-checks readiness.
const daemonPollInterval = 500 * time.Millisecond

// OllamaEmbeddingProvider adapts the teacher's embedding.OllamaClient
// to the EmbeddingProvider capability, classifying HTTP failures into
// the transient/permanent split spec.md §4.9 requires.
type OllamaEmbeddingProvider struct {
	client *embedding.OllamaClient
	dim    int
}

// NewOllamaEmbeddingProvider builds a provider over an Ollama-style
// local inference daemon. dim is the declared output dimension for
// the configured model (spec.md has no dimension-discovery endpoint,
// so the caller supplies it from EmbeddingModelRegistry or config).
func NewOllamaEmbeddingProvider(baseURL, model string, dim int) *OllamaEmbeddingProvider {
	opts := []embedding.OllamaOption{embedding.WithBaseURL(baseURL)}
	if model != "" {
		opts = append(opts, embedding.WithModel(model))
	}
	return &OllamaEmbeddingProvider{client: embedding.NewOllamaClient(opts...), dim: dim}
}

func (p *OllamaEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.client.EmbedWithContext(ctx, text)
	if err != nil {
		return nil, classifyEmbeddingError(err)
	}
	if p.dim > 0 && len(vec) != p.dim {
		return nil, fmt.Errorf("%w: model %s returned dim %d, want %d",
			apperr.ErrEmbeddingPermanent, p.ModelID(), len(vec), p.dim)
	}
	return vec, nil
}

func (p *OllamaEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := p.client.EmbedBatchWithContext(ctx, texts)
	if err != nil {
		return nil, classifyEmbeddingError(err)
	}
	for _, vec := range vecs {
		if p.dim > 0 && len(vec) != p.dim {
			return nil, fmt.Errorf("%w: model %s returned dim %d, want %d",
				apperr.ErrEmbeddingPermanent, p.ModelID(), len(vec), p.dim)
		}
	}
	return vecs, nil
}

func (p *OllamaEmbeddingProvider) Dim() int { return p.dim }

func (p *OllamaEmbeddingProvider) ModelID() string { return p.client.Model() }

// classifyEmbeddingError maps a transport error or an HTTP status
// embedded in the error text to the transient/permanent split spec.md
// §4.9 requires: network/timeout/5xx is transient (worth retrying);
// 4xx and decode/shape failures are permanent.
func classifyEmbeddingError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", apperr.ErrEmbeddingTransient, err)
	}

	msg := err.Error()
	if strings.Contains(msg, "returned status 5") || strings.Contains(msg, "status 429") {
		return fmt.Errorf("%w: %v", apperr.ErrEmbeddingTransient, err)
	}
	if strings.Contains(msg, "returned status 4") {
		return fmt.Errorf("%w: %v", apperr.ErrEmbeddingPermanent, err)
	}
	if strings.Contains(msg, "sending request") {
		return fmt.Errorf("%w: %v", apperr.ErrEmbeddingTransient, err)
	}
	return fmt.Errorf("%w: %v", apperr.ErrEmbeddingPermanent, err)
}

// WaitForDaemon polls baseURL's health endpoint until it responds OK
// or ctx is cancelled, returning apperr.ErrTimeout on cancellation.
// Adapted from the teacher's daemon health-poll shape
// (internal/daemon.Daemon.watcherLoop's ticker-driven loop), repointed
// here at a single HTTP health check instead of a filesystem watch.
func WaitForDaemon(ctx context.Context, baseURL string, ready func(ctx context.Context) bool) error {
	if ready(ctx) {
		return nil
	}
	ticker := time.NewTicker(daemonPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s never became healthy", apperr.ErrTimeout, baseURL)
		case <-ticker.C:
			if ready(ctx) {
				return nil
			}
		}
	}
}

// OllamaReady returns a readiness check suitable for WaitForDaemon.
func OllamaReady(client *embedding.OllamaClient) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.BaseURL()+"/api/tags", nil)
		if err != nil {
			return false
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}
}
