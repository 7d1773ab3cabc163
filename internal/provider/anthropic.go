package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"contextengine/internal/apperr"
)

const (
	defaultAnthropicModel = "claude-3-5-haiku-20241022"
	maxRetries            = 3
	initialBackoff        = 1 * time.Second
	maxTokens             = 1024
)

// AnthropicProvider implements DescriptionProvider and PromptProvider
// over the Anthropic Messages API. Retry/backoff is adapted from the
// teacher pack's Claude Haiku client (BeadsLog's internal/compact).
type AnthropicProvider struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicProvider builds a provider using apiKey; an empty apiKey
// is rejected with apperr.ErrValidation (the ANTHROPIC_API_KEY
// environment variable is not read). model defaults to
// defaultAnthropicModel when empty.
func NewAnthropicProvider(apiKey, model string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key required", apperr.ErrValidation)
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}, nil
}

var _ DescriptionProvider = (*AnthropicProvider)(nil)
var _ PromptProvider = (*AnthropicProvider)(nil)

// Describe summarizes text in the context of contextYAML, used by the
// GENERATED_DESCRIPTION_ONLY and EMBEDDABLE_TEXT_AND_GENERATED_DESCRIPTION
// chunk embedding modes (spec.md §4.7).
func (p *AnthropicProvider) Describe(ctx context.Context, text, contextYAML string) (string, error) {
	prompt := fmt.Sprintf(describeTemplate, contextYAML, text)
	return p.callWithRetry(ctx, prompt)
}

// Prompt rewrites text, used only by RAG mode REWRITE_QUERY (spec.md
// §4.8).
func (p *AnthropicProvider) Prompt(ctx context.Context, text string) (string, error) {
	return p.callWithRetry(ctx, text)
}

func (p *AnthropicProvider) ModelID() string { return string(p.model) }

func (p *AnthropicProvider) callWithRetry(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		message, err := p.client.Messages.New(ctx, params)
		if err == nil {
			if len(message.Content) == 0 {
				return "", fmt.Errorf("%w: anthropic response had no content blocks", apperr.ErrEmbeddingPermanent)
			}
			block := message.Content[0]
			if block.Type != "text" {
				return "", fmt.Errorf("%w: unexpected block type %q", apperr.ErrEmbeddingPermanent, block.Type)
			}
			return block.Text, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isRetryableAnthropicError(err) {
			return "", fmt.Errorf("%w: %v", apperr.ErrEmbeddingPermanent, err)
		}
	}

	return "", fmt.Errorf("%w: failed after %d attempts: %v", apperr.ErrEmbeddingTransient, maxRetries+1, lastErr)
}

func isRetryableAnthropicError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}

	return false
}

const describeTemplate = `You are describing a chunk of structured context for semantic search indexing.

Surrounding context:
%s

Chunk content:
%s

Write a concise natural-language description of this chunk suitable for embedding, focused on what it is and what it is useful for. Respond with only the description, no preamble.`
