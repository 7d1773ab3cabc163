// Package provider declares the polymorphic capability interfaces C9
// exposes (spec.md §4.9): embed, describe, and prompt, each with its
// own model identity. A concrete backend can implement one, two, or
// all three; C7 and C8 depend only on the capability they need.
package provider

import "context"

// EmbeddingProvider turns text into a fixed-length vector.
type EmbeddingProvider interface {
	// Embed returns the embedding for text. Implementations must wrap
	// transport/timeout/5xx failures in apperr.ErrEmbeddingTransient and
	// 4xx/schema/dimension failures in apperr.ErrEmbeddingPermanent, per
	// spec.md §4.9, so callers can distinguish retry-worthy failures
	// from ones that will never succeed.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds multiple texts. The default batch size used by
	// callers is DefaultBatchSize; implementations are free to embed
	// sequentially or in a single request, as long as ordering is
	// preserved.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dim returns the vector length this provider produces.
	Dim() int

	// ModelID identifies the concrete model in use, used as the
	// `model_id` half of a shard's `(embedder, model_id)` identity.
	ModelID() string
}

// DescriptionProvider generates a natural-language description of a
// chunk's content, used only by ChunkEmbeddingMode variants that call
// for a generated description (spec.md §4.7).
type DescriptionProvider interface {
	Describe(ctx context.Context, text, contextYAML string) (string, error)
	ModelID() string
}

// PromptProvider rewrites a query, used only in RAG mode
// REWRITE_QUERY (spec.md §4.8).
type PromptProvider interface {
	Prompt(ctx context.Context, text string) (string, error)
	ModelID() string
}

// DefaultBatchSize is the fixed batch size backpressure uses when
// calling EmbedBatch, per spec.md §5.
const DefaultBatchSize = 128
