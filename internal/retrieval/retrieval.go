// Package retrieval implements the Retrieval Pipeline (spec.md §4.8):
// optional query rewrite, embed, shard lookup, and cosine-distance
// k-NN filtered by threshold and optionally by datasource.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"contextengine/internal/db"
	"contextengine/internal/provider"
	"contextengine/internal/shard"
)

// RAGMode selects whether the query is rewritten before embedding.
type RAGMode int

const (
	// DirectQuery embeds text as given.
	DirectQuery RAGMode = iota
	// RewriteQuery runs text through a PromptProvider first.
	RewriteQuery
)

// DistanceThreshold is the policy constant below which a match is
// returned (spec.md §4.8's literal `0.75`).
const DistanceThreshold = 0.75

// DefaultLimit is the result count used when the caller doesn't
// specify one (spec.md §4.8).
const DefaultLimit = 10

// oversampleFactor widens the k-NN candidate pool beyond limit so that
// post-hoc threshold/datasource filtering (the VectorDB interface has
// no filter pushdown) doesn't under-return when many of the nearest
// neighbors belong to excluded datasources. This is a pragmatic
// consequence of C1's VectorDB abstraction rather than a spec.md rule.
const oversampleFactor = 10

// Result is one retrieved chunk, per the projection spec.md §4.8 names.
type Result struct {
	DisplayText    string
	EmbeddableText string
	Distance       float32
	FullType       string
	DatasourceID   string
}

// Pipeline answers semantic queries against a resolved shard.
type Pipeline struct {
	Embedder     provider.EmbeddingProvider
	Prompter     provider.PromptProvider // required only for RewriteQuery
	Resolver     *shard.Resolver
	Vectors      db.VectorDB
	Chunks       *db.ChunkRepo
	EmbedderName string
}

// New builds a Pipeline.
func New(embedderName string, embedder provider.EmbeddingProvider, prompter provider.PromptProvider, resolver *shard.Resolver, vectors db.VectorDB, chunks *db.ChunkRepo) *Pipeline {
	return &Pipeline{EmbedderName: embedderName, Embedder: embedder, Prompter: prompter, Resolver: resolver, Vectors: vectors, Chunks: chunks}
}

// Retrieve runs the pipeline described by spec.md §4.8. limit<=0 uses
// DefaultLimit. An empty datasourceIDs means no datasource filter.
func (p *Pipeline) Retrieve(ctx context.Context, text string, limit int, datasourceIDs []string, mode RAGMode) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	if mode == RewriteQuery {
		if p.Prompter == nil {
			return nil, fmt.Errorf("RewriteQuery mode requires a PromptProvider")
		}
		rewritten, err := p.Prompter.Prompt(ctx, rewriteTemplate(text))
		if err != nil {
			return nil, err
		}
		text = rewritten
	}

	tableName, dim, err := p.Resolver.Resolve(p.EmbedderName, p.Embedder.ModelID())
	if err != nil {
		return nil, err
	}

	q, err := p.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(q) != dim {
		return nil, fmt.Errorf("query embedding has dim %d, want %d", len(q), dim)
	}

	candidatePool := limit * oversampleFactor
	matches, err := p.Vectors.SearchKNN(ctx, tableName, q, candidatePool)
	if err != nil {
		return nil, err
	}

	var filtered []db.VectorSearchResult
	for _, m := range matches {
		if float64(m.Distance) < DistanceThreshold {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(filtered))
	distanceByID := make(map[int64]float32, len(filtered))
	for i, m := range filtered {
		ids[i] = m.ID
		distanceByID[m.ID] = m.Distance
	}

	chunks, err := p.Chunks.GetByIDs(ids)
	if err != nil {
		return nil, err
	}

	allowed := datasourceFilter(datasourceIDs)

	results := make([]Result, 0, len(chunks))
	for _, c := range chunks {
		if allowed != nil && !allowed[c.DatasourceID] {
			continue
		}
		display := c.EmbeddableText
		if c.DisplayText != nil && *c.DisplayText != "" {
			display = *c.DisplayText
		}
		results = append(results, Result{
			DisplayText:    display,
			EmbeddableText: c.EmbeddableText,
			Distance:       distanceByID[c.ChunkID],
			FullType:       c.FullType,
			DatasourceID:   c.DatasourceID,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func datasourceFilter(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// rewriteTemplate wraps a raw query for the rewrite prompt. The exact
// wording is an implementation detail spec.md leaves unspecified
// beyond "rewrite_template(text)"; this phrasing asks for a single
// rewritten query suitable for embedding-based retrieval.
func rewriteTemplate(text string) string {
	return "Rewrite the following search query to be more effective for semantic vector retrieval. " +
		"Respond with only the rewritten query, no explanation.\n\nQuery: " + text
}
