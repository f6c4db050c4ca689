// Package search implements similarity search over stored content embeddings
// with a substring fallback when no query embedding can be produced or the
// vector scan fails.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/castoldi/stash/ai"
	"github.com/castoldi/stash/ai/metrics"
	"github.com/castoldi/stash/store"
)

const (
	defaultLimit = 20

	suggestionTagLimit      = 5
	suggestionContentLimit  = 5
	suggestionCategoryLimit = 3
)

// Result is a ranked search result set.
type Result struct {
	Query   string
	Results []*store.Content
	Count   int
}

// Suggestions are the three independent bounded lookups backing
// search-as-you-type.
type Suggestions struct {
	Tags       []string
	Content    []*store.Content
	Categories []string
}

// Engine ranks an owner's content against a free-text query.
type Engine struct {
	store     *store.Store
	embedding ai.EmbeddingService
	metrics   *metrics.Metrics
}

// NewEngine creates a search engine.
func NewEngine(st *store.Store, embedding ai.EmbeddingService, m *metrics.Metrics) *Engine {
	return &Engine{
		store:     st,
		embedding: embedding,
		metrics:   m,
	}
}

// Search embeds the query and ranks the owner's stored embeddings by cosine
// similarity, most similar first. When the query yields no embedding or the
// vector scan fails, it degrades to a substring search ordered by last access.
func (e *Engine) Search(ctx context.Context, ownerID int32, query string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	start := time.Now()

	queryEmbedding := e.embedding.Embed(ctx, query)
	if queryEmbedding == nil {
		return e.fallbackSearch(ctx, ownerID, query, limit, start)
	}

	scored, err := e.store.VectorSearchContent(ctx, &store.VectorSearchOptions{
		OwnerID: ownerID,
		Vector:  queryEmbedding,
		Limit:   limit,
	})
	if err != nil {
		slog.Warn("vector search failed, taking text fallback", "error", err)
		return e.fallbackSearch(ctx, ownerID, query, limit, start)
	}

	results := make([]*store.Content, 0, len(scored))
	for _, s := range scored {
		results = append(results, s.Content)
	}
	e.metrics.ObserveSearch(metrics.StrategyVector, time.Since(start))
	return &Result{Query: query, Results: results, Count: len(results)}, nil
}

func (e *Engine) fallbackSearch(ctx context.Context, ownerID int32, query string, limit int, start time.Time) (*Result, error) {
	results, err := e.store.SearchContentText(ctx, &store.TextSearchOptions{
		OwnerID: ownerID,
		Query:   query,
		Limit:   limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "text search failed")
	}
	e.metrics.ObserveSearch(metrics.StrategyFallback, time.Since(start))
	return &Result{Query: query, Results: results, Count: len(results)}, nil
}

// GetSuggestions returns matching tags by usage, recently touched items whose
// title or description matches, and up to three matching categories.
func (e *Engine) GetSuggestions(ctx context.Context, ownerID int32, query string) (*Suggestions, error) {
	tagLimit := suggestionTagLimit
	tagUsages, err := e.store.ListTagUsage(ctx, &store.FindTagUsage{
		OwnerID:      ownerID,
		NameContains: &query,
		Limit:        &tagLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tag suggestions")
	}
	tags := make([]string, 0, len(tagUsages))
	for _, usage := range tagUsages {
		tags = append(tags, usage.Name)
	}

	limit := suggestionContentLimit
	contents, err := e.store.ListContent(ctx, &store.FindContent{
		OwnerID:                    ownerID,
		TitleOrDescriptionContains: &query,
		OrderBy:                    "accessed_ts",
		SortOrder:                  "desc",
		Limit:                      &limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list content suggestions")
	}

	categories, err := e.store.ListCategories(ctx, ownerID, query, suggestionCategoryLimit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list category suggestions")
	}

	return &Suggestions{
		Tags:       tags,
		Content:    contents,
		Categories: categories,
	}, nil
}
