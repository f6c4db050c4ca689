package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/castoldi/stash/ai"
	"github.com/castoldi/stash/ai/vector"
	"github.com/castoldi/stash/store"
	"github.com/castoldi/stash/store/teststore"
)

// absentEmbedding forces the fallback path for every query.
type absentEmbedding struct{}

func (absentEmbedding) Embed(context.Context, string) []float32 { return nil }
func (absentEmbedding) Dimensions() int                         { return vector.Dimensions }

func seedContent(t *testing.T, st *store.Store, ownerID int32, id, title, body string, tags []string) *store.Content {
	t.Helper()
	created, err := st.CreateContent(context.Background(), &store.Content{
		ID:       id,
		OwnerID:  ownerID,
		Type:     store.ContentTypeNote,
		Title:    title,
		BodyText: body,
		Tags:     tags,
	})
	require.NoError(t, err)
	return created
}

func TestSearchSimilarityOrdering(t *testing.T) {
	ctx := context.Background()
	st := teststore.New()
	embedding := ai.NewEmbeddingService(nil)
	engine := NewEngine(st, embedding, nil)

	query := "databases and storage engines"
	near := seedContent(t, st, 1, "near", "database internals", "", nil)
	far := seedContent(t, st, 1, "far", "sourdough baking", "", nil)

	// The near item stores the query's own embedding, the far one something
	// unrelated.
	_, err := st.UpsertContentEmbedding(ctx, &store.ContentEmbedding{
		ContentID: near.ID,
		Embedding: embedding.Embed(ctx, query),
	})
	require.NoError(t, err)
	_, err = st.UpsertContentEmbedding(ctx, &store.ContentEmbedding{
		ContentID: far.ID,
		Embedding: embedding.Embed(ctx, "completely different subject matter"),
	})
	require.NoError(t, err)

	result, err := engine.Search(ctx, 1, query, 10)
	require.NoError(t, err)
	require.Equal(t, 2, result.Count)
	require.Equal(t, near.ID, result.Results[0].ID)
	require.Equal(t, far.ID, result.Results[1].ID)
}

func TestSearchScopedToOwner(t *testing.T) {
	ctx := context.Background()
	st := teststore.New()
	embedding := ai.NewEmbeddingService(nil)
	engine := NewEngine(st, embedding, nil)

	mine := seedContent(t, st, 1, "mine", "shared topic", "", nil)
	theirs := seedContent(t, st, 2, "theirs", "shared topic", "", nil)
	for _, c := range []*store.Content{mine, theirs} {
		_, err := st.UpsertContentEmbedding(ctx, &store.ContentEmbedding{
			ContentID: c.ID,
			Embedding: embedding.Embed(ctx, c.Title),
		})
		require.NoError(t, err)
	}

	result, err := engine.Search(ctx, 1, "shared topic", 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	require.Equal(t, mine.ID, result.Results[0].ID)
}

func TestSearchShortQueryTakesFallback(t *testing.T) {
	ctx := context.Background()
	st := teststore.New()
	embedding := ai.NewEmbeddingService(nil)
	engine := NewEngine(st, embedding, nil)

	// "go" embeds to nothing (all tokens too short), so the engine must do a
	// substring search instead of ranking stored vectors.
	match := seedContent(t, st, 1, "match", "Learning Go", "", nil)
	embedded := seedContent(t, st, 1, "embedded", "sourdough baking", "", nil)
	_, err := st.UpsertContentEmbedding(ctx, &store.ContentEmbedding{
		ContentID: embedded.ID,
		Embedding: embedding.Embed(ctx, embedded.Title),
	})
	require.NoError(t, err)

	result, err := engine.Search(ctx, 1, "go", 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	require.Equal(t, match.ID, result.Results[0].ID)
}

func TestSearchFallbackEquivalence(t *testing.T) {
	ctx := context.Background()
	st := teststore.New()
	engine := NewEngine(st, absentEmbedding{}, nil)

	seedContent(t, st, 1, "a", "Learning Go", "", nil)
	seedContent(t, st, 1, "b", "Dinner plans", "go to the market", nil)
	seedContent(t, st, 1, "c", "Tagged", "", []string{"go"})
	seedContent(t, st, 1, "d", "Unrelated", "nothing here", nil)

	result, err := engine.Search(ctx, 1, "go", 10)
	require.NoError(t, err)

	direct, err := st.SearchContentText(ctx, &store.TextSearchOptions{OwnerID: 1, Query: "go", Limit: 10})
	require.NoError(t, err)

	gotIDs := []string{}
	for _, c := range result.Results {
		gotIDs = append(gotIDs, c.ID)
	}
	wantIDs := []string{}
	for _, c := range direct {
		wantIDs = append(wantIDs, c.ID)
	}
	require.ElementsMatch(t, wantIDs, gotIDs)
	require.ElementsMatch(t, []string{"a", "b", "c"}, gotIDs)
}

func TestSearchFallbackRespectsLimit(t *testing.T) {
	ctx := context.Background()
	st := teststore.New()
	engine := NewEngine(st, absentEmbedding{}, nil)

	seedContent(t, st, 1, "a", "match one", "", nil)
	seedContent(t, st, 1, "b", "match two", "", nil)
	seedContent(t, st, 1, "c", "match three", "", nil)

	result, err := engine.Search(ctx, 1, "match", 2)
	require.NoError(t, err)
	require.Equal(t, 2, result.Count)
}

func TestGetSuggestions(t *testing.T) {
	ctx := context.Background()
	st := teststore.New()
	engine := NewEngine(st, absentEmbedding{}, nil)

	// golang used by three items, gogreen by one; both match "go".
	require.NoError(t, st.IncrementTagUsage(ctx, 1, []string{"golang", "gogreen", "golang", "golang"}))

	first := seedContent(t, st, 1, "first", "going slow", "", nil)
	require.NoError(t, st.TouchContent(ctx, 1, first.ID))

	c := seedContent(t, st, 1, "cat", "misc", "", nil)
	_, err := st.UpdateContent(ctx, &store.UpdateContent{
		ID: c.ID, OwnerID: 1, Category: ptr("good-reads"),
	})
	require.NoError(t, err)

	// Another owner's data must not leak into suggestions.
	seedContent(t, st, 2, "other", "going elsewhere", "", nil)

	suggestions, err := engine.GetSuggestions(ctx, 1, "go")
	require.NoError(t, err)
	require.Equal(t, []string{"golang", "gogreen"}, suggestions.Tags)
	require.Len(t, suggestions.Content, 1)
	require.Equal(t, first.ID, suggestions.Content[0].ID)
	require.Equal(t, []string{"good-reads"}, suggestions.Categories)
}

func TestGetSuggestionsTagMatchIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	st := teststore.New()
	engine := NewEngine(st, absentEmbedding{}, nil)

	require.NoError(t, st.IncrementTagUsage(ctx, 1, []string{"GoLang"}))

	suggestions, err := engine.GetSuggestions(ctx, 1, "golang")
	require.NoError(t, err)
	require.Equal(t, []string{"GoLang"}, suggestions.Tags)

	suggestions, err = engine.GetSuggestions(ctx, 1, "GO")
	require.NoError(t, err)
	require.Equal(t, []string{"GoLang"}, suggestions.Tags)
}

func ptr[T any](v T) *T { return &v }
