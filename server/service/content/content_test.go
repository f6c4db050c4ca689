package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/castoldi/stash/ai"
	"github.com/castoldi/stash/ai/enrichment"
	"github.com/castoldi/stash/ai/vector"
	"github.com/castoldi/stash/internal/profile"
	"github.com/castoldi/stash/store"
	"github.com/castoldi/stash/store/teststore"
)

type stubGenerator struct {
	response string
	err      error
}

func (g *stubGenerator) Generate(context.Context, string) (string, error) {
	return g.response, g.err
}

func newTestService(t *testing.T, generator ai.Generator) (*Service, *store.Store) {
	t.Helper()
	st := teststore.New()
	enricher := enrichment.NewEnricher(generator, nil)
	embedding := ai.NewEmbeddingService(enricher)
	return NewService(st, enricher, embedding), st
}

func TestCreateWithEnrichment(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, &stubGenerator{response: `{
		"category": "learning",
		"detectedType": "ARTICLE",
		"suggestedTags": ["rust", "programming"],
		"metadata": {"topics": ["rust"]}
	}`})

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:  store.ContentTypeURL,
		Title: "Intro to Rust",
		URL:   "https://example.com/rust",
	})
	require.NoError(t, err)
	require.Equal(t, store.ContentTypeArticle, created.Type)
	require.Equal(t, "learning", created.Category)
	require.ElementsMatch(t, []string{"rust", "programming"}, created.Tags)
	require.Equal(t, "ARTICLE", created.Metadata["detectedType"])

	embedding, err := st.GetContentEmbedding(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, embedding)
	require.Len(t, embedding.Embedding, vector.Dimensions)
}

func TestCreateTagUnionIncrementsOnce(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, &stubGenerator{response: `{
		"category": "learning",
		"suggestedTags": ["b", "c"],
		"metadata": {}
	}`})

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:        store.ContentTypeNote,
		Title:       "union",
		Description: "something",
		Tags:        []string{"a", "b"},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b", "c"}, created.Tags)

	usages, err := st.ListTagUsage(ctx, &store.FindTagUsage{OwnerID: 1})
	require.NoError(t, err)
	counts := map[string]int{}
	for _, u := range usages {
		counts[u.Name] = u.UsageCount
	}
	require.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, counts)
}

func TestCreateKeepsExplicitType(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &stubGenerator{response: `{
		"category": "learning",
		"detectedType": "ARTICLE",
		"suggestedTags": [],
		"metadata": {}
	}`})

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:        store.ContentTypeNote,
		Title:       "my note",
		Description: "hand-picked type",
	})
	require.NoError(t, err)
	require.Equal(t, store.ContentTypeNote, created.Type)
}

func TestCreateCallerCategoryWins(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &stubGenerator{response: `{
		"category": "learning",
		"suggestedTags": [],
		"metadata": {}
	}`})

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:        store.ContentTypeNote,
		Title:       "categorized",
		Description: "x",
		Category:    "personal",
	})
	require.NoError(t, err)
	require.Equal(t, "personal", created.Category)
}

func TestCreateMetadataMergeEnhancementWins(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &stubGenerator{response: `{
		"category": "other",
		"suggestedTags": [],
		"metadata": {"sentiment": "positive", "source": "ai"}
	}`})

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:        store.ContentTypeNote,
		Title:       "merge",
		Description: "x",
		Metadata:    map[string]any{"source": "caller", "kept": true},
	})
	require.NoError(t, err)
	require.Equal(t, "ai", created.Metadata["source"])
	require.Equal(t, true, created.Metadata["kept"])
	require.Equal(t, "positive", created.Metadata["sentiment"])
}

func TestCreateSurvivesProviderFailure(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, &stubGenerator{err: errors.New("provider down")})

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:        store.ContentTypeNote,
		Title:       "resilient",
		Description: "still works",
		Tags:        []string{"keep"},
		Category:    "personal",
	})
	require.NoError(t, err)
	require.Equal(t, "personal", created.Category)
	require.Equal(t, []string{"keep"}, created.Tags)

	// A failing provider still leaves the hash-fallback embedding in place.
	embedding, err := st.GetContentEmbedding(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, embedding)
	require.Len(t, embedding.Embedding, vector.Dimensions)
	require.InDelta(t, 1.0, vector.Norm(embedding.Embedding), 1e-6)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	tests := []struct {
		name  string
		req   *CreateRequest
		field string
	}{
		{"missing title", &CreateRequest{Type: store.ContentTypeNote}, "title"},
		{"bad url", &CreateRequest{Type: store.ContentTypeURL, Title: "x", URL: "notaurl"}, "url"},
		{"priority out of range", &CreateRequest{Type: store.ContentTypeNote, Title: "x", Priority: 7}, "priority"},
		{"unknown type", &CreateRequest{Type: "WIDGET", Title: "x"}, "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, 1, tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestUpdateReembedsOnTextChange(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:  store.ContentTypeNote,
		Title: "original title",
	})
	require.NoError(t, err)
	before, err := st.GetContentEmbedding(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, before)

	// Non-text patch leaves the vector alone.
	priority := 3
	_, err = svc.Update(ctx, 1, created.ID, &UpdateRequest{Priority: &priority})
	require.NoError(t, err)
	unchanged, err := st.GetContentEmbedding(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, before.Embedding, unchanged.Embedding)

	description := "entirely new descriptive text about databases"
	_, err = svc.Update(ctx, 1, created.ID, &UpdateRequest{Description: &description})
	require.NoError(t, err)
	after, err := st.GetContentEmbedding(ctx, created.ID)
	require.NoError(t, err)
	require.NotEqual(t, before.Embedding, after.Embedding)
}

func TestUpdateTagDiff(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:  store.ContentTypeNote,
		Title: "tagged",
		Tags:  []string{"a", "b"},
	})
	require.NoError(t, err)

	tags := []string{"b", "c"}
	updated, err := svc.Update(ctx, 1, created.ID, &UpdateRequest{Tags: &tags})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"b", "c"}, updated.Tags)

	usages, err := st.ListTagUsage(ctx, &store.FindTagUsage{OwnerID: 1})
	require.NoError(t, err)
	counts := map[string]int{}
	for _, u := range usages {
		counts[u.Name] = u.UsageCount
	}
	require.Equal(t, 0, counts["a"])
	require.Equal(t, 1, counts["b"])
	require.Equal(t, 1, counts["c"])
}

func TestOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:  store.ContentTypeNote,
		Title: "mine",
	})
	require.NoError(t, err)

	var notFound *NotFoundError

	_, err = svc.GetByID(ctx, 2, created.ID)
	require.ErrorAs(t, err, &notFound)

	title := "stolen"
	_, err = svc.Update(ctx, 2, created.ID, &UpdateRequest{Title: &title})
	require.ErrorAs(t, err, &notFound)

	err = svc.Delete(ctx, 2, created.ID)
	require.ErrorAs(t, err, &notFound)

	// The rightful owner still sees the untouched item.
	got, err := svc.GetByID(ctx, 1, created.ID)
	require.NoError(t, err)
	require.Equal(t, "mine", got.Title)
}

func TestDeleteDecrementsTagUsage(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:  store.ContentTypeNote,
		Title: "ephemeral",
		Tags:  []string{"x", "y"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 1, created.ID))

	usages, err := st.ListTagUsage(ctx, &store.FindTagUsage{OwnerID: 1})
	require.NoError(t, err)
	for _, u := range usages {
		require.Equal(t, 0, u.UsageCount, "tag %q", u.Name)
	}

	var notFound *NotFoundError
	_, err = svc.GetByID(ctx, 1, created.ID)
	require.ErrorAs(t, err, &notFound)
}

func TestGetByIDBumpsAccessCount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:  store.ContentTypeNote,
		Title: "counted",
	})
	require.NoError(t, err)

	first, err := svc.GetByID(ctx, 1, created.ID)
	require.NoError(t, err)
	second, err := svc.GetByID(ctx, 1, created.ID)
	require.NoError(t, err)
	require.Equal(t, first.AccessCount+1, second.AccessCount)
}

func TestCreateTrimsTitle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:  store.ContentTypeNote,
		Title: "   trimmed title   ",
	})
	require.NoError(t, err)
	require.Equal(t, "trimmed title", created.Title)
}

func TestUpdateTrimsTitle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:  store.ContentTypeNote,
		Title: "original",
	})
	require.NoError(t, err)

	title := "   renamed title   "
	updated, err := svc.Update(ctx, 1, created.ID, &UpdateRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "renamed title", updated.Title)

	stored, err := svc.GetByID(ctx, 1, created.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed title", stored.Title)
}

func TestCreateSkipsEmbeddingForZeroSignalText(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, nil)

	// Every token is too short to embed, so no embedding row may appear.
	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:  store.ContentTypeNote,
		Title: "a go to it",
	})
	require.NoError(t, err)

	embedding, err := st.GetContentEmbedding(ctx, created.ID)
	require.NoError(t, err)
	require.Nil(t, embedding)
}

// failingTagDriver breaks tag usage counters while leaving the rest of the
// store intact.
type failingTagDriver struct {
	store.Driver
	err error
}

func (d *failingTagDriver) IncrementTagUsage(context.Context, int32, []string) error {
	return d.err
}

func (d *failingTagDriver) DecrementTagUsage(context.Context, int32, []string) error {
	return d.err
}

func TestTagUsageFailurePropagates(t *testing.T) {
	ctx := context.Background()
	driver := &failingTagDriver{Driver: teststore.New().GetDriver()}
	st := store.New(driver, &profile.Profile{Driver: "memory"})
	enricher := enrichment.NewEnricher(nil, nil)
	svc := NewService(st, enricher, ai.NewEmbeddingService(enricher))

	// Content without tags is unaffected by the broken counters.
	created, err := svc.Create(ctx, 1, &CreateRequest{
		Type:  store.ContentTypeNote,
		Title: "untagged",
	})
	require.NoError(t, err)

	driver.err = errors.New("tag usage unavailable")
	_, err = svc.Create(ctx, 1, &CreateRequest{
		Type:  store.ContentTypeNote,
		Title: "tagged",
		Tags:  []string{"golang"},
	})
	require.ErrorContains(t, err, "tag usage unavailable")

	tags := []string{"golang"}
	_, err = svc.Update(ctx, 1, created.ID, &UpdateRequest{Tags: &tags})
	require.ErrorContains(t, err, "tag usage unavailable")

	driver.err = nil
	_, err = svc.Update(ctx, 1, created.ID, &UpdateRequest{Tags: &tags})
	require.NoError(t, err)

	driver.err = errors.New("tag usage unavailable")
	err = svc.Delete(ctx, 1, created.ID)
	require.ErrorContains(t, err, "tag usage unavailable")
}
