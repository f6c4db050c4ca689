package enrichment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castoldi/stash/store"
)

type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func TestEnhanceParsesProviderResponse(t *testing.T) {
	gen := &stubGenerator{response: `Here is my analysis:
{
  "category": "learning",
  "detectedType": "ARTICLE",
  "suggestedTags": ["rust", "programming"],
  "metadata": {"sentiment": "neutral", "topics": ["systems"]}
}
Hope that helps!`}
	e := NewEnricher(gen, nil)

	got := e.Enhance(context.Background(), &Draft{
		Type:  store.ContentTypeURL,
		Title: "Intro to Rust",
		URL:   "https://example.com/rust",
	})

	require.False(t, got.Degraded)
	assert.Equal(t, "learning", got.Category)
	assert.Equal(t, store.ContentTypeArticle, got.DetectedType)
	assert.Equal(t, []string{"rust", "programming"}, got.SuggestedTags)
	assert.Equal(t, "neutral", got.Metadata["sentiment"])
}

func TestEnhanceClampsUnknownValues(t *testing.T) {
	tests := []struct {
		name         string
		response     string
		wantCategory string
		wantType     store.ContentType
	}{
		{
			"unknown category and type",
			`{"category": "blogging", "detectedType": "WEBPAGE", "suggestedTags": []}`,
			"other",
			"",
		},
		{
			"case is normalized",
			`{"category": "Learning", "detectedType": "article", "suggestedTags": []}`,
			"learning",
			store.ContentTypeArticle,
		},
		{
			"missing fields",
			`{}`,
			"other",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnricher(&stubGenerator{response: tt.response}, nil)
			got := e.Enhance(context.Background(), &Draft{Title: "t"})

			assert.Equal(t, tt.wantCategory, got.Category)
			assert.Equal(t, tt.wantType, got.DetectedType)
			assert.NotNil(t, got.Metadata)
		})
	}
}

func TestEnhanceDegradesOnFailure(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{"provider error", &stubGenerator{err: errors.New("timeout")}},
		{"no json in response", &stubGenerator{response: "sorry, I cannot help with that"}},
		{"malformed json", &stubGenerator{response: `{"category": learning}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnricher(tt.gen, nil)
			got := e.Enhance(context.Background(), &Draft{Title: "t"})

			require.True(t, got.Degraded)
			assert.Equal(t, "other", got.Category)
			assert.Empty(t, got.SuggestedTags)
			assert.Empty(t, got.DetectedType)
			assert.Empty(t, got.Metadata)
		})
	}
}

func TestEnhanceWithoutGenerator(t *testing.T) {
	e := NewEnricher(nil, nil)
	got := e.Enhance(context.Background(), &Draft{Title: "t"})
	assert.True(t, got.Degraded)
	assert.Equal(t, "other", got.Category)
}

func TestEnhancePromptContainsDraftFields(t *testing.T) {
	gen := &stubGenerator{response: `{}`}
	e := NewEnricher(gen, nil)

	e.Enhance(context.Background(), &Draft{
		Type:        store.ContentTypeURL,
		Title:       "Intro to Rust",
		Description: "A beginner guide",
		URL:         "https://example.com/rust",
	})

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "Title: Intro to Rust")
	assert.Contains(t, prompt, "Description: A beginner guide")
	assert.Contains(t, prompt, "URL: https://example.com/rust")
	assert.Contains(t, prompt, "work, personal, learning")
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		gen      *stubGenerator
		want     []string
	}{
		{
			"plain array",
			&stubGenerator{response: `["rust", "memory safety", "ownership"]`},
			[]string{"rust", "memory safety", "ownership"},
		},
		{
			"fenced array",
			&stubGenerator{response: "```json\n[\"rust\", \"ownership\"]\n```"},
			[]string{"rust", "ownership"},
		},
		{
			"array inside prose",
			&stubGenerator{response: `The keywords are: ["alpha", "beta"] as requested.`},
			[]string{"alpha", "beta"},
		},
		{
			"non-string entries dropped",
			&stubGenerator{response: `["alpha", 42, " ", "beta"]`},
			[]string{"alpha", "beta"},
		},
		{"provider error", &stubGenerator{err: errors.New("boom")}, nil},
		{"no array", &stubGenerator{response: "nothing here"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnricher(tt.gen, nil)
			got := e.ExtractKeywords(context.Background(), "some text about rust")
			if tt.want == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractKeywordsTruncatesInput(t *testing.T) {
	gen := &stubGenerator{response: `["x"]`}
	e := NewEnricher(gen, nil)

	long := make([]rune, 5000)
	for i := range long {
		long[i] = 'a'
	}
	e.ExtractKeywords(context.Background(), string(long))

	require.Len(t, gen.prompts, 1)
	assert.Less(t, len(gen.prompts[0]), 2500, "prompt must carry the bounded prefix only")
}

func TestExtractKeywordsEmptyText(t *testing.T) {
	gen := &stubGenerator{response: `["x"]`}
	e := NewEnricher(gen, nil)
	assert.Empty(t, e.ExtractKeywords(context.Background(), "   "))
	assert.Empty(t, gen.prompts, "blank text must not reach the provider")
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n[1]\n```", "[1]"},
		{"```\n[1]\n```", "[1]"},
		{"[1]", "[1]"},
		{"  [1]  ", "[1]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFences(tt.in))
	}
}
