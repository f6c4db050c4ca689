// Package enrichment derives categories, tags, content types, and salient
// keywords from user content via a generative-text provider. Every operation
// degrades to a neutral result instead of failing: AI enrichment is a
// quality-of-service layer, never a correctness dependency of the write path.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/castoldi/stash/ai"
	"github.com/castoldi/stash/ai/metrics"
	"github.com/castoldi/stash/store"
)

// Categories is the closed list of content categories. Anything the provider
// returns outside this list is clamped to "other".
var Categories = []string{
	"work", "personal", "learning", "entertainment", "shopping",
	"health", "finance", "travel", "food", "other",
}

// Draft is the textual surface of a content item handed to the enricher.
type Draft struct {
	Type        store.ContentType
	Title       string
	Description string
	URL         string
	BodyText    string
}

// Enhancement is the result of enriching a draft. Degraded marks results that
// fell back to neutral defaults because the provider failed or returned
// something unusable.
type Enhancement struct {
	Category      string
	SuggestedTags []string
	DetectedType  store.ContentType // empty when the provider gave none
	Metadata      map[string]any
	Degraded      bool
}

const (
	// bodyTextPromptLimit bounds how much body text goes into the prompt.
	bodyTextPromptLimit = 500
	// keywordInputLimit bounds the keyword-extraction input.
	keywordInputLimit = 2000
	// maxConcurrentCalls bounds in-flight provider requests across all
	// inbound writes.
	maxConcurrentCalls = 4
)

// Enricher wraps a text generator with prompt construction, response parsing,
// and closed-list clamping.
type Enricher struct {
	generator ai.Generator
	metrics   *metrics.Metrics
	sem       *semaphore.Weighted
}

// NewEnricher creates an Enricher. A nil generator is allowed and yields
// degraded results for every call.
func NewEnricher(generator ai.Generator, m *metrics.Metrics) *Enricher {
	return &Enricher{
		generator: generator,
		metrics:   m,
		sem:       semaphore.NewWeighted(maxConcurrentCalls),
	}
}

func neutralEnhancement() *Enhancement {
	return &Enhancement{
		Category:      "other",
		SuggestedTags: []string{},
		Metadata:      map[string]any{},
		Degraded:      true,
	}
}

// Enhance classifies a draft into category, tags, detected type, and open
// metadata. It never returns an error: any provider or parse failure yields
// the neutral default with Degraded set.
func (e *Enricher) Enhance(ctx context.Context, draft *Draft) *Enhancement {
	start := time.Now()
	result := e.enhance(ctx, draft)

	outcome := metrics.OutcomeOK
	if result.Degraded {
		outcome = metrics.OutcomeDegraded
	}
	e.metrics.ObserveEnrichment("enhance", outcome, time.Since(start))
	return result
}

func (e *Enricher) enhance(ctx context.Context, draft *Draft) *Enhancement {
	if e.generator == nil {
		return neutralEnhancement()
	}

	response, err := e.generate(ctx, buildEnhancePrompt(draft))
	if err != nil {
		slog.Warn("enrichment: enhance call failed", "error", err)
		return neutralEnhancement()
	}

	raw := extractJSONObject(response)
	if raw == "" {
		slog.Warn("enrichment: no JSON object in enhance response", "response_length", len(response))
		return neutralEnhancement()
	}

	var parsed struct {
		Category      string         `json:"category"`
		DetectedType  string         `json:"detectedType"`
		SuggestedTags []any          `json:"suggestedTags"`
		Metadata      map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.Warn("enrichment: unparseable enhance response", "error", err)
		return neutralEnhancement()
	}

	result := &Enhancement{
		Category:      clampCategory(parsed.Category),
		SuggestedTags: stringSlice(parsed.SuggestedTags),
		DetectedType:  clampContentType(parsed.DetectedType),
		Metadata:      parsed.Metadata,
	}
	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	return result
}

// ExtractKeywords returns up to 20 ranked salient keywords for the text, or
// an empty slice on any failure so callers can take their fallback path.
func (e *Enricher) ExtractKeywords(ctx context.Context, text string) []string {
	start := time.Now()
	keywords := e.extractKeywords(ctx, text)

	outcome := metrics.OutcomeOK
	if len(keywords) == 0 {
		outcome = metrics.OutcomeDegraded
	}
	e.metrics.ObserveEnrichment("extract_keywords", outcome, time.Since(start))
	return keywords
}

func (e *Enricher) extractKeywords(ctx context.Context, text string) []string {
	if e.generator == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	response, err := e.generate(ctx, buildKeywordPrompt(truncate(text, keywordInputLimit)))
	if err != nil {
		slog.Warn("enrichment: keyword extraction failed", "error", err)
		return nil
	}

	raw := extractJSONArray(stripCodeFences(response))
	if raw == "" {
		slog.Warn("enrichment: no JSON array in keyword response", "response_length", len(response))
		return nil
	}

	var parsed []any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.Warn("enrichment: unparseable keyword response", "error", err)
		return nil
	}
	return stringSlice(parsed)
}

// generate issues the provider call behind the concurrency gate.
func (e *Enricher) generate(ctx context.Context, prompt string) (string, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer e.sem.Release(1)
	return e.generator.Generate(ctx, prompt)
}

func buildEnhancePrompt(draft *Draft) string {
	var b strings.Builder
	b.WriteString(`Analyze this content and provide:
1. Category (one of: work, personal, learning, entertainment, shopping, health, finance, travel, food, other)
2. Detected content type (one of: URL, ARTICLE, PRODUCT, VIDEO, IMAGE, NOTE, TODO, CODE, PDF, SCREENSHOT, HANDWRITTEN, AUDIO, BOOKMARK)
3. 3-5 relevant tags
4. Key metadata (entities, sentiment, topics)

Content:
`)
	fmt.Fprintf(&b, "Title: %s\n", draft.Title)
	if draft.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", draft.Description)
	} else {
		b.WriteString("Description: N/A\n")
	}
	fmt.Fprintf(&b, "Type: %s\n", draft.Type)
	if draft.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", draft.URL)
	}
	if draft.BodyText != "" {
		fmt.Fprintf(&b, "Text: %s\n", truncate(draft.BodyText, bodyTextPromptLimit))
	}
	b.WriteString(`
Respond in JSON format:
{
  "category": "string",
  "detectedType": "string",
  "suggestedTags": ["tag1", "tag2"],
  "metadata": {
    "entities": ["entity1", "entity2"],
    "sentiment": "positive|negative|neutral",
    "topics": ["topic1", "topic2"]
  }
}`)
	return b.String()
}

func buildKeywordPrompt(text string) string {
	return fmt.Sprintf(`Extract the 20 most important semantic keywords and key phrases from this text, ordered by importance.

Text:
%s

Respond with only a JSON array of strings, like: ["keyword1", "keyword2"]`, text)
}

// clampCategory validates a provider-supplied category against the closed
// list; unrecognized values become "other".
func clampCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	for _, c := range Categories {
		if c == category {
			return c
		}
	}
	return "other"
}

// clampContentType validates a provider-supplied type name against the closed
// enumeration; unrecognized values are treated as absent.
func clampContentType(name string) store.ContentType {
	t := store.ContentType(strings.ToUpper(strings.TrimSpace(name)))
	if t.Valid() {
		return t
	}
	return ""
}

func stringSlice(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
