// Package v1 exposes the HTTP surface: owner-scoped content CRUD, similarity
// search, and tag listing, mapped onto the pipeline and search services.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/castoldi/stash/ai"
	"github.com/castoldi/stash/ai/enrichment"
	"github.com/castoldi/stash/ai/metrics"
	"github.com/castoldi/stash/internal/profile"
	"github.com/castoldi/stash/server/service/content"
	"github.com/castoldi/stash/server/service/search"
	"github.com/castoldi/stash/store"
)

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store

	ContentService *content.Service
	SearchEngine   *search.Engine
}

func NewAPIV1Service(p *profile.Profile, st *store.Store, m *metrics.Metrics) *APIV1Service {
	var generator ai.Generator
	if p.IsAIEnabled() {
		cfg := ai.NewConfigFromProfile(p)
		if err := cfg.Validate(); err == nil {
			if g, err := ai.NewGenerator(&cfg.LLM); err == nil {
				generator = g
			}
		}
	}

	enricher := enrichment.NewEnricher(generator, m)
	var extractor ai.KeywordExtractor
	if generator != nil {
		extractor = enricher
	}
	embedding := ai.NewEmbeddingService(extractor)

	return &APIV1Service{
		Profile:        p,
		Store:          st,
		ContentService: content.NewService(st, enricher, embedding),
		SearchEngine:   search.NewEngine(st, embedding, m),
	}
}

// RegisterRoutes mounts the v1 API on the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1", ownerContext)

	g.POST("/contents", s.CreateContent)
	g.GET("/contents", s.ListContent)
	g.GET("/contents/:id", s.GetContent)
	g.PATCH("/contents/:id", s.UpdateContent)
	g.DELETE("/contents/:id", s.DeleteContent)

	g.GET("/search", s.SearchContent)
	g.GET("/search/suggestions", s.GetSuggestions)

	g.GET("/tags", s.ListTags)
}

// toHTTPError maps domain errors onto HTTP status codes. Provider failures
// never reach this point; they degrade inside the services.
func toHTTPError(err error) error {
	var notFound *content.NotFoundError
	if errors.As(err, &notFound) {
		return echo.NewHTTPError(http.StatusNotFound, notFound.Error())
	}
	var validation *content.ValidationError
	if errors.As(err, &validation) {
		return echo.NewHTTPError(http.StatusBadRequest, validation.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
