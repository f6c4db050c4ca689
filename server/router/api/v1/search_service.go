package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type searchResponse struct {
	Query   string             `json:"query"`
	Results []*contentResponse `json:"results"`
	Count   int                `json:"count"`
}

func (s *APIV1Service) SearchContent(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := s.SearchEngine.Search(c.Request().Context(), ownerID(c), query, limit)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, &searchResponse{
		Query:   result.Query,
		Results: toContentResponses(result.Results),
		Count:   result.Count,
	})
}

type suggestionsResponse struct {
	Tags       []string           `json:"tags"`
	Content    []*contentResponse `json:"content"`
	Categories []string           `json:"categories"`
}

func (s *APIV1Service) GetSuggestions(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}

	suggestions, err := s.SearchEngine.GetSuggestions(c.Request().Context(), ownerID(c), query)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, &suggestionsResponse{
		Tags:       suggestions.Tags,
		Content:    toContentResponses(suggestions.Content),
		Categories: suggestions.Categories,
	})
}
