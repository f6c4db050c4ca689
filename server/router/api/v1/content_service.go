package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/castoldi/stash/server/service/content"
	"github.com/castoldi/stash/store"
)

type contentResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	BodyText     string         `json:"bodyText,omitempty"`
	URL          string         `json:"url,omitempty"`
	ThumbnailURL string         `json:"thumbnailUrl,omitempty"`
	Source       string         `json:"source,omitempty"`
	Tags         []string       `json:"tags"`
	Category     string         `json:"category,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	Priority     int            `json:"priority"`
	IsFavorite   bool           `json:"isFavorite"`
	IsArchived   bool           `json:"isArchived"`
	AccessCount  int            `json:"accessCount"`
	CreatedTs    int64          `json:"createdTs"`
	UpdatedTs    int64          `json:"updatedTs"`
	AccessedTs   int64          `json:"accessedTs"`
}

func toContentResponse(c *store.Content) *contentResponse {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &contentResponse{
		ID:           c.ID,
		Type:         string(c.Type),
		Title:        c.Title,
		Description:  c.Description,
		BodyText:     c.BodyText,
		URL:          c.URL,
		ThumbnailURL: c.ThumbnailURL,
		Source:       c.Source,
		Tags:         tags,
		Category:     c.Category,
		Metadata:     metadata,
		Priority:     c.Priority,
		IsFavorite:   c.IsFavorite,
		IsArchived:   c.IsArchived,
		AccessCount:  c.AccessCount,
		CreatedTs:    c.CreatedTs,
		UpdatedTs:    c.UpdatedTs,
		AccessedTs:   c.AccessedTs,
	}
}

func toContentResponses(list []*store.Content) []*contentResponse {
	responses := make([]*contentResponse, 0, len(list))
	for _, c := range list {
		responses = append(responses, toContentResponse(c))
	}
	return responses
}

type createContentRequest struct {
	Type         string         `json:"type"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	BodyText     string         `json:"bodyText"`
	URL          string         `json:"url"`
	ThumbnailURL string         `json:"thumbnailUrl"`
	Source       string         `json:"source"`
	Tags         []string       `json:"tags"`
	Category     string         `json:"category"`
	Metadata     map[string]any `json:"metadata"`
	Priority     int            `json:"priority"`
}

func (s *APIV1Service) CreateContent(c echo.Context) error {
	var req createContentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	created, err := s.ContentService.Create(c.Request().Context(), ownerID(c), &content.CreateRequest{
		Type:         store.ContentType(req.Type),
		Title:        req.Title,
		Description:  req.Description,
		BodyText:     req.BodyText,
		URL:          req.URL,
		ThumbnailURL: req.ThumbnailURL,
		Source:       req.Source,
		Tags:         req.Tags,
		Category:     req.Category,
		Metadata:     req.Metadata,
		Priority:     req.Priority,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toContentResponse(created))
}

func (s *APIV1Service) GetContent(c echo.Context) error {
	got, err := s.ContentService.GetByID(c.Request().Context(), ownerID(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toContentResponse(got))
}

type listContentResponse struct {
	Contents []*contentResponse `json:"contents"`
	Total    int                `json:"total"`
}

func (s *APIV1Service) ListContent(c echo.Context) error {
	find := &store.FindContent{
		OwnerID:   ownerID(c),
		OrderBy:   c.QueryParam("orderBy"),
		SortOrder: c.QueryParam("sortOrder"),
	}
	if v := c.QueryParam("type"); v != "" {
		t := store.ContentType(v)
		if !t.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown content type")
		}
		find.Type = &t
	}
	if v := c.QueryParam("category"); v != "" {
		find.Category = &v
	}
	if v := c.QueryParams()["tag"]; len(v) > 0 {
		find.TagsAny = v
	}
	if v := c.QueryParam("favorite"); v != "" {
		favorite := v == "true"
		find.IsFavorite = &favorite
	}
	if v := c.QueryParam("archived"); v != "" {
		archived := v == "true"
		find.IsArchived = &archived
	}
	if v := c.QueryParam("search"); v != "" {
		find.Search = &v
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		find.Limit = &limit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil && offset > 0 {
		find.Offset = &offset
	}

	list, total, err := s.ContentService.List(c.Request().Context(), find)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, &listContentResponse{
		Contents: toContentResponses(list),
		Total:    total,
	})
}

type updateContentRequest struct {
	Type         *string         `json:"type"`
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	BodyText     *string         `json:"bodyText"`
	URL          *string         `json:"url"`
	ThumbnailURL *string         `json:"thumbnailUrl"`
	Tags         *[]string       `json:"tags"`
	Category     *string         `json:"category"`
	Metadata     *map[string]any `json:"metadata"`
	Priority     *int            `json:"priority"`
	IsFavorite   *bool           `json:"isFavorite"`
	IsArchived   *bool           `json:"isArchived"`
}

func (s *APIV1Service) UpdateContent(c echo.Context) error {
	var req updateContentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	patch := &content.UpdateRequest{
		Title:        req.Title,
		Description:  req.Description,
		BodyText:     req.BodyText,
		URL:          req.URL,
		ThumbnailURL: req.ThumbnailURL,
		Tags:         req.Tags,
		Category:     req.Category,
		Metadata:     req.Metadata,
		Priority:     req.Priority,
		IsFavorite:   req.IsFavorite,
		IsArchived:   req.IsArchived,
	}
	if req.Type != nil {
		t := store.ContentType(*req.Type)
		patch.Type = &t
	}

	updated, err := s.ContentService.Update(c.Request().Context(), ownerID(c), c.Param("id"), patch)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toContentResponse(updated))
}

func (s *APIV1Service) DeleteContent(c echo.Context) error {
	if err := s.ContentService.Delete(c.Request().Context(), ownerID(c), c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
