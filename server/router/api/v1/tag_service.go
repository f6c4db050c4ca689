package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/castoldi/stash/store"
)

type tagResponse struct {
	Name       string `json:"name"`
	UsageCount int    `json:"usageCount"`
}

func (s *APIV1Service) ListTags(c echo.Context) error {
	find := &store.FindTagUsage{OwnerID: ownerID(c)}
	if v := c.QueryParam("q"); v != "" {
		find.NameContains = &v
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		find.Limit = &limit
	}

	usages, err := s.Store.ListTagUsage(c.Request().Context(), find)
	if err != nil {
		return toHTTPError(err)
	}
	tags := make([]*tagResponse, 0, len(usages))
	for _, usage := range usages {
		tags = append(tags, &tagResponse{Name: usage.Name, UsageCount: usage.UsageCount})
	}
	return c.JSON(http.StatusOK, tags)
}
