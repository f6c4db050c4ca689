package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/castoldi/stash/internal/profile"
	"github.com/castoldi/stash/store/teststore"
)

func newTestAPI(t *testing.T) *echo.Echo {
	t.Helper()
	st := teststore.New()
	svc := NewAPIV1Service(&profile.Profile{Mode: "dev", Driver: "memory"}, st, nil)
	e := echo.New()
	svc.RegisterRoutes(e)
	return e
}

func doRequest(e *echo.Echo, method, target, owner, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMissingOwnerHeader(t *testing.T) {
	e := newTestAPI(t)
	rec := doRequest(e, http.MethodGet, "/api/v1/contents", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContentCRUD(t *testing.T) {
	e := newTestAPI(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/contents", "1", `{
		"type": "NOTE",
		"title": "Grocery list",
		"bodyText": "milk and coffee beans",
		"tags": ["errands"]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	require.Equal(t, "Grocery list", created["title"])

	rec = doRequest(e, http.MethodGet, "/api/v1/contents/"+id, "1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodPatch, "/api/v1/contents/"+id, "1", `{"priority": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, float64(2), updated["priority"])

	rec = doRequest(e, http.MethodGet, "/api/v1/contents", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Contents []map[string]any `json:"contents"`
		Total    int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Equal(t, 1, listed.Total)

	rec = doRequest(e, http.MethodDelete, "/api/v1/contents/"+id, "1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/v1/contents/"+id, "1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateValidationStatus(t *testing.T) {
	e := newTestAPI(t)
	rec := doRequest(e, http.MethodPost, "/api/v1/contents", "1", `{"type": "NOTE", "title": ""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOwnerScoping(t *testing.T) {
	e := newTestAPI(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/contents", "1", `{"type": "NOTE", "title": "private"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id, _ := created["id"].(string)

	rec = doRequest(e, http.MethodGet, "/api/v1/contents/"+id, "2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/api/v1/contents/"+id, "2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchRequiresQuery(t *testing.T) {
	e := newTestAPI(t)
	rec := doRequest(e, http.MethodGet, "/api/v1/search", "1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchFindsContent(t *testing.T) {
	e := newTestAPI(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/contents", "1", `{
		"type": "NOTE",
		"title": "Reading list",
		"bodyText": "distributed systems papers"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/v1/search?q=distributed+systems", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Query   string           `json:"query"`
		Results []map[string]any `json:"results"`
		Count   int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, "distributed systems", result.Query)
	require.Equal(t, 1, result.Count)
}

func TestListTags(t *testing.T) {
	e := newTestAPI(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/contents", "1", `{
		"type": "NOTE",
		"title": "tagged",
		"tags": ["alpha", "beta"]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/v1/tags", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tags []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tags))
	require.Len(t, tags, 2)
}

func TestGetSuggestionsEndpoint(t *testing.T) {
	e := newTestAPI(t)

	rec := doRequest(e, http.MethodPost, "/api/v1/contents", "1", `{
		"type": "NOTE",
		"title": "golang generics",
		"tags": ["golang"],
		"category": "learning"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/v1/search/suggestions?q=go", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var suggestions struct {
		Tags       []string         `json:"tags"`
		Content    []map[string]any `json:"content"`
		Categories []string         `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suggestions))
	require.Equal(t, []string{"golang"}, suggestions.Tags)
	require.Len(t, suggestions.Content, 1)
}
