package content_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentforge/admin-console/internal/content"
	"github.com/contentforge/admin-console/internal/testing/consoletest"
	_ "github.com/contentforge/admin-console/testing"
)

func newContentRouter(t *testing.T) (*consoletest.API, http.Handler) {
	t.Helper()
	h := consoletest.New(t)
	api := consoletest.NewAPI()
	api.On(http.MethodGet, "/admin/content-groups", consoletest.JSON(`{
		"data": [
			{"_id": "c1", "title": "Spring launch", "topic": "marketing", "status": "COMPLETED", "completionPercentage": 100,
			 "userId": {"_id": "u1", "email": "ann@example.com", "username": "ann"}, "summary": {"keywordsCount": 12}},
			{"_id": "c2", "title": "Draft post", "topic": "blog", "status": "DRAFT"}
		],
		"pagination": {"page": 2, "limit": 20, "total": 45, "pages": 3}
	}`))
	api.On(http.MethodGet, "/admin/content-groups/c1", consoletest.JSON(`{"_id": "c1", "title": "Spring launch", "status": "COMPLETED"}`))
	h.Sticky = true
	handler := content.NewHandler(h.Logger, content.NewService(api), h.Pages, h.Audit)
	return api, h.Router("/content", func(r chi.Router) { handler.MountRoutes(r) })
}

func TestContentListForwardsStatusAndPage(t *testing.T) {
	api, router := newContentRouter(t)

	res := consoletest.Do(router, consoletest.Get("/content?status=COMPLETED&page=2&sel=c1&sel=gone"))
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Spring launch")
	assert.Contains(t, body, "ann@example.com")

	q := api.Calls[0].Query
	assert.Equal(t, "COMPLETED", q.Get("status"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "createdAt", q.Get("sortBy"))
}

func TestContentBulkDeleteConfirmsTwice(t *testing.T) {
	api, router := newContentRouter(t)
	form := url.Values{"action": {"delete"}, "sel": {"c1", "c2"}, "back": {"/content?status=DRAFT"}}

	res := consoletest.Do(router, consoletest.PostForm("/content/bulk", form))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Delete 2 content items?")

	form.Set("confirmed", "1")
	form.Set("decision", "cancel")
	res = consoletest.Do(router, consoletest.PostForm("/content/bulk", form))
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Empty(t, api.Calls)

	form.Del("confirmed")
	form.Del("decision")
	res = consoletest.Do(router, consoletest.PostForm("/content/bulk", form))
	require.Equal(t, http.StatusOK, res.Code)

	form.Set("confirmed", "1")
	form.Set("decision", "confirm")
	res = consoletest.Do(router, consoletest.PostForm("/content/bulk", form))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "cannot be undone")
	assert.Empty(t, api.Calls)

	form.Set("confirmed", "2")
	res = consoletest.Do(router, consoletest.PostForm("/content/bulk", form))
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/content?status=DRAFT", res.Header().Get("Location"))
	require.Len(t, api.Calls, 1)
	assert.Equal(t, map[string]any{
		"contentIds": []string{"c1", "c2"},
		"action":     "delete",
		"data":       map[string]any{"confirm": true},
	}, api.Calls[0].Payload)
}

func TestContentBulkDeleteIgnoresSkippedPrompts(t *testing.T) {
	api, router := newContentRouter(t)
	form := url.Values{"action": {"delete"}, "sel": {"c1"}, "confirmed": {"2"}, "decision": {"confirm"}}

	res := consoletest.Do(router, consoletest.PostForm("/content/bulk", form))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Delete 1 content item?")
	assert.Empty(t, api.Calls)
}

func TestContentBulkRejectsUnknownAction(t *testing.T) {
	api, router := newContentRouter(t)
	form := url.Values{"action": {"archive"}, "sel": {"c1"}, "confirmed": {"2"}}

	res := consoletest.Do(router, consoletest.PostForm("/content/bulk", form))
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Empty(t, api.Calls)
}

func TestContentDeleteRequiresToken(t *testing.T) {
	api, router := newContentRouter(t)

	res := consoletest.Do(router, consoletest.PostForm("/content/c1/delete", url.Values{"confirmation": {"Delete"}}))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Type DELETE to confirm")
	assert.Empty(t, api.Calls)

	res = consoletest.Do(router, consoletest.PostForm("/content/c1/delete", url.Values{"confirmation": {"DELETE"}}))
	assert.Equal(t, http.StatusSeeOther, res.Code)
	require.Len(t, api.Calls, 1)
	assert.Equal(t, "/admin/content-groups/c1", api.Calls[0].Path)
}

func TestContentDetail(t *testing.T) {
	_, router := newContentRouter(t)

	res := consoletest.Do(router, consoletest.Get("/content/c1"))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Spring launch")
}
