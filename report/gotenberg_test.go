package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPostsMultipartHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "true", r.FormValue("landscape"))
		assert.Equal(t, "analytics", r.Header.Get("Gotenberg-Output-Filename"))
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "index.html", header.Filename)
		body, _ := io.ReadAll(file)
		assert.Equal(t, "<h1>hi</h1>", string(body))
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer srv.Close()

	pdf, err := NewClient(srv.URL+"/").Render(context.Background(), Document{Name: "analytics.html", HTML: "<h1>hi</h1>", Landscape: true})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf))
}

func TestRenderReportsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Render(context.Background(), Document{HTML: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "chromium crashed")
}

func TestUnconfiguredClient(t *testing.T) {
	c := NewClient("")
	assert.False(t, c.Configured())
	assert.ErrorIs(t, c.Ping(context.Background()), ErrNotConfigured)
	_, err := c.Render(context.Background(), Document{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
