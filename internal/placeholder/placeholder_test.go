package placeholder_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentforge/admin-console/internal/placeholder"
	"github.com/contentforge/admin-console/internal/testing/consoletest"
	_ "github.com/contentforge/admin-console/testing"
)

func TestSectionsRenderFeatureLists(t *testing.T) {
	cases := []struct {
		prefix  string
		section placeholder.Section
		want    []string
	}{
		{"/billing", placeholder.Billing, []string{"Billing &amp; Subscriptions", "Refund processing", "Financial reporting"}},
		{"/security", placeholder.Security, []string{"Security &amp; Monitoring", "Failed login attempts", "IP blocking and access controls"}},
	}
	for _, tc := range cases {
		t.Run(tc.prefix, func(t *testing.T) {
			h := consoletest.New(t)
			handler := placeholder.NewHandler(h.Pages, tc.section)
			router := h.Router(tc.prefix, func(r chi.Router) { handler.MountRoutes(r) })

			res := consoletest.Do(router, consoletest.Get(tc.prefix))
			require.Equal(t, http.StatusOK, res.Code)
			for _, want := range tc.want {
				assert.Contains(t, res.Body.String(), want)
			}
		})
	}
}
