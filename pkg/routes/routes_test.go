package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/vigil/pkg/routes"
)

func TestRegisterNestedGroups(t *testing.T) {
	r := chi.NewRouter()

	echo := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte(body + ":" + chi.URLParam(req, "id")))
		}
	}

	routes.Register(r, routes.Group{
		Prefix: "/api",
		Children: []routes.Group{{
			Prefix: "/calls",
			Routes: []routes.Route{
				{Method: http.MethodGet, Pattern: "/{id}", Handler: echo("find")},
				{Method: http.MethodPost, Pattern: "", Handler: echo("create")},
			},
		}},
	})

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/api/calls/c1", http.StatusOK, "find:c1"},
		{http.MethodPost, "/api/calls", http.StatusOK, "create:"},
		{http.MethodDelete, "/api/calls/c1", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}
