// Package routes declares HTTP routes as data and registers them on a chi
// router.
package routes

import (
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
)

// Route binds an HTTP method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group nests routes under Prefix. Children inherit the prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register mounts every route in groups onto r.
func Register(r chi.Router, groups ...Group) {
	for _, g := range groups {
		g.register(r, "")
	}
}

func (g Group) register(r chi.Router, parent string) {
	prefix := parent + g.Prefix
	for _, rt := range g.Routes {
		r.MethodFunc(rt.Method, pattern(prefix, rt.Pattern), rt.Handler)
	}
	for _, child := range g.Children {
		child.register(r, prefix)
	}
}

// pattern joins prefix and suffix without collapsing chi placeholders.
func pattern(prefix, suffix string) string {
	p := prefix + suffix
	if p == "" {
		return "/"
	}
	return path.Clean(p)
}
