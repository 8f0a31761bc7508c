package calls

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/pkg/handlers"
	"github.com/JaimeStill/vigil/pkg/pagination"
	"github.com/JaimeStill/vigil/pkg/routes"
)

// Handler provides HTTP endpoints for reading analysed calls.
type Handler struct {
	sys        System
	logger     *logrus.Entry
	pagination pagination.Config
}

var errOwnerRequired = errors.New("ownerId query parameter is required")

// NewHandler creates a Handler over sys. A zero pages config falls back
// to the pagination defaults.
func NewHandler(sys System, logger *logrus.Entry, pages pagination.Config) *Handler {
	if pages.MaxPageSize == 0 {
		pages = pagination.Defaults()
	}
	return &Handler{
		sys:        sys,
		logger:     logger.WithField("handler", "calls"),
		pagination: pages,
	}
}

// Routes returns the route group definition for call endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/calls",
		Routes: []routes.Route{
			{Method: http.MethodGet, Pattern: "", Handler: h.List},
			{Method: http.MethodGet, Pattern: "/{id}", Handler: h.Find},
			{Method: http.MethodDelete, Pattern: "/{id}", Handler: h.Delete},
		},
	}
}

// Find returns a call with its transcript, metrics, and evaluation results.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	call, err := h.sys.Find(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, call)
}

// Delete hides a call from the read endpoints.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sys.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List returns one page of an owner's calls. ownerId is required; page,
// pageSize, search, sort, agentId, and status are optional.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	ownerID := values.Get("ownerId")
	if ownerID == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errOwnerRequired)
		return
	}

	page := pagination.FromQuery(values, h.pagination)
	result, err := h.sys.List(r.Context(), ownerID, page, FiltersFromQuery(values))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}
