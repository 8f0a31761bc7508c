package api

import (
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/pkg/handlers"
	"github.com/JaimeStill/vigil/pkg/routes"
	"github.com/JaimeStill/vigil/pkg/storage"
)

type recordingsHandler struct {
	store  storage.System
	logger *logrus.Entry
}

func newRecordingsHandler(store storage.System, logger *logrus.Entry) *recordingsHandler {
	return &recordingsHandler{
		store:  store,
		logger: logger.WithField("handler", "recordings"),
	}
}

func (h *recordingsHandler) routes() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: http.MethodGet, Pattern: "/{key}", Handler: h.download},
		},
	}
}

// download streams an archived recording.
func (h *recordingsHandler) download(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	body, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", path.Base(key)))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.WithError(err).WithField("key", key).Warn("recording stream interrupted")
	}
}
