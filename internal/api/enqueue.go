package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/queue"
	"github.com/JaimeStill/vigil/internal/workitem"
	"github.com/JaimeStill/vigil/pkg/handlers"
	"github.com/JaimeStill/vigil/pkg/routes"
)

const maxWorkItemBytes = 1 << 20

// EnqueueResponse acknowledges an accepted work item.
type EnqueueResponse struct {
	MessageID int64  `json:"messageId"`
	CallID    string `json:"callId"`
}

type enqueueHandler struct {
	queue  queue.Queue
	calls  calls.System
	logger *logrus.Entry
}

func newEnqueueHandler(q queue.Queue, callSys calls.System, logger *logrus.Entry) *enqueueHandler {
	return &enqueueHandler{
		queue:  q,
		calls:  callSys,
		logger: logger.WithField("handler", "enqueue"),
	}
}

func (h *enqueueHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/calls",
		Routes: []routes.Route{
			{Method: http.MethodPost, Pattern: "", Handler: h.enqueue},
		},
	}
}

func (h *enqueueHandler) enqueue(w http.ResponseWriter, r *http.Request) {
	var item workitem.CallWorkItem
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWorkItemBytes))
	if err := dec.Decode(&item); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, &workitem.MalformedError{Err: err})
		return
	}

	id, err := workitem.Submit(r.Context(), h.queue, h.calls, item)
	if err != nil {
		status := http.StatusInternalServerError
		if workitem.IsMalformed(err) {
			status = http.StatusBadRequest
		}
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"call_id":    item.CallID,
		"owner_id":   item.OwnerID,
		"message_id": id,
	}).Info("work item enqueued")

	handlers.RespondJSON(w, http.StatusAccepted, EnqueueResponse{MessageID: id, CallID: item.CallID})
}
