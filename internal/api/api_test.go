package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/vigil/internal/agents"
	"github.com/JaimeStill/vigil/internal/api"
	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/evaluations"
	"github.com/JaimeStill/vigil/internal/queue"
	"github.com/JaimeStill/vigil/internal/workitem"
	"github.com/JaimeStill/vigil/pkg/lifecycle"
	"github.com/JaimeStill/vigil/pkg/logger"
	"github.com/JaimeStill/vigil/pkg/pagination"
	"github.com/JaimeStill/vigil/pkg/storage"
)

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Start(*lifecycle.Coordinator) error { return nil }

func (m *memoryStore) Upload(_ context.Context, key string, r io.Reader, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = b
	return nil
}

func (m *memoryStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memoryStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://store.test/" + key, nil
}

func domain() (*api.Domain, *queue.Memory) {
	q := queue.NewMemory()
	return &api.Domain{
		Agents:      agents.NewMemory(),
		Calls:       calls.NewMemory(),
		Evaluations: evaluations.NewMemory(),
		Queue:       q,
	}, q
}

func TestEnqueue(t *testing.T) {
	d, q := domain()
	router := api.NewAPIRouter(d, pagination.Defaults(), logger.Discard())

	body := `{"callId":"c1","stereoRecordingUrl":"https://store/x.mp3","ownerId":"org1","agentId":"a1","createdAt":"2024-01-01T00:00:00Z"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/calls", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp api.EnqueueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "c1", resp.CallID)
	assert.Equal(t, 1, q.Pending())

	msgs, err := q.Receive(context.Background(), 1, time.Minute)
	require.NoError(t, err)
	item, err := workitem.Decode(msgs[0].Body)
	require.NoError(t, err)
	assert.Equal(t, "false", item.Metadata["test"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calls/c1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var call calls.Call
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &call))
	assert.Equal(t, calls.StatusQueued, call.Status)
	assert.Equal(t, "c1", call.CustomerCallID)
}

func TestEnqueueRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"callId":`},
		{"missing owner", `{"callId":"c1","stereoRecordingUrl":"https://store/x.mp3","createdAt":"2024-01-01T00:00:00Z"}`},
		{"missing created at", `{"callId":"c1","stereoRecordingUrl":"https://store/x.mp3","ownerId":"org1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, q := domain()
			router := api.NewAPIRouter(d, pagination.Defaults(), logger.Discard())

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/calls", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 0, q.Pending())
		})
	}
}

func TestFindCall(t *testing.T) {
	d, _ := domain()
	_, err := d.Calls.Upsert(context.Background(), &calls.Call{ID: "c1", OwnerID: "org1", Duration: 42})
	require.NoError(t, err)

	router := api.NewAPIRouter(d, pagination.Defaults(), logger.Discard())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calls/c1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var call calls.Call
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &call))
	assert.Equal(t, 42.0, call.Duration)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calls/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCall(t *testing.T) {
	d, _ := domain()
	require.NoError(t, d.Calls.Register(context.Background(), &calls.Call{ID: "c1", OwnerID: "org1"}))

	router := api.NewAPIRouter(d, pagination.Defaults(), logger.Discard())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/calls/c1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calls/c1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/calls/c1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCalls(t *testing.T) {
	d, _ := domain()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, d.Calls.Register(ctx, &calls.Call{ID: id, OwnerID: "org1", CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	require.NoError(t, d.Calls.Register(ctx, &calls.Call{ID: "other", OwnerID: "org2", CreatedAt: base}))

	router := api.NewAPIRouter(d, pagination.Defaults(), logger.Discard())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calls?ownerId=org1&pageSize=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page pagination.PageResult[calls.Call]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "c3", page.Data[0].ID)
	assert.Equal(t, "c2", page.Data[1].ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calls", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordings(t *testing.T) {
	store := &memoryStore{objects: map[string][]byte{"c1-1.wav": []byte("RIFF")}}
	router := api.NewRecordingsRouter(store, logger.Discard())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/c1-1.wav", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, "RIFF", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope.wav", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
