package conversation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customerRouter(h *harness) http.Handler {
	handler := NewHandler(h.router, h.sessions, nil)
	r := chi.NewRouter()
	r.Route("/v1", handler.Routes)
	return r
}

func send(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMessageEndpointStartsSession(t *testing.T) {
	h := newHarness(t)
	srv := customerRouter(h)

	rec := send(t, srv, http.MethodPost, "/v1/messages", `{"message":"What payment methods do you accept?"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reply Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.NotEmpty(t, reply.SessionID)
	assert.Equal(t, reply.SessionID, rec.Header().Get("X-Session-ID"))
	assert.Equal(t, RouteFAQ, reply.Route)

	rec = send(t, srv, http.MethodGet, "/v1/sessions/"+reply.SessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Len(t, view.History, 2)
	assert.Equal(t, "anonymous", view.AuthState)

	rec = send(t, srv, http.MethodDelete, "/v1/sessions/"+reply.SessionID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = send(t, srv, http.MethodGet, "/v1/sessions/"+reply.SessionID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessageEndpointUsesSessionHeader(t *testing.T) {
	h := newHarness(t)
	srv := customerRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(`{"message":"what is my balance"}`))
	req.Header.Set("X-Session-ID", "s-header")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(t, srv, http.MethodGet, "/v1/sessions/s-header", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending_query":"what is my balance"`)
}

func TestMessageEndpointRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	srv := customerRouter(h)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"message":`},
		{"blank message", `{"message":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(t, srv, http.MethodPost, "/v1/messages", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
