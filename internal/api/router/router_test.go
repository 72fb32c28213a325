package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightsmile/dental-chat-widget/internal/conversation"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := conversation.NewService("BrightSmile Dental", nil, nil, nil, nil, nil, nil, conversation.ServiceOptions{})
	handler := conversation.NewHandler(svc, nil, []byte("// widget"), nil)

	reg := prometheus.NewRegistry()
	return New(&Config{
		ChatHandler:        handler,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: []string{"*"},
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWidgetJSRoute(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/widget.js", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/javascript", rec.Header().Get("Content-Type"))
}

func TestChatMessageRoute(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(conversation.MessageRequest{
		SessionID: "sess-1",
		Messages: []conversation.ChatMessage{
			{Role: conversation.ChatRoleUser, Content: "My name is John Smith"},
		},
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/message", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp conversation.MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.NotEmpty(t, resp.Reply)
}

func TestChatRateLimitApplies(t *testing.T) {
	svc := conversation.NewService("BrightSmile Dental", nil, nil, nil, nil, nil, nil, conversation.ServiceOptions{})
	handler := conversation.NewHandler(svc, nil, nil, nil)
	r := New(&Config{
		ChatHandler:       handler,
		ChatRatePerSecond: 1,
		ChatBurst:         1,
	})

	body := []byte(`{"session_id":"s1","messages":[]}`)

	first := httptest.NewRequest(http.MethodPost, "/chat/message", bytes.NewReader(body))
	first.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, first)
	assert.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest(http.MethodPost, "/chat/message", bytes.NewReader(body))
	second.RemoteAddr = "10.0.0.1:1234"
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
