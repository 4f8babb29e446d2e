package v1

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/decorchat/internal/profile"
	"github.com/hrygo/decorchat/plugin/ai"
	"github.com/hrygo/decorchat/plugin/ai/agent"
	"github.com/hrygo/decorchat/server/service/chat"
)

type fakeChat struct {
	err       error
	threadIDs []string
	messages  []string
}

func (f *fakeChat) StartChat(_ context.Context, message string) (*chat.StartChatResult, error) {
	f.messages = append(f.messages, message)
	if f.err != nil {
		return nil, f.err
	}
	return &chat.StartChatResult{ThreadID: "1700000000000", Response: "We have a Ruby Glass Vase for $44.99."}, nil
}

func (f *fakeChat) ContinueChat(_ context.Context, threadID, message string) (*chat.ContinueChatResult, error) {
	f.threadIDs = append(f.threadIDs, threadID)
	f.messages = append(f.messages, message)
	if f.err != nil {
		return nil, f.err
	}
	return &chat.ContinueChatResult{Response: "Blue ones are in stock too."}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func newTestServer(svc ChatService, db Pinger) *echo.Echo {
	e := echo.New()
	api := &APIV1Service{Profile: &profile.Profile{Version: "test"}, ChatService: svc, DB: db}
	api.RegisterRoutes(e)
	return e
}

func post(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestStartChatHandler(t *testing.T) {
	svc := &fakeChat{}
	rec := post(newTestServer(svc, nil), "/api/v1/chat", `{"message":"Do you have a red vase?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"threadId":"1700000000000","response":"We have a Ruby Glass Vase for $44.99."}`, rec.Body.String())
	assert.Equal(t, []string{"Do you have a red vase?"}, svc.messages)
}

func TestContinueChatHandler(t *testing.T) {
	svc := &fakeChat{}
	rec := post(newTestServer(svc, nil), "/api/v1/chat/1700000000000", `{"message":"What about blue ones?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"Blue ones are in stock too."}`, rec.Body.String())
	assert.Equal(t, []string{"1700000000000"}, svc.threadIDs)
}

func TestChatHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed body", "/api/v1/chat", `{"message":`},
		{"empty message", "/api/v1/chat", `{"message":"   "}`},
		{"missing message", "/api/v1/chat/42", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeChat{}
			rec := post(newTestServer(svc, nil), tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			assert.Empty(t, svc.messages)
		})
	}
}

func TestChatHandler_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantBody   string
		retryAfter string
	}{
		{
			name:     "internal failure hides details",
			err:      agent.ClassifyError(errors.New("mongo exploded: secret detail")),
			wantBody: `{"error":"Internal server error"}`,
		},
		{
			name:     "unauthorized is reported generically",
			err:      agent.ClassifyError(ai.ErrUnauthorized),
			wantBody: `{"error":"Internal server error"}`,
		},
		{
			name:     "recursion limit",
			err:      agent.ClassifyError(agent.ErrRecursionLimit),
			wantBody: `{"error":"Internal server error"}`,
		},
		{
			name:       "rate limit carries user text",
			err:        agent.ClassifyError(ai.ErrRateLimited),
			wantBody:   `{"error":"Service temporarily unavailable due to rate limits. Please try again in a minute."}`,
			retryAfter: "60",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/api/v1/chat", "/api/v1/chat/7"} {
				rec := post(newTestServer(&fakeChat{err: tt.err}, nil), path, `{"message":"hi"}`)
				assert.Equal(t, http.StatusInternalServerError, rec.Code)
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
				assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestChatHandler_EmptyMessageFromService(t *testing.T) {
	rec := post(newTestServer(&fakeChat{err: chat.ErrEmptyMessage}, nil), "/api/v1/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	newTestServer(&fakeChat{}, fakePinger{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	newTestServer(&fakeChat{}, fakePinger{err: errors.New("down")}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
