package v1

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/decorchat/server/internal/errors"
	"github.com/hrygo/decorchat/server/internal/observability"
	"github.com/hrygo/decorchat/server/service/chat"
)

// ChatRequest is the body of both chat routes.
type ChatRequest struct {
	Message string `json:"message"`
}

// StartChatResponse is returned by POST /api/v1/chat.
type StartChatResponse struct {
	ThreadID string `json:"threadId"`
	Response string `json:"response"`
}

// ContinueChatResponse is returned by POST /api/v1/chat/:threadId.
type ContinueChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// rateLimitRetryAfter tells clients throttled by the model provider when to come back.
const rateLimitRetryAfter = "60"

// StartChat handles POST /api/v1/chat.
func (s *APIV1Service) StartChat(c echo.Context) error {
	reqCtx := observability.FromContextOrNew(c.Request().Context())
	message, err := bindMessage(c)
	if err != nil {
		return s.writeError(c, reqCtx, err)
	}
	reqCtx.Info("chat started", slog.Int(observability.LogFieldMessageLen, len(message)))

	result, err := s.ChatService.StartChat(c.Request().Context(), message)
	if err != nil {
		return s.writeError(c, reqCtx, err)
	}
	reqCtx.SetThreadID(result.ThreadID)
	reqCtx.Info("chat answered", slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return c.JSON(http.StatusOK, &StartChatResponse{ThreadID: result.ThreadID, Response: result.Response})
}

// ContinueChat handles POST /api/v1/chat/:threadId.
func (s *APIV1Service) ContinueChat(c echo.Context) error {
	reqCtx := observability.FromContextOrNew(c.Request().Context())
	threadID := strings.TrimSpace(c.Param("threadId"))
	reqCtx.SetThreadID(threadID)
	if threadID == "" {
		return s.writeError(c, reqCtx, errors.InvalidArgument("threadId is required"))
	}
	message, err := bindMessage(c)
	if err != nil {
		return s.writeError(c, reqCtx, err)
	}
	reqCtx.Info("chat continued", slog.Int(observability.LogFieldMessageLen, len(message)))

	result, err := s.ChatService.ContinueChat(c.Request().Context(), threadID, message)
	if err != nil {
		return s.writeError(c, reqCtx, err)
	}
	reqCtx.Info("chat answered", slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return c.JSON(http.StatusOK, &ContinueChatResponse{Response: result.Response})
}

func bindMessage(c echo.Context) (string, error) {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return "", errors.InvalidArgument("request body must be JSON with a message field")
	}
	if strings.TrimSpace(req.Message) == "" {
		return "", errors.InvalidArgument("message is required")
	}
	return req.Message, nil
}

// writeError logs the diagnostic and answers with the public text only.
func (s *APIV1Service) writeError(c echo.Context, reqCtx *observability.RequestContext, err error) error {
	var aiErr *errors.AIError
	switch {
	case stderrors.As(err, &aiErr):
	case stderrors.Is(err, chat.ErrEmptyMessage):
		aiErr = errors.InvalidArgument("message is required")
	default:
		aiErr = errors.FromAgentError(err)
	}

	status := aiErr.HTTPStatus()
	attrs := []slog.Attr{
		slog.String(observability.LogFieldErrorCode, string(aiErr.Code)),
		slog.Int(observability.LogFieldStatus, status),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	}
	if status >= http.StatusInternalServerError {
		reqCtx.Error("chat failed", aiErr, attrs...)
	} else {
		reqCtx.Warn("chat rejected", append(attrs, slog.String("reason", aiErr.Message))...)
	}

	if aiErr.Code == errors.ErrCodeRateLimitExceeded {
		c.Response().Header().Set("Retry-After", rateLimitRetryAfter)
	}
	return c.JSON(status, &ErrorResponse{Error: aiErr.PublicMessage()})
}
