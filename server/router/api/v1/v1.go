package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/decorchat/internal/profile"
	"github.com/hrygo/decorchat/server/service/chat"
	"github.com/hrygo/decorchat/store"
)

// ChatService is the conversation surface the API exposes.
type ChatService interface {
	StartChat(ctx context.Context, message string) (*chat.StartChatResult, error)
	ContinueChat(ctx context.Context, threadID, message string) (*chat.ContinueChatResult, error)
}

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type APIV1Service struct {
	Profile     *profile.Profile
	ChatService ChatService
	DB          Pinger
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, chatService ChatService) *APIV1Service {
	service := &APIV1Service{
		Profile:     profile,
		ChatService: chatService,
	}
	if store != nil {
		service.DB = store.GetDriver().GetDB()
	}
	return service
}

// RegisterRoutes registers the chat and health routes with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	echoServer.GET("/healthz", s.Health)

	group := echoServer.Group("/api/v1")
	group.POST("/chat", s.StartChat)
	group.POST("/chat/:threadId", s.ContinueChat)
}

// Health reports 200 when the database answers a ping.
func (s *APIV1Service) Health(c echo.Context) error {
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	version := ""
	if s.Profile != nil {
		version = s.Profile.Version
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
}
