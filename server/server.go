// Package server wires the HTTP API, the MCP endpoint and background runners.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/decorchat/internal/profile"
	"github.com/hrygo/decorchat/server/middleware"
	apiv1 "github.com/hrygo/decorchat/server/router/api/v1"
	"github.com/hrygo/decorchat/server/router/mcp"
	"github.com/hrygo/decorchat/store"
)

// BackgroundRunner is a task that runs until its context is cancelled.
type BackgroundRunner interface {
	Run(ctx context.Context)
}

// Server is the decorchat HTTP server.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	runners    []BackgroundRunner

	runnerCancel context.CancelFunc
	runnerWG     sync.WaitGroup
}

// NewServer builds the echo instance and registers every route.
// mcpServer and runners are optional.
func NewServer(profile *profile.Profile, store *store.Store, chatService apiv1.ChatService, mcpServer *mcp.Server, runners ...BackgroundRunner) *Server {
	s := &Server{
		Profile: profile,
		Store:   store,
		runners: runners,
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.IPExtractor = echo.ExtractIPDirect()
	echoServer.Use(echomw.Recover())
	echoServer.Use(echomw.CORS())
	echoServer.Use(middleware.RequestContext(slog.Default()))
	echoServer.Use(middleware.RateLimit(middleware.NewRateLimiter()))
	s.echoServer = echoServer

	apiv1.NewAPIV1Service(profile, store, chatService).RegisterRoutes(echoServer)
	if mcpServer != nil {
		echoServer.Any(mcp.EndpointPath, echo.WrapHandler(mcpServer.Handler()))
	}
	return s
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echoServer
}

// Start starts the background runners and serves HTTP until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	runnerCtx, cancel := context.WithCancel(ctx)
	s.runnerCancel = cancel
	for _, runner := range s.runners {
		s.runnerWG.Add(1)
		go func(r BackgroundRunner) {
			defer s.runnerWG.Done()
			r.Run(runnerCtx)
		}(runner)
	}

	addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("decorchat server started", "addr", addr, "driver", s.Profile.Driver, "mode", s.Profile.Mode)
	s.echoServer.Server.ReadHeaderTimeout = 10 * time.Second
	if err := s.echoServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones, stops the
// runners and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	if s.runnerCancel != nil {
		s.runnerCancel()
	}
	s.runnerWG.Wait()

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("decorchat stopped properly")
}
