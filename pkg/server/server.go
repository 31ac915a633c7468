package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cropwise/kisan/pkg/suggest"
	"github.com/cropwise/kisan/pkg/thread"
)

// Server exposes the chat proxy, suggestion pipeline and thread storage
// over HTTP.
type Server struct {
	e     *echo.Echo
	store thread.Store
	orch  *suggest.Orchestrator

	agentEndpoint string
	client        *http.Client
}

func New(store thread.Store, orch *suggest.Orchestrator, agentEndpoint string, client *http.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())

	if client == nil {
		client = http.DefaultClient
	}

	s := &Server{
		e:             e,
		store:         store,
		orch:          orch,
		agentEndpoint: agentEndpoint,
		client:        client,
	}

	group := e.Group("/api")

	// Proxy a conversation to the agent and stream the reply through
	group.POST("/chat", s.postChat)

	// Generate follow-up suggestions for a conversation
	group.POST("/suggested-queries", s.postSuggestedQueries)
	// Seed initial suggestions from the onboarding profile
	group.POST("/onboarding/suggestions", s.postOnboardingSuggestions)
	// Read stored suggestions for a thread (or the default scope)
	group.GET("/suggestions/:id", s.getSuggestions)

	// List all threads
	group.GET("/threads", s.getThreads)
	// Get a thread by id
	group.GET("/threads/:id", s.getThread)
	// Delete a thread
	group.DELETE("/threads/:id", s.deleteThread)
	// Delete all threads
	group.DELETE("/threads", s.clearThreads)
	// Export every thread for backup
	group.GET("/threads/export", s.exportThreads)
	// Import a previously exported batch
	group.POST("/threads/import", s.importThreads)

	// Health check endpoint
	group.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return s
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := http.Server{
		Handler: s.e,
	}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(ln); err != nil && ctx.Err() == nil {
		slog.Error("Failed to start server", "error", err)
		return err
	}
	return nil
}
