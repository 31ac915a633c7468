package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cropwise/kisan/pkg/thread"
)

func (s *Server) getThreads(c echo.Context) error {
	threads, err := s.store.GetAllThreads(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to list threads: %v", err))
	}
	if threads == nil {
		threads = []*thread.Thread{}
	}
	return c.JSON(http.StatusOK, threads)
}

func (s *Server) getThread(c echo.Context) error {
	t, err := s.store.GetThread(c.Request().Context(), c.Param("id"))
	if errors.Is(err, thread.ErrNotFound) || errors.Is(err, thread.ErrEmptyID) {
		return echo.NewHTTPError(http.StatusNotFound, "thread not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to load thread: %v", err))
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) deleteThread(c echo.Context) error {
	id := c.Param("id")
	err := s.store.DeleteThread(c.Request().Context(), id)
	if errors.Is(err, thread.ErrNotFound) || errors.Is(err, thread.ErrEmptyID) {
		return echo.NewHTTPError(http.StatusNotFound, "thread not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to delete thread: %v", err))
	}

	// Thread-scoped suggestions make no sense once the thread is gone.
	if err := s.store.ClearSuggestedQueries(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to clear suggestions: %v", err))
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "thread deleted"})
}

func (s *Server) clearThreads(c echo.Context) error {
	if err := s.store.ClearAllThreads(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to clear threads: %v", err))
	}
	if err := s.store.ClearSuggestedQueries(c.Request().Context(), ""); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to clear suggestions: %v", err))
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "threads cleared"})
}

type exportResponse struct {
	Threads    []*thread.Thread `json:"threads"`
	ExportedAt string           `json:"exportedAt"`
}

func (s *Server) exportThreads(c echo.Context) error {
	threads, err := s.store.GetAllThreads(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to export threads: %v", err))
	}
	if threads == nil {
		threads = []*thread.Thread{}
	}
	return c.JSON(http.StatusOK, exportResponse{
		Threads:    threads,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) importThreads(c echo.Context) error {
	var req struct {
		Threads []*thread.Thread `json:"threads"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	if len(req.Threads) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no threads provided")
	}

	// Skip structurally invalid entries instead of failing the batch.
	valid := make([]*thread.Thread, 0, len(req.Threads))
	for _, t := range req.Threads {
		if t == nil || t.ID == "" || len(t.Messages) == 0 {
			continue
		}
		if t.Title == "" {
			t.Title = thread.DefaultTitle
		}
		valid = append(valid, t)
	}
	if len(valid) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no valid threads in batch")
	}

	if err := s.store.SaveThreads(c.Request().Context(), valid); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to import threads: %v", err))
	}
	return c.JSON(http.StatusOK, map[string]int{"imported": len(valid)})
}
