package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"autokittens/internal/control"
	"autokittens/internal/game"
	"autokittens/internal/runtime/loop"
	"autokittens/internal/task"
	logx "autokittens/pkg/logx"

	"github.com/gin-gonic/gin"
)

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, task.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, task.ErrInvalidInterval), errors.Is(err, game.ErrUnknownRace), errors.Is(err, control.ErrNotPeriodic),
		errors.Is(err, control.ErrNotTrader):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, loop.ErrStopped), errors.Is(err, loop.ErrFull):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= 500 {
		s.log.Warn("request failed", logx.String("path", c.FullPath()), logx.Err(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) listTasks(c *gin.Context) {
	tasks, err := s.ctrl.Tasks(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (s *Server) getTask(c *gin.Context) {
	v, err := s.ctrl.Task(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) taskAction(fn func(ctx context.Context, name string) (control.TaskView, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := fn(c.Request.Context(), c.Param("name"))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

type intervalRequest struct {
	Minutes int `json:"minutes" binding:"required"`
}

func (s *Server) setInterval(c *gin.Context) {
	var req intervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := s.ctrl.SetInterval(c.Request.Context(), c.Param("name"), req.Minutes)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type raceRequest struct {
	// Race may be empty to clear the selection.
	Race string `json:"race"`
}

func (s *Server) selectRace(c *gin.Context) {
	var req raceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := s.ctrl.SelectRace(c.Request.Context(), c.Param("name"), strings.TrimSpace(req.Race))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) startAll(c *gin.Context) {
	names, err := s.ctrl.StartAll(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": names})
}

func (s *Server) pauseAll(c *gin.Context) {
	names, err := s.ctrl.PauseAll(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": names})
}

func (s *Server) races(c *gin.Context) {
	races, err := s.ctrl.Races(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"races": races})
}
