// Package httpapi is the control panel: a small JSON API over the task
// registry, a websocket stream of task events, and the metrics endpoint.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"autokittens/internal/control"
	"autokittens/internal/eventbus"
	logx "autokittens/pkg/logx"

	"github.com/gin-gonic/gin"
)

// Controller is what the panel drives. Implementations serialize calls onto
// the task loop.
type Controller interface {
	Tasks(ctx context.Context) ([]control.TaskView, error)
	Task(ctx context.Context, name string) (control.TaskView, error)
	Start(ctx context.Context, name string) (control.TaskView, error)
	Pause(ctx context.Context, name string) (control.TaskView, error)
	Execute(ctx context.Context, name string) (control.TaskView, error)
	SetInterval(ctx context.Context, name string, minutes int) (control.TaskView, error)
	SelectRace(ctx context.Context, name, race string) (control.TaskView, error)
	StartAll(ctx context.Context) ([]string, error)
	PauseAll(ctx context.Context) ([]string, error)
	Races(ctx context.Context) ([]string, error)
}

type Config struct {
	Addr string
	// Token, when set, is required as "Authorization: Bearer <token>" (or
	// ?token= for the websocket).
	Token           string
	ShutdownTimeout time.Duration
	// Pprof mounts net/http/pprof under /debug/pprof.
	Pprof bool
}

type Server struct {
	cfg     Config
	ctrl    Controller
	bus     eventbus.Bus
	metrics http.Handler
	health  func() any
	log     logx.Logger
	engine  *gin.Engine
}

type Option func(*Server)

func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// WithHealth sets the payload served under /healthz.
func WithHealth(fn func() any) Option { return func(s *Server) { s.health = fn } }

func WithLogger(log logx.Logger) Option { return func(s *Server) { s.log = log } }

func New(cfg Config, ctrl Controller, bus eventbus.Bus, opts ...Option) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{cfg: cfg, ctrl: ctrl, bus: bus}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	s.log = s.log.With(logx.String("comp", "httpapi"))
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", s.healthz)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	if s.cfg.Pprof {
		s.mountPprof(r)
	}

	api := r.Group("/api", s.auth())
	api.GET("/tasks", s.listTasks)
	api.POST("/tasks/start-all", s.startAll)
	api.POST("/tasks/pause-all", s.pauseAll)
	api.GET("/tasks/:name", s.getTask)
	api.POST("/tasks/:name/start", s.taskAction(s.ctrl.Start))
	api.POST("/tasks/:name/pause", s.taskAction(s.ctrl.Pause))
	api.POST("/tasks/:name/execute", s.taskAction(s.ctrl.Execute))
	api.PUT("/tasks/:name/interval", s.setInterval)
	api.PUT("/tasks/:name/race", s.selectRace)
	api.GET("/races", s.races)
	api.GET("/events", s.events)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("control panel listening", logx.String("addr", s.cfg.Addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			logx.String("method", c.Request.Method),
			logx.String("path", c.FullPath()),
			logx.Int("status", c.Writer.Status()),
			logx.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) auth() gin.HandlerFunc {
	want := []byte(s.cfg.Token)
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}
		got := c.Query("token")
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			got = strings.TrimPrefix(h, "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.health != nil {
		body["details"] = s.health()
	}
	c.JSON(http.StatusOK, body)
}
