package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bnema/gestation-osc/internal/application"
	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/bnema/gestation-osc/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	DefaultAddr     = "127.0.0.1:9050"
	shutdownTimeout = 5 * time.Second
)

// Controller is the slice of the application service the API drives.
type Controller interface {
	Snapshot(ctx context.Context) application.Snapshot
	RecheckAvatar(ctx context.Context) error
	SaveAndMutate(ctx context.Context, mutation application.Mutation) (application.Snapshot, error)
}

type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// Server is the local control API used by the CLI and by overlays.
type Server struct {
	cfg     ServerConfig
	ctrl    Controller
	router  *gin.Engine
	logger  zerolog.Logger
	started time.Time
}

func NewServer(cfg ServerConfig, ctrl Controller, logger zerolog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	logger = logger.With().Str("component", "api").Logger()

	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware("api"))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{cfg: cfg, ctrl: ctrl, router: r, logger: logger, started: time.Now()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(s.started).Truncate(time.Second).String(),
		})
	})
	s.router.GET("/metrics", gin.WrapH(observability.Handler()))

	v1 := s.router.Group("/v1")
	v1.GET("/state", s.getState)
	v1.POST("/avatar/recheck", s.recheck)
	v1.POST("/record/mutations", s.mutate)
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, NewStateResponse(s.ctrl.Snapshot(c.Request.Context())))
}

func (s *Server) recheck(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.ctrl.RecheckAvatar(ctx); err != nil {
		state := NewStateResponse(s.ctrl.Snapshot(ctx))
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error(), State: &state})
		return
	}
	c.JSON(http.StatusOK, NewStateResponse(s.ctrl.Snapshot(ctx)))
}

func (s *Server) mutate(c *gin.Context) {
	var req MutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}

	mutation, err := req.Mutation()
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}

	snapshot, err := s.ctrl.SaveAndMutate(c.Request.Context(), mutation)
	state := NewStateResponse(snapshot)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error(), State: &state})
		return
	}
	c.JSON(http.StatusOK, state)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrInactive):
		return http.StatusConflict
	case errors.Is(err, application.ErrUnknownMutation),
		errors.Is(err, domain.ErrInvalidGestationTime),
		errors.Is(err, domain.ErrInvalidGestationUnit):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen api %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("control api listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
