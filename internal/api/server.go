// Package api serves blackjack sessions over HTTP and websockets.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/session"
)

// Options configures the HTTP server
type Options struct {
	Addr        string
	CORSOrigins []string
	// Validator checks bearer tokens. Nil disables authentication.
	Validator auth.Validator
}

// Server is the HTTP front end for a session manager
type Server struct {
	addr      string
	manager   *session.Manager
	validator auth.Validator
	hub       *hub
	router    *gin.Engine
	logger    *log.Logger
}

// NewServer creates the server and registers its routes
func NewServer(manager *session.Manager, opts Options, logger *log.Logger) *Server {
	if opts.Validator == nil {
		opts.Validator = auth.NoopValidator{}
	}
	s := &Server{
		addr:      opts.Addr,
		manager:   manager,
		validator: opts.Validator,
		logger:    logger.WithPrefix("api"),
	}
	s.hub = newHub(s.logger)
	s.router = s.routes(opts.CORSOrigins)
	return s
}

func (s *Server) routes(origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	corsConfig := cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", s.handleHealth)

	g := r.Group("/api/game", authenticate(s.validator, s.logger))
	{
		g.GET("", s.handleList)
		g.POST("/start", s.handleStart)
		g.GET("/:id", s.handleGet)
		g.DELETE("/:id", s.handleDelete)
		g.POST("/:id/bet", s.handleBet)
		g.POST("/:id/deal", s.handleDeal)
		g.POST("/:id/hit", s.handleAction)
		g.POST("/:id/stand", s.handleAction)
		g.POST("/:id/double", s.handleAction)
		g.POST("/:id/split", s.handleAction)
		g.POST("/:id/newhand", s.handleNewHand)
		g.GET("/:id/ws", s.handleWebSocket)
	}
	return r
}

// Handler returns the http.Handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
