// Package server serves the agent systems over HTTP: a single-page chat UI,
// a JSON API for sessions and turns, SSE streaming of node events, graph
// diagrams and Prometheus metrics.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/smallnest/agentdesk/llm"
	"github.com/smallnest/agentdesk/log"
	"github.com/smallnest/agentdesk/metrics"
	"github.com/smallnest/agentdesk/render"
	"github.com/smallnest/agentdesk/store"
	"github.com/smallnest/agentdesk/store/memory"
	"github.com/smallnest/agentdesk/tool"
)

//go:embed web
var webFS embed.FS

// Options configures a Server.
type Options struct {
	// Models creates the model of a turn from the request's API key.
	Models llm.Factory
	// Store keeps conversations; nil uses an in-memory store.
	Store          store.CheckpointStore
	MaxCheckpoints int
	MaxIterations  int
	RecursionLimit int
	// Retries re-runs nodes after upstream model failures.
	Retries int
	Tools   *tool.Catalog
	// Registry receives the metrics and backs /metrics; nil creates one.
	Registry        *prometheus.Registry
	Mode            string
	ShutdownTimeout time.Duration
	// TurnRate limits turns per second across all sessions; 0 disables it.
	TurnRate  float64
	TurnBurst int
}

type deps struct {
	store          store.CheckpointStore
	tools          *tool.Catalog
	metrics        *metrics.Metrics
	maxCheckpoints int
	maxIterations  int
	recursionLimit int
	retries        int
}

// Server is the HTTP surface.
type Server struct {
	engine          *gin.Engine
	models          llm.Factory
	systems         map[string]conversation
	sessions        *sessionRegistry
	renderer        *render.Renderer
	metrics         *metrics.Metrics
	limiter         *rate.Limiter
	shutdownTimeout time.Duration
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Models == nil {
		return nil, errors.New("server requires a model factory")
	}
	if opts.Store == nil {
		opts.Store = memory.NewMemoryCheckpointStore()
	}
	if opts.Tools == nil {
		opts.Tools = tool.NewCatalog(nil)
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	m := metrics.New(opts.Registry)
	d := deps{
		store:          opts.Store,
		tools:          opts.Tools,
		metrics:        m,
		maxCheckpoints: opts.MaxCheckpoints,
		maxIterations:  opts.MaxIterations,
		recursionLimit: opts.RecursionLimit,
		retries:        opts.Retries,
	}
	s := &Server{
		models: opts.Models,
		systems: map[string]conversation{
			SystemSupport:   newSupportConversation(d),
			SystemReasoning: newReasoningConversation(d),
		},
		sessions:        newSessionRegistry(),
		renderer:        render.New(),
		metrics:         m,
		shutdownTimeout: opts.ShutdownTimeout,
	}

	if opts.TurnRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.TurnRate), max(opts.TurnBurst, 1))
	}

	static, err := fs.Sub(webFS, "web")
	if err != nil {
		return nil, err
	}
	s.engine = s.routes(static, opts.Registry)
	return s, nil
}

func (s *Server) routes(static fs.FS, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/", func(c *gin.Context) {
		c.FileFromFS("/", http.FS(static))
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.GET("/health", s.health)
	api.GET("/systems", s.listSystems)
	api.GET("/graphs/:system", s.drawGraph)

	api.POST("/sessions", s.createSession)
	api.GET("/sessions", s.listSessions)
	api.GET("/sessions/:id", s.getSession)
	api.DELETE("/sessions/:id", s.deleteSession)
	api.DELETE("/sessions/:id/messages", s.clearSession)
	api.POST("/sessions/:id/messages", s.limit(), s.postMessage)
	api.POST("/sessions/:id/stream", s.limit(), s.streamMessage)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server: listening on %s", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		log.Info("server: shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// limit rejects turns beyond the configured rate.
func (s *Server) limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again shortly."})
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("http: %s %s %d %s", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
		case status >= http.StatusBadRequest:
			log.Warn("http: %s %s %d %s", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
		default:
			log.Debug("http: %s %s %d %s", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
		}
	}
}
