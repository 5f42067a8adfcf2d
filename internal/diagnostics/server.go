// Package diagnostics serves a local ops endpoint for the client: health,
// session status, and Prometheus metrics. It binds only when an address is
// configured and never exposes credentials or session content.
package diagnostics

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/termbridge/termbridge/internal/config"
	"github.com/termbridge/termbridge/internal/logging"
	"github.com/termbridge/termbridge/internal/monitoring"
	"github.com/termbridge/termbridge/internal/session"
)

// Server is the local ops HTTP server.
type Server struct {
	engine    *session.Engine
	metrics   *monitoring.Metrics
	logger    *logging.Logger
	srv       *http.Server
	startTime time.Time
}

// New builds the server with routes and middleware wired. The gatherer is
// the registry the engine metrics live on.
func New(cfg config.DiagnosticsConfig, engine *session.Engine, metrics *monitoring.Metrics, gatherer prometheus.Gatherer, logger *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(rateLimit(cfg))

	s := &Server{
		engine:    engine,
		metrics:   metrics,
		logger:    logger,
		startTime: time.Now(),
	}

	router.GET("/health", s.handleHealth)
	router.GET("/status", s.handleStatus)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until Shutdown. Blocks; callers run it on its own goroutine.
func (s *Server) Run() error {
	s.logger.Info("diagnostics server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	s.metrics.UpdateUptime()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"service":        "termbridge",
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      s.engine.Status().String(),
		"has_session": s.engine.SessionID() != "",
	})
}

// rateLimit applies a global limiter; the ops endpoint is a convenience
// surface, not a serving path.
func rateLimit(cfg config.DiagnosticsConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
