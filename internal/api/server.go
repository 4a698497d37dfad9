// Package api exposes the read-only analytics surface over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"expvar"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mwhitton/chattersignal/internal/analytics"
	"github.com/mwhitton/chattersignal/internal/store"
)

// Server is an HTTP API server over the signal ledger. Every endpoint is
// read-only; mutation happens through the CLI.
type Server struct {
	store     store.Store
	engine    *analytics.Engine
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies.
func NewServer(st store.Store, engine *analytics.Engine, logger *slog.Logger, authToken string) *Server {
	return &Server{
		store:     st,
		engine:    engine,
		logger:    logger,
		authToken: authToken,
	}
}

// Handler returns a gin engine with all routes registered.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// Health check, no auth required.
	r.GET("/healthz", s.handleHealthz)

	v1 := r.Group("/api/v1", s.auth())
	v1.GET("/top-entities", s.handleTopEntities)
	v1.GET("/velocity/:entity", s.handleVelocity)
	v1.GET("/distribution/:entity", s.handleDistribution)
	v1.GET("/discoveries", s.handleDiscoveries)
	v1.GET("/signals/:comment", s.handleSignals)
	v1.GET("/stats", s.handleStats)

	// Expvar counters, auth-gated like the rest of the API.
	r.GET("/debug/vars", s.auth(), gin.WrapH(expvar.Handler()))

	return r
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("api server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// --- middleware ---

// auth enforces Bearer token authentication when authToken is set.
func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authToken == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// --- handlers ---

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleTopEntities(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days <= 0 {
		days = 7
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 {
		limit = 10
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	reports, err := s.engine.TopEntities(c.Request.Context(), from, to, limit)
	if err != nil {
		s.logger.Error("top entities failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from":     from,
		"to":       to,
		"entities": reports,
	})
}

func (s *Server) handleVelocity(c *gin.Context) {
	entityID := c.Param("entity")

	v, err := s.engine.ComputeLiveVelocity(c.Request.Context(), entityID)
	if err != nil {
		s.logger.Error("velocity failed", "entity", entityID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleDistribution(c *gin.Context) {
	entityID := c.Param("entity")
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days <= 0 {
		days = 7
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	report, err := s.engine.Distribution(c.Request.Context(), entityID, from, to)
	if err != nil {
		s.logger.Error("distribution failed", "entity", entityID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleDiscoveries(c *gin.Context) {
	minMentions, _ := strconv.ParseInt(c.DefaultQuery("min_mentions", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 {
		limit = 20
	}
	unreviewedOnly := c.DefaultQuery("unreviewed", "true") != "false"

	discoveries, err := s.store.ListDiscoveries(c.Request.Context(), minMentions, unreviewedOnly, limit)
	if err != nil {
		s.logger.Error("list discoveries failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"discoveries": discoveries})
}

func (s *Server) handleSignals(c *gin.Context) {
	commentID := c.Param("comment")

	signals, err := s.store.SignalsForComment(c.Request.Context(), commentID)
	if err != nil {
		s.logger.Error("signals lookup failed", "comment", commentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if len(signals) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no signals for comment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
