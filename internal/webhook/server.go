// Package webhook hosts the HTTP surface for the bot-list integration: the
// inbound vote webhook and a health endpoint.
package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"warden/internal/config"
	"warden/internal/votes"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// votePayload matches the bot list's webhook body. User and Bot arrive as
// snowflake strings, the weekend flag as a bool.
type votePayload struct {
	User      string `json:"user" binding:"required"`
	Bot       string `json:"bot"`
	Type      string `json:"type"`
	IsWeekend bool   `json:"isWeekend"`
}

// VoteSink receives validated vote events. Satisfied by votes.Ledger via the
// bot's wrapper that also sends the thank-you DM.
type VoteSink interface {
	ReceiveVote(ctx context.Context, event votes.Event)
}

type Server struct {
	cfg    config.WebhookConfig
	logger *zap.Logger
	sink   VoteSink
	engine *gin.Engine
	srv    *http.Server
}

func NewServer(cfg config.WebhookConfig, logger *zap.Logger, sink VoteSink) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		cfg:    cfg,
		logger: logger,
		sink:   sink,
		engine: engine,
	}

	engine.GET("/health", s.handleHealth)
	engine.POST("/webhook/vote", s.requireSecret(), s.handleVote)
	return s
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// requireSecret rejects requests whose Authorization header does not match
// the shared secret agreed with the bot list.
func (s *Server) requireSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.Secret == "" || c.GetHeader("Authorization") != s.cfg.Secret {
			s.logger.Warn("vote webhook rejected", zap.String("ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleVote(c *gin.Context) {
	var payload votePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad payload"})
		return
	}

	s.sink.ReceiveVote(c.Request.Context(), votes.Event{
		UserID:    payload.User,
		IsWeekend: payload.IsWeekend,
		Type:      payload.Type,
	})
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// Start begins serving in a goroutine. Errors other than a clean shutdown
// are logged, not returned; the bot keeps running without the webhook.
func (s *Server) Start() {
	s.srv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		s.logger.Info("vote webhook listening", zap.String("addr", s.cfg.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("vote webhook server stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
