// Bot processing handlers.
//
// These endpoints expose the relay pipeline directly, without any platform
// webhook in front: POST /bot/process runs a message through persistence,
// conversation assembly, and the AI agent synchronously, and GET /bot/health
// probes the agent backend. They are used by internal tools and smoke tests.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/botdo/go-relay-backend/internal/domain"
	"github.com/botdo/go-relay-backend/internal/http/middleware"
	"github.com/botdo/go-relay-backend/internal/services"
)

// AgentHealthChecker probes the AI agent backend.
type AgentHealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// BotHandler bundles the direct-processing endpoints.
type BotHandler struct {
	Relay *services.RelayService
	Agent AgentHealthChecker
}

// ProcessMessageRequest is the direct-processing request body.
type ProcessMessageRequest struct {
	Message   string `json:"message"    binding:"required" example:"¿Cuál es el estado del pedido 1042?"`
	UserID    string `json:"user_id"    binding:"required" example:"U0123456789"`
	ChannelID string `json:"channel_id" binding:"required" example:"C0123456789"`
	// Platform defaults to "web" when omitted.
	Platform  string `json:"platform,omitempty"   example:"web"`
	MessageID string `json:"message_id,omitempty" example:"bdb1b2c3-0000-4000-8000-000000000000"`
	UserName  string `json:"user_name,omitempty"  example:"Ana"`
}

// ProcessMessageResponse is returned by ProcessMessage.
type ProcessMessageResponse struct {
	Response  string `json:"response"`
	MessageID string `json:"message_id"`
	ReplyID   string `json:"reply_id"`
}

// ProcessMessage godoc
// @ID          processMessage
// @Summary     Process a message synchronously
// @Description Runs one message through the full relay pipeline and returns
// @Description the agent's reply. Unlike the platform webhooks this endpoint
// @Description is synchronous and surfaces pipeline errors as HTTP statuses.
// @Tags        Bot
// @Accept      json
// @Produce     json
// @Param       body body handlers.ProcessMessageRequest true "Message"
// @Success     200 {object} handlers.ProcessMessageResponse
// @Failure     400 {object} handlers.ErrorResponse "Bad request"
// @Failure     500 {object} handlers.ErrorResponse "Processing failed"
// @Router      /bot/process [post]
func (b *BotHandler) ProcessMessage(c *gin.Context) {
	var req ProcessMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message, user_id and channel_id are required")
		return
	}

	platform := req.Platform
	switch platform {
	case "":
		platform = domain.PlatformWeb
	case domain.PlatformSlack, domain.PlatformWhatsApp, domain.PlatformWeb:
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown platform")
		return
	}

	msgID := req.MessageID
	if msgID == "" {
		msgID = platform + "_" + uuid.NewString()
	}

	res, err := b.Relay.Process(c.Request.Context(), services.ProcessRequest{
		Platform:          platform,
		PlatformMessageID: msgID,
		PlatformChannelID: req.ChannelID,
		PlatformUserID:    req.UserID,
		Text:              req.Message,
		UserName:          req.UserName,
		Timestamp:         time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, services.ErrEmptyMessage) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message must not be empty")
			return
		}
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Str("platform", platform).Msg("direct processing failed")
		fail(c, http.StatusInternalServerError, ErrCodeProcessFailed, "failed to process message")
		return
	}

	ok(c, http.StatusOK, ProcessMessageResponse{
		Response:  res.Reply,
		MessageID: res.InboundMessageID,
		ReplyID:   res.OutboundMessageID,
	})
}

// BotHealth godoc
// @ID          botHealth
// @Summary     Agent backend health
// @Description Probes the configured AI agent. "degraded" means the service
// @Description is up but the agent did not answer its metadata endpoint.
// @Tags        Bot
// @Produce     json
// @Success     200 {object} map[string]any
// @Router      /bot/health [get]
func (b *BotHandler) BotHealth(c *gin.Context) {
	if b.Agent.HealthCheck(c.Request.Context()) {
		ok(c, http.StatusOK, gin.H{"status": "healthy", "agent": "reachable"})
		return
	}
	ok(c, http.StatusOK, gin.H{"status": "degraded", "agent": "unreachable"})
}
