// Package services – RelayService
//
// This file implements the platform-independent processing pipeline for one
// inbound message: upsert the sender and channel, persist the inbound
// message, assemble bounded conversation context, call the AI agent, persist
// the reply, and hand the reply text back to the caller.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// platform and channel identifiers.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/botdo/go-relay-backend/internal/agent"
	"github.com/botdo/go-relay-backend/internal/domain"
	"github.com/botdo/go-relay-backend/internal/repo"
)

// AgentClient is the narrow contract RelayService needs from the AI backend.
type AgentClient interface {
	Send(ctx context.Context, dialogue []agent.Turn, maxTokens int, temperature float64) (string, error)
	HealthCheck(ctx context.Context) bool
}

// ProcessRequest describes one inbound message to run through the pipeline.
type ProcessRequest struct {
	Platform          string
	PlatformMessageID string
	PlatformChannelID string
	PlatformUserID    string
	Text              string
	UserName          string
	UserEmail         string
	ChannelName       string
	Timestamp         time.Time
	Metadata          map[string]any
}

// ProcessResult is the outcome of a processed message.
type ProcessResult struct {
	Reply             string
	InboundMessageID  string // row id of the persisted user message
	OutboundMessageID string // row id of the persisted bot message
}

// RelayService owns the persist → assemble → agent → persist pipeline.
type RelayService struct {
	DB    *gorm.DB
	Agent AgentClient

	// HistoryLimit bounds the conversation context; defaults to 20.
	HistoryLimit int
	// MaxTokens / Temperature are passed through to the agent call.
	MaxTokens   int
	Temperature float64
}

// historyLimit returns the configured context bound with its default.
func (s *RelayService) historyLimit() int {
	if s.HistoryLimit > 0 {
		return s.HistoryLimit
	}
	return 20
}

// Process runs the full pipeline for one inbound message.
//
// The inbound persist is idempotent on the platform message id, so a
// redelivered event that slipped past the dedup cache re-reads the existing
// row instead of duplicating it. Agent failures propagate to the caller,
// which owns the user-visible fallback.
func (s *RelayService) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	tr := otel.Tracer("services/RelayService")
	ctx, span := tr.Start(ctx, "Process",
		trace.WithAttributes(
			attribute.String("platform", req.Platform),
			attribute.String("channel.platform_id", req.PlatformChannelID),
		),
	)
	defer span.End()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	user, err := repo.GetOrCreateUser(ctx, s.DB, req.Platform, req.PlatformUserID, req.UserName, req.UserEmail, req.Metadata)
	if err != nil {
		return nil, err
	}
	channel, err := repo.GetOrCreateChannel(ctx, s.DB, req.Platform, req.PlatformChannelID, req.ChannelName, req.Metadata)
	if err != nil {
		return nil, err
	}

	inbound, err := repo.SaveMessage(ctx, s.DB, repo.SaveMessageParams{
		MessageID:  req.PlatformMessageID,
		Platform:   req.Platform,
		Direction:  domain.DirectionInbound,
		SenderType: domain.SenderUser,
		Text:       text,
		Timestamp:  ts,
		UserID:     &user.ID,
		ChannelID:  &channel.ID,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	history, err := repo.ListConversation(ctx, s.DB, channel.ID, s.historyLimit())
	if err != nil {
		return nil, err
	}
	dialogue := AssembleDialogue(history, text)

	reply, err := s.Agent.Send(ctx, dialogue, s.MaxTokens, s.Temperature)
	if err != nil {
		return nil, err
	}

	outMeta := map[string]any{"in_reply_to": req.PlatformMessageID}
	for k, v := range req.Metadata {
		outMeta[k] = v
	}
	outbound, err := repo.SaveMessage(ctx, s.DB, repo.SaveMessageParams{
		MessageID:  req.Platform + "_bot_" + uuid.NewString(),
		Platform:   req.Platform,
		Direction:  domain.DirectionOutbound,
		SenderType: domain.SenderBot,
		Text:       reply,
		Timestamp:  time.Now().UTC(),
		ChannelID:  &channel.ID,
		Metadata:   outMeta,
	})
	if err != nil {
		return nil, err
	}

	return &ProcessResult{
		Reply:             reply,
		InboundMessageID:  inbound.ID,
		OutboundMessageID: outbound.ID,
	}, nil
}
