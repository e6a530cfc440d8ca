// Slack connector HTTP handlers.
//
// This file exposes the Slack-facing endpoints:
//   - POST /canales/slack/events  (Event API webhook)
//   - POST /canales/slack/send    (manual/admin message send)
//   - GET  /canales/slack/health  (connector health)
//
// The events endpoint is the hot path of the relay. Ordering is load-bearing:
// read the raw body, verify the signature before parsing anything, classify,
// deduplicate, enqueue detached processing, and only then acknowledge — all
// well inside Slack's 3-second response deadline. Internal errors after
// signature verification still answer HTTP 200, because a non-2xx reply makes
// Slack redeliver the event.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/botdo/go-relay-backend/internal/dedup"
	"github.com/botdo/go-relay-backend/internal/dispatch"
	"github.com/botdo/go-relay-backend/internal/domain"
	"github.com/botdo/go-relay-backend/internal/http/middleware"
	"github.com/botdo/go-relay-backend/internal/services"
	"github.com/botdo/go-relay-backend/internal/slack"
)

// slackEvents counts webhook deliveries by terminal outcome.
var slackEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relay_slack_events_total",
		Help: "Total number of Slack webhook deliveries by outcome.",
	},
	[]string{"outcome"}, // accepted|duplicate|ignored|challenge|unauthorized|malformed
)

func init() {
	prometheus.MustRegister(slackEvents)
}

// SlackHealthChecker reports Slack Web API connectivity (auth.test).
type SlackHealthChecker interface {
	HealthCheck(ctx context.Context) (botUserID, team string, err error)
}

// SlackConnector bundles the dependencies of the Slack endpoints.
type SlackConnector struct {
	SigningSecret string
	Dedup         *dedup.Cache
	Pool          *dispatch.Pool
	Relay         *services.SlackRelay
	Health        SlackHealthChecker
}

// slackEnvelope is the outer Event API payload.
type slackEnvelope struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge"`
	Event     slackEvent `json:"event"`
}

// slackEvent is the inner callback event. Only the fields the dispatcher
// needs are decoded.
type slackEvent struct {
	Type        string `json:"type"`
	User        string `json:"user"`
	BotID       string `json:"bot_id"`
	Subtype     string `json:"subtype"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	Text        string `json:"text"`
	TS          string `json:"ts"`
	EventTS     string `json:"event_ts"`
	ThreadTS    string `json:"thread_ts"`
	ClientMsgID string `json:"client_msg_id"`
}

// classify maps the inner event to a dispatch kind. Recognized kinds are a
// direct mention of the bot, and a user-authored, non-system, non-bot message
// inside a thread (conversation continuation). Everything else is dropped.
func (e slackEvent) classify() string {
	switch {
	case e.Type == "app_mention":
		return services.EventKindMention
	case e.Type == "message" && e.ThreadTS != "" && e.BotID == "" && e.Subtype == "" && e.User != "":
		return services.EventKindThreadReply
	default:
		return services.EventKindOther
	}
}

// SlackEvents godoc
// @ID          slackEvents
// @Summary     Slack Event API webhook
// @Description Receives events from Slack: answers URL verification
// @Description challenges, authenticates the delivery signature, deduplicates
// @Description retried deliveries, and dispatches accepted events for
// @Description background processing. Always answers 200 once authenticated.
// @Tags        Slack Connector
// @Accept      json
// @Produce     json
// @Success     200 {object} map[string]any
// @Failure     401 {object} handlers.ErrorResponse "Invalid signature"
// @Router      /canales/slack/events [post]
func (s *SlackConnector) SlackEvents(c *gin.Context) {
	lg := middleware.LoggerFrom(c)

	// Raw body first: the signature covers the exact bytes on the wire.
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slackEvents.WithLabelValues("malformed").Inc()
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}

	timestamp := c.GetHeader("X-Slack-Request-Timestamp")
	signature := c.GetHeader("X-Slack-Signature")
	if !slack.VerifySignature(timestamp, raw, signature, s.SigningSecret) {
		slackEvents.WithLabelValues("unauthorized").Inc()
		lg.Warn().Str("timestamp", timestamp).Msg("slack signature verification failed")
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid signature")
		return
	}

	var env slackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Authenticated but unparseable: acknowledge to stop redelivery.
		slackEvents.WithLabelValues("malformed").Inc()
		lg.Warn().Err(err).Msg("slack event payload did not parse")
		ok(c, http.StatusOK, gin.H{"ok": true, "error": "malformed payload"})
		return
	}

	switch env.Type {
	case "url_verification":
		slackEvents.WithLabelValues("challenge").Inc()
		ok(c, http.StatusOK, gin.H{"challenge": env.Challenge})
		return
	case "event_callback":
		// handled below
	default:
		slackEvents.WithLabelValues("ignored").Inc()
		lg.Info().Str("type", env.Type).Msg("unknown slack envelope type ignored")
		ok(c, http.StatusOK, gin.H{"ok": true})
		return
	}

	kind := env.Event.classify()
	if kind == services.EventKindOther {
		slackEvents.WithLabelValues("ignored").Inc()
		lg.Info().Str("event_type", env.Event.Type).Msg("slack event type ignored")
		ok(c, http.StatusOK, gin.H{"ok": true})
		return
	}

	ev := services.InboundEvent{
		Platform:    domain.PlatformSlack,
		ClientMsgID: env.Event.ClientMsgID,
		UserID:      env.Event.User,
		ChannelID:   env.Event.Channel,
		Text:        env.Event.Text,
		MessageTS:   env.Event.TS,
		EventTS:     env.Event.EventTS,
		ThreadTS:    env.Event.ThreadTS,
		ChannelType: env.Event.ChannelType,
		Kind:        kind,
	}

	if s.Dedup.Seen(ev.Identity()) {
		slackEvents.WithLabelValues("duplicate").Inc()
		lg.Info().Str("event_id", ev.Identity()).Msg("duplicate slack event skipped")
		ok(c, http.StatusOK, gin.H{"ok": true})
		return
	}

	// Acknowledge before processing: the worker pool owns the rest.
	s.Pool.Enqueue(dispatch.Job{
		Name: "slack-event",
		Run: func(ctx context.Context) {
			s.Relay.HandleEvent(ctx, ev)
		},
	})

	slackEvents.WithLabelValues("accepted").Inc()
	lg.Info().
		Str("event_id", ev.Identity()).
		Str("kind", kind).
		Str("channel", ev.ChannelID).
		Msg("slack event accepted")
	ok(c, http.StatusOK, gin.H{"ok": true})
}

// SendSlackMessageRequest is the manual-send request body.
type SendSlackMessageRequest struct {
	Channel  string `json:"channel" binding:"required" example:"C0123456789"`
	Text     string `json:"text"    binding:"required" example:"Hello from the relay"`
	ThreadTS string `json:"thread_ts,omitempty" example:"1712345678.000200"`
}

// SendSlackMessage godoc
// @ID          sendSlackMessage
// @Summary     Send a Slack message
// @Description Posts a message to a Slack channel (manual/admin use).
// @Tags        Slack Connector
// @Accept      json
// @Produce     json
// @Param       body body handlers.SendSlackMessageRequest true "Message"
// @Success     200 {object} map[string]any
// @Failure     400 {object} handlers.ErrorResponse "Bad request"
// @Failure     500 {object} handlers.ErrorResponse "Send failed"
// @Router      /canales/slack/send [post]
func (s *SlackConnector) SendSlackMessage(c *gin.Context) {
	var req SendSlackMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "channel and text are required")
		return
	}

	ts, err := s.Relay.Slack.SendMessage(c.Request.Context(), req.Channel, req.Text, req.ThreadTS)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSendFailed, "failed to send message")
		return
	}
	ok(c, http.StatusOK, gin.H{
		"success":    true,
		"message_ts": ts,
		"channel":    req.Channel,
	})
}

// SlackHealth godoc
// @ID          slackHealth
// @Summary     Slack connector health
// @Description Verifies the bot token against auth.test.
// @Tags        Slack Connector
// @Produce     json
// @Success     200 {object} map[string]any
// @Router      /canales/slack/health [get]
func (s *SlackConnector) SlackHealth(c *gin.Context) {
	botID, team, err := s.Health.HealthCheck(c.Request.Context())
	if err != nil {
		ok(c, http.StatusOK, gin.H{
			"status":    "unhealthy",
			"connected": false,
			"error":     err.Error(),
		})
		return
	}
	ok(c, http.StatusOK, gin.H{
		"status":      "healthy",
		"connected":   true,
		"bot_user_id": botID,
		"team":        team,
	})
}
