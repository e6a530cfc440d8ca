// Package services – SlackRelay
//
// This file implements the detached processing phase for Slack events: strip
// the bot mention, enrich the sender and channel with Web API lookups, run
// the relay pipeline, and post the reply back into the originating thread.
//
// Everything here runs after the webhook has already been acknowledged, so
// failures are terminal for the event only: they are logged and converted
// into a best-effort apology to the user, never surfaced to the platform.
package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/botdo/go-relay-backend/internal/domain"
	"github.com/botdo/go-relay-backend/internal/slack"
)

// Event kinds recognized by the dispatcher.
const (
	EventKindMention     = "mention"
	EventKindThreadReply = "thread-reply"
	EventKindOther       = "other"
)

// User-facing fallback texts posted when processing fails.
const (
	apologyProcessing = "Lo siento, hubo un error al procesar tu mensaje. Por favor intenta de nuevo."
	apologyUnexpected = "Lo siento, hubo un error inesperado. Por favor intenta de nuevo más tarde."
)

// InboundEvent is the transient, per-delivery description of a platform
// notification. It is never persisted directly; processing translates it
// into a Message record.
type InboundEvent struct {
	Platform    string
	ClientMsgID string // platform-native event id, may be absent
	UserID      string
	ChannelID   string
	Text        string
	MessageTS   string // platform message id (Slack ts)
	EventTS     string
	ThreadTS    string // parent thread, empty outside threads
	ChannelType string
	Kind        string
}

// Identity returns the dedup identity of the event: the platform-native
// client message id when present, else a composite of timestamp, sender and
// channel. Retried deliveries of the same logical event always produce the
// same identity either way.
func (e InboundEvent) Identity() string {
	if e.ClientMsgID != "" {
		return e.ClientMsgID
	}
	return e.EventTS + "_" + e.UserID + "_" + e.ChannelID
}

// SlackGateway is the narrow contract SlackRelay needs from the Slack client.
type SlackGateway interface {
	SendMessage(ctx context.Context, channelID, text, threadTS string) (string, error)
	GetUserInfo(ctx context.Context, userID string) (slack.UserInfo, error)
	GetChannelInfo(ctx context.Context, channelID string) (slack.ChannelInfo, error)
	BotUserID(ctx context.Context) (string, error)
}

// SlackRelay binds the generic relay pipeline to the Slack platform.
type SlackRelay struct {
	Slack SlackGateway
	Relay *RelayService
}

// HandleEvent processes one accepted Slack event end to end. It is invoked
// from the dispatch pool with a background context after the webhook has
// been acknowledged.
func (r *SlackRelay) HandleEvent(ctx context.Context, ev InboundEvent) {
	lg := log.With().
		Str("event_id", ev.Identity()).
		Str("channel", ev.ChannelID).
		Str("kind", ev.Kind).
		Logger()

	replyThread := ev.ThreadTS
	if replyThread == "" {
		replyThread = ev.MessageTS
	}
	defer func() {
		if rec := recover(); rec != nil {
			lg.Error().Interface("panic", rec).Msg("unexpected failure handling event")
			if _, serr := r.Slack.SendMessage(ctx, ev.ChannelID, apologyUnexpected, replyThread); serr != nil {
				lg.Error().Err(serr).Msg("could not deliver apology")
			}
		}
	}()

	botID, err := r.Slack.BotUserID(ctx)
	if err != nil {
		lg.Warn().Err(err).Msg("could not resolve bot user id; stripping all mentions")
	}
	cleaned := slack.StripMention(ev.Text, botID)
	if cleaned == "" {
		lg.Debug().Msg("event text empty after stripping mention; dropping")
		return
	}

	// Display data is enrichment only: lookups failing must not abort the event.
	userName, userEmail := ev.UserID, ""
	if info, err := r.Slack.GetUserInfo(ctx, ev.UserID); err == nil {
		if info.DisplayName != "" {
			userName = info.DisplayName
		}
		userEmail = info.Email
	} else {
		lg.Warn().Err(err).Msg("user info lookup failed")
	}
	channelName := ev.ChannelID
	if info, err := r.Slack.GetChannelInfo(ctx, ev.ChannelID); err == nil {
		channelName = info.Name
	} else {
		lg.Warn().Err(err).Msg("channel info lookup failed")
	}

	result, err := r.Relay.Process(ctx, ProcessRequest{
		Platform:          domain.PlatformSlack,
		PlatformMessageID: ev.MessageTS,
		PlatformChannelID: ev.ChannelID,
		PlatformUserID:    ev.UserID,
		Text:              cleaned,
		UserName:          userName,
		UserEmail:         userEmail,
		ChannelName:       channelName,
		Timestamp:         ParseSlackTS(ev.EventTS),
		Metadata: map[string]any{
			"thread_ts":    ev.ThreadTS,
			"event_ts":     ev.EventTS,
			"channel_type": ev.ChannelType,
		},
	})

	if err != nil {
		lg.Error().Err(err).Msg("event processing failed")
		if _, serr := r.Slack.SendMessage(ctx, ev.ChannelID, apologyProcessing, replyThread); serr != nil {
			// Best effort only: a failed apology must not cascade.
			lg.Error().Err(serr).Msg("could not deliver apology")
		}
		return
	}

	if _, err := r.Slack.SendMessage(ctx, ev.ChannelID, result.Reply, replyThread); err != nil {
		lg.Error().Err(err).Msg("could not deliver reply")
		return
	}
	lg.Info().Str("outbound_id", result.OutboundMessageID).Msg("event processed")
}

// ParseSlackTS converts a Slack timestamp ("1712345678.000200") to a
// time.Time. Unparseable values fall back to the current time.
func ParseSlackTS(ts string) time.Time {
	parts := strings.SplitN(ts, ".", 2)
	sec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Now().UTC()
	}
	var nsec int64
	if len(parts) == 2 {
		if frac, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
			// Slack fractions are microseconds.
			nsec = frac * int64(time.Microsecond)
		}
	}
	return time.Unix(sec, nsec).UTC()
}
