package slack

import (
	"context"
	"regexp"
	"strings"
	"sync"

	slackapi "github.com/slack-go/slack"
)

// webAPI is the subset of the slack-go Web API consumed by the relay.
// *slackapi.Client satisfies it; tests substitute a fake.
type webAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
	AuthTestContext(ctx context.Context) (*slackapi.AuthTestResponse, error)
	GetUserInfoContext(ctx context.Context, user string) (*slackapi.User, error)
	GetConversationInfoContext(ctx context.Context, input *slackapi.GetConversationInfoInput) (*slackapi.Channel, error)
}

// Client wraps the Slack Web API for sending replies and resolving user and
// channel display data. All methods take a context and perform one API call.
type Client struct {
	api webAPI

	mu        sync.Mutex
	botUserID string // cached auth.test result
}

// NewClient builds a Client from a bot token.
func NewClient(botToken string) *Client {
	return &Client{api: slackapi.New(botToken)}
}

// UserInfo is the subset of a Slack user profile the relay records.
type UserInfo struct {
	ID          string
	DisplayName string
	Email       string
}

// ChannelInfo is the subset of Slack channel data the relay records.
type ChannelInfo struct {
	ID   string
	Name string
}

// SendMessage posts text to a channel, threading under threadTS when set.
// It returns the platform-assigned message timestamp (Slack's message id).
func (c *Client) SendMessage(ctx context.Context, channelID, text, threadTS string) (string, error) {
	opts := []slackapi.MsgOption{slackapi.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slackapi.MsgOptionTS(threadTS))
	}
	_, ts, err := c.api.PostMessageContext(ctx, channelID, opts...)
	return ts, err
}

// GetUserInfo resolves display data for a platform user id.
func (c *Client) GetUserInfo(ctx context.Context, userID string) (UserInfo, error) {
	u, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return UserInfo{}, err
	}
	name := u.RealName
	if name == "" {
		name = u.Name
	}
	return UserInfo{ID: u.ID, DisplayName: name, Email: u.Profile.Email}, nil
}

// GetChannelInfo resolves display data for a platform channel id.
// conversations.info works for every channel type (public, private, DM).
func (c *Client) GetChannelInfo(ctx context.Context, channelID string) (ChannelInfo, error) {
	ch, err := c.api.GetConversationInfoContext(ctx, &slackapi.GetConversationInfoInput{ChannelID: channelID})
	if err != nil {
		return ChannelInfo{}, err
	}
	name := ch.Name
	if name == "" {
		name = channelID
	}
	return ChannelInfo{ID: ch.ID, Name: name}, nil
}

// BotUserID returns the bot's own user id, resolving it via auth.test on
// first use and caching the result for the process lifetime.
func (c *Client) BotUserID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", err
	}
	c.botUserID = resp.UserID
	return c.botUserID, nil
}

// HealthCheck verifies the bot token against auth.test and returns the bot
// user id and team name.
func (c *Client) HealthCheck(ctx context.Context) (botUserID, team string, err error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", "", err
	}
	return resp.UserID, resp.Team, nil
}

// mentionRE matches Slack mention tokens like <@U0123ABC>.
var mentionRE = regexp.MustCompile(`<@[A-Z0-9]+>`)

// StripMention removes the bot's mention token from text. When botUserID is
// known only that token is removed; otherwise every mention token is dropped.
// The result is whitespace-trimmed and may be empty.
func StripMention(text, botUserID string) string {
	if botUserID != "" {
		return strings.TrimSpace(strings.ReplaceAll(text, "<@"+botUserID+">", ""))
	}
	return strings.TrimSpace(mentionRE.ReplaceAllString(text, ""))
}
