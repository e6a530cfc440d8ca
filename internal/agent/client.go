// Package agent implements the HTTP client for the downstream conversational
// AI endpoint (a DigitalOcean agent or any OpenAI-compatible host).
//
// The response envelope differs between deployments, so extraction is an
// ordered list of strategies tried in sequence rather than nested
// conditionals; new envelope shapes are additive.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Dialogue roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request timeouts are fixed: one attempt per call, no retry.
const (
	sendTimeout   = 30 * time.Second
	healthTimeout = 10 * time.Second
)

// FallbackReply is returned when the agent answers 2xx with an envelope no
// extraction strategy recognizes.
const FallbackReply = "Lo siento, hubo un error al procesar tu solicitud."

// directAgentHostMarker identifies a per-agent base URL, which exposes the
// OpenAI-compatible chat-completions path instead of the general API path.
const directAgentHostMarker = ".agents.do-ai.run"

// Turn is one role-tagged utterance in the dialogue sent to the agent.
// Derived per request, never persisted.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// APIError reports a non-2xx answer from the agent endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("agent: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the configured agent endpoint.
type Client struct {
	BaseURL string
	AgentID string
	APIKey  string

	// HTTPClient is used for send calls; defaults to a 30s-timeout client.
	HTTPClient *http.Client
	// HealthClient is used for health probes; defaults to a 10s-timeout client.
	HealthClient *http.Client
}

// NewClient builds a Client with the fixed per-call timeouts.
func NewClient(baseURL, agentID, apiKey string) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		AgentID:      agentID,
		APIKey:       apiKey,
		HTTPClient:   &http.Client{Timeout: sendTimeout},
		HealthClient: &http.Client{Timeout: healthTimeout},
	}
}

// chatEndpoint resolves the send URL. The branch is decided by deployment
// configuration, not per request: a direct per-agent host speaks the
// OpenAI-compatible path, the general API host routes by agent id.
func (c *Client) chatEndpoint() string {
	if strings.Contains(c.BaseURL, directAgentHostMarker) {
		return c.BaseURL + "/api/v1/chat/completions"
	}
	return c.BaseURL + "/ai/agents/" + c.AgentID + "/chat"
}

// extractor is one (name, extract) strategy for pulling the reply text out
// of a decoded response envelope. Extract returns ok=false when the shape
// does not match; the next strategy is tried.
type extractor struct {
	name    string
	extract func(map[string]any) (string, bool)
}

// extractors are tried in priority order.
var extractors = []extractor{
	{
		name: "choices[0].message.content",
		extract: func(data map[string]any) (string, bool) {
			choices, ok := data["choices"].([]any)
			if !ok || len(choices) == 0 {
				return "", false
			}
			first, ok := choices[0].(map[string]any)
			if !ok {
				return "", false
			}
			msg, ok := first["message"].(map[string]any)
			if !ok {
				return "", false
			}
			content, ok := msg["content"].(string)
			return content, ok
		},
	},
	{
		name: "response",
		extract: func(data map[string]any) (string, bool) {
			s, ok := data["response"].(string)
			return s, ok
		},
	},
	{
		name: "message",
		extract: func(data map[string]any) (string, bool) {
			s, ok := data["message"].(string)
			return s, ok
		},
	},
}

// Send posts the dialogue to the agent and returns the reply text.
//
// Network failures and non-2xx statuses are returned as errors (the caller
// decides the user-visible fallback). A 2xx answer whose envelope matches no
// strategy is not an error: the fixed FallbackReply is returned and the
// unexpected shape is logged.
func (c *Client) Send(ctx context.Context, dialogue []Turn, maxTokens int, temperature float64) (string, error) {
	tr := otel.Tracer("agent/Client")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.Int("dialogue.turns", len(dialogue)),
			attribute.Int("max_tokens", maxTokens),
		),
	)
	defer span.End()

	payload := map[string]any{
		"messages":    dialogue,
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("agent: marshal request: %w", err)
	}

	endpoint := c.chatEndpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("agent: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("agent: send: %w", err)
	}
	defer resp.Body.Close()

	var data map[string]any
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(buf.String())}
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("agent: decode response: %w", err)
	}

	for _, ex := range extractors {
		if reply, ok := ex.extract(data); ok {
			span.SetAttributes(attribute.String("agent.envelope", ex.name))
			return reply, nil
		}
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	log.Warn().Strs("keys", keys).Str("endpoint", endpoint).
		Msg("agent returned unrecognized response envelope")
	return FallbackReply, nil
}

// HealthCheck probes the agent metadata endpoint. It returns false on any
// network or non-2xx failure; one attempt, no retry.
func (c *Client) HealthCheck(ctx context.Context) bool {
	endpoint := c.BaseURL + "/ai/agents/" + c.AgentID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.healthClient().Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("agent health check failed")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: sendTimeout}
}

func (c *Client) healthClient() *http.Client {
	if c.HealthClient != nil {
		return c.HealthClient
	}
	return &http.Client{Timeout: healthTimeout}
}
