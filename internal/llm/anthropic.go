package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog/log"

	"github.com/getsentry/sentry-mcp-sub001/config"
)

const (
	defaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion         = "2023-06-01"
	maxTransportRetries      = 3
)

// ErrMissingAPIKey is a configuration fault: it is raised at construction
// time, never per request.
var ErrMissingAPIKey = errors.New("anthropic API key is not configured")

// AnthropicClient implements Provider against the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	model      string
	endpoint   string
	maxTokens  int
	httpClient *http.Client
}

func NewAnthropicClient(cfg *config.Config) (*AnthropicClient, error) {
	if cfg.Anthropic.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	maxTokens := cfg.Anthropic.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	timeout := cfg.Anthropic.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &AnthropicClient{
		apiKey:    cfg.Anthropic.APIKey,
		model:     cfg.Anthropic.Model,
		endpoint:  defaultAnthropicEndpoint,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Wire types for the Messages API.

type messagesRequest struct {
	Model     string       `json:"model"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
	MaxTokens int          `json:"max_tokens"`
	Tools     []apiTool    `json:"tools,omitempty"`
}

type apiMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type      string                 `json:"type"`
	Text      string                 `json:"text,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Input     map[string]interface{} `json:"input,omitempty"`
	ToolUseID string                 `json:"tool_use_id,omitempty"`
	Content   string                 `json:"content,omitempty"`
}

// MarshalJSON keeps "input" present on tool_use blocks even when empty;
// the Messages API rejects tool_use blocks without it.
func (cb contentBlock) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"type": cb.Type}
	if cb.Text != "" {
		m["text"] = cb.Text
	}
	if cb.ID != "" {
		m["id"] = cb.ID
	}
	if cb.Name != "" {
		m["name"] = cb.Name
	}
	if cb.Type == "tool_use" {
		if cb.Input == nil {
			m["input"] = map[string]interface{}{}
		} else {
			m["input"] = cb.Input
		}
	}
	if cb.ToolUseID != "" {
		m["tool_use_id"] = cb.ToolUseID
	}
	if cb.Content != "" {
		m["content"] = cb.Content
	}
	return json.Marshal(m)
}

type apiTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema apiInputSchema `json:"input_schema"`
}

type apiInputSchema struct {
	Type       string                            `json:"type"`
	Properties map[string]map[string]interface{} `json:"properties,omitempty"`
	Required   []string                          `json:"required,omitempty"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Chat sends one completion call and returns the model's reply,
// including any tool invocations it requested.
func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, tools []Tool) (*Response, error) {
	system, apiMessages := convertMessages(messages)

	req := &messagesRequest{
		Model:     c.model,
		System:    system,
		Messages:  apiMessages,
		MaxTokens: c.maxTokens,
		Tools:     convertTools(tools),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.callAPI(ctx, body)
	if err != nil {
		return nil, err
	}

	out := &Response{
		StopReason: resp.StopReason,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	return out, nil
}

// callAPI posts the request, retrying 429/529 responses with exponential
// backoff. Any other non-2xx status is permanent.
func (c *AnthropicClient) callAPI(ctx context.Context, body []byte) (*messagesResponse, error) {
	var resp messagesResponse

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", anthropicVersion)

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("anthropic request failed: %w", err))
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to read response body: %w", err))
		}

		// 429 (rate limited) and 529 (overloaded) are transient.
		if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode == 529 {
			log.Warn().Int("status", httpResp.StatusCode).Msg("Anthropic API throttled, backing off")
			return fmt.Errorf("anthropic API throttled (status %d)", httpResp.StatusCode)
		}
		if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("anthropic API error (status %d): %s", httpResp.StatusCode, string(respBody)))
		}

		if err := json.Unmarshal(respBody, &resp); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to parse anthropic response: %w", err))
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxTransportRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return &resp, nil
}

func convertMessages(messages []Message) (string, []apiMessage) {
	var system string
	var apiMessages []apiMessage

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content

		case "user":
			apiMessages = append(apiMessages, apiMessage{
				Role:    "user",
				Content: []contentBlock{{Type: "text", Text: msg.Content}},
			})

		case "assistant":
			var content []contentBlock
			if msg.Content != "" {
				content = append(content, contentBlock{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				content = append(content, contentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: tc.Input,
				})
			}
			if len(content) > 0 {
				apiMessages = append(apiMessages, apiMessage{Role: "assistant", Content: content})
			}

		case "tool":
			apiMessages = append(apiMessages, apiMessage{
				Role: "user",
				Content: []contentBlock{{
					Type:      "tool_result",
					ToolUseID: msg.ToolUseID,
					Content:   msg.Content,
				}},
			})
		}
	}
	return system, apiMessages
}

func convertTools(tools []Tool) []apiTool {
	var apiTools []apiTool
	for _, tool := range tools {
		props := make(map[string]map[string]interface{}, len(tool.InputSchema.Properties))
		for name, prop := range tool.InputSchema.Properties {
			p := map[string]interface{}{"type": prop.Type}
			if prop.Description != "" {
				p["description"] = prop.Description
			}
			if len(prop.Enum) > 0 {
				p["enum"] = prop.Enum
			}
			props[name] = p
		}
		apiTools = append(apiTools, apiTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: apiInputSchema{
				Type:       tool.InputSchema.Type,
				Properties: props,
				Required:   tool.InputSchema.Required,
			},
		})
	}
	return apiTools
}

var _ Provider = (*AnthropicClient)(nil)
