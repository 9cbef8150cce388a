package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getsentry/sentry-mcp-sub001/config"
)

func newTestAnthropicClient(t *testing.T, serverURL string) *AnthropicClient {
	t.Helper()
	cfg := &config.Config{}
	cfg.Anthropic.APIKey = "test-key"
	cfg.Anthropic.Model = "claude-sonnet-4-5-20250929"
	cfg.Anthropic.Timeout = 5 * time.Second

	client, err := NewAnthropicClient(cfg)
	require.NoError(t, err)
	client.endpoint = serverURL
	return client
}

func TestNewAnthropicClientRequiresAPIKey(t *testing.T) {
	_, err := NewAnthropicClient(&config.Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestChatTextResponse(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Write([]byte(`{
			"content": [{"type": "text", "text": "{\"dataset\": \"errors\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 120, "output_tokens": 15}
		}`))
	}))
	defer server.Close()

	client := newTestAnthropicClient(t, server.URL)
	resp, err := client.Chat(context.Background(), []Message{
		{Role: "system", Content: "You translate queries."},
		{Role: "user", Content: "recent errors"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, `{"dataset": "errors"}`, resp.Content)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, 120, resp.Usage.InputTokens)

	// System prompt travels in its own field, not as a message.
	assert.Equal(t, "You translate queries.", captured["system"])
	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 1)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "user", first["role"])
}

func TestChatParsesToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "Let me check the fields."},
				{"type": "tool_use", "id": "toolu_1", "name": "dataset_attributes", "input": {"dataset": "spans"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 100, "output_tokens": 30}
		}`))
	}))
	defer server.Close()

	client := newTestAnthropicClient(t, server.URL)
	resp, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "slow spans"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "tool_use", resp.StopReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "dataset_attributes", resp.ToolCalls[0].Name)
	assert.Equal(t, "spans", resp.ToolCalls[0].Input["dataset"])
}

func TestChatEncodesToolResultsAndDefinitions(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Write([]byte(`{"content": [{"type": "text", "text": "ok"}], "stop_reason": "end_turn", "usage": {}}`))
	}))
	defer server.Close()

	client := newTestAnthropicClient(t, server.URL)
	_, err := client.Chat(context.Background(), []Message{
		{Role: "user", Content: "slow spans"},
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "toolu_1", Name: "dataset_attributes", Input: map[string]interface{}{"dataset": "spans"}}}},
		{Role: "tool", ToolUseID: "toolu_1", Content: "span.duration (number)"},
	}, []Tool{{
		Name:        "dataset_attributes",
		Description: "List queryable fields",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"dataset": {Type: "string", Enum: []string{"errors", "logs", "spans"}},
			},
			Required: []string{"dataset"},
		},
	}})
	require.NoError(t, err)

	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 3)

	assistant := messages[1].(map[string]interface{})
	assert.Equal(t, "assistant", assistant["role"])
	toolUse := assistant["content"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "tool_use", toolUse["type"])
	// "input" must be present on tool_use blocks.
	assert.Contains(t, toolUse, "input")

	// Tool results ride back as user messages.
	toolMsg := messages[2].(map[string]interface{})
	assert.Equal(t, "user", toolMsg["role"])
	result := toolMsg["content"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "tool_result", result["type"])
	assert.Equal(t, "toolu_1", result["tool_use_id"])

	tools := captured["tools"].([]interface{})
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]interface{})
	assert.Equal(t, "dataset_attributes", tool["name"])
	schema := tool["input_schema"].(map[string]interface{})
	assert.Equal(t, []interface{}{"dataset"}, schema["required"])
}

func TestChatRetriesOnThrottle(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"content": [{"type": "text", "text": "ok"}], "stop_reason": "end_turn", "usage": {}}`))
	}))
	defer server.Close()

	client := newTestAnthropicClient(t, server.URL)
	resp, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, calls)
}

func TestChatPermanentErrorDoesNotRetry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	}))
	defer server.Close()

	client := newTestAnthropicClient(t, server.URL)
	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, 1, calls)
}

func TestChatConcatenatesTextBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "{\"dataset\":"},
				{"type": "text", "text": " \"logs\"}"}
			],
			"stop_reason": "end_turn",
			"usage": {}
		}`))
	}))
	defer server.Close()

	client := newTestAnthropicClient(t, server.URL)
	resp, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"dataset": "logs"}`, resp.Content)
}
