package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/getsentry/sentry-mcp-sub001/internal/llm"
	"github.com/getsentry/sentry-mcp-sub001/internal/model"
	"github.com/getsentry/sentry-mcp-sub001/internal/schema"
)

// maxToolIterations bounds the tool-dispatch loop for a single
// translation attempt. The model normally needs one or two rounds.
const maxToolIterations = 8

type Translator interface {
	// Translate runs one model turn (including any nested tool calls)
	// and returns the structured candidate. feedback carries a prior
	// validation rejection on the single correction attempt.
	Translate(ctx context.Context, naturalQuery string, catalogs map[model.Dataset]*schema.Catalog, feedback string) (*model.QueryTranslation, error)
}

type translator struct {
	provider llm.Provider
	now      func() time.Time
}

func NewTranslator(provider llm.Provider) Translator {
	return &translator{
		provider: provider,
		now:      time.Now,
	}
}

func (t *translator) Translate(ctx context.Context, naturalQuery string, catalogs map[model.Dataset]*schema.Catalog, feedback string) (*model.QueryTranslation, error) {
	toolbox := NewToolbox(catalogs)
	tools := toolbox.Definitions()

	messages := []llm.Message{
		{Role: "system", Content: BuildSystemPrompt(t.now(), feedback)},
		{Role: "user", Content: naturalQuery},
	}

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		resp, err := t.provider.Chat(ctx, messages, tools)
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			return parseCandidate(resp.Content), nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			result := toolbox.Dispatch(call)
			log.Debug().
				Str("tool", call.Name).
				Int("result_len", len(result)).
				Msg("Translator tool call")
			messages = append(messages, llm.Message{
				Role:      "tool",
				ToolUseID: call.ID,
				Content:   result,
			})
		}
	}

	// The model kept calling tools without producing an answer. This is
	// a translation failure, not a system fault.
	return &model.QueryTranslation{
		Error: "the model did not produce a query after the maximum number of tool calls",
	}, nil
}

// parseCandidate decodes the model's final output. Malformed output
// becomes a candidate with Error set rather than a Go error: the model
// failed to translate, the system did not fail.
func parseCandidate(raw string) *model.QueryTranslation {
	cleaned := extractJSONObject(raw)
	if cleaned == "" {
		log.Warn().Str("raw", truncate(raw, 300)).Msg("Model output contained no JSON object")
		return &model.QueryTranslation{Error: "the model did not return a structured query"}
	}

	var candidate model.QueryTranslation
	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&candidate); err != nil {
		log.Warn().Err(err).Str("json", truncate(cleaned, 300)).Msg("Failed to decode model output")
		return &model.QueryTranslation{Error: fmt.Sprintf("the model returned malformed output: %v", err)}
	}
	return &candidate
}

// extractJSONObject pulls the outermost {...} out of the model's text,
// tolerating stray prose or markdown fences around it.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	candidate := raw[start : end+1]
	var probe map[string]interface{}
	if json.Unmarshal([]byte(candidate), &probe) != nil {
		return ""
	}
	return candidate
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
