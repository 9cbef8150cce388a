package llm

import "context"

// Message is one turn of a model conversation.
type Message struct {
	Role      string // "system", "user", "assistant", "tool"
	Content   string
	ToolCalls []ToolCall // assistant tool invocations
	ToolUseID string     // set on "tool" messages carrying a result
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// Tool declares a callable capability offered to the model.
type Tool struct {
	Name        string
	Description string
	InputSchema InputSchema
}

// InputSchema is the JSON schema of a tool's parameters.
type InputSchema struct {
	Type       string
	Properties map[string]Property
	Required   []string
}

// Property is one parameter in a tool input schema.
type Property struct {
	Type        string
	Description string
	Enum        []string
}

// Usage is the token accounting of one completion call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is the model's reply to one completion call.
type Response struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
	Usage      Usage
}

// Provider is a chat-completion backend capable of tool use.
type Provider interface {
	Chat(ctx context.Context, messages []Message, tools []Tool) (*Response, error)
}
