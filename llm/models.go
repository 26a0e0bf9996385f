// Package llm provides shared data models for LLM providers.
package llm

import "encoding/json"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentBlock is one part of a message.
// The concrete types are TextBlock, ToolUseBlock, ToolResultBlock and ImageBlock.
type ContentBlock interface {
	contentBlock()
}

// TextBlock is plain text.
type TextBlock struct {
	Text string
}

func (TextBlock) contentBlock() {}

// ToolUseBlock is a request from the model to invoke a tool.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]any
}

func (ToolUseBlock) contentBlock() {}

// InputJSON returns the tool input encoded as a JSON object.
func (b ToolUseBlock) InputJSON() json.RawMessage {
	if b.Input == nil {
		return json.RawMessage("{}")
	}
	data, err := json.Marshal(b.Input)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// ToolResultBlock answers a ToolUseBlock. Content holds TextBlock and ImageBlock values only.
type ToolResultBlock struct {
	ToolUseID string
	Content   []ContentBlock
	IsError   bool
}

func (ToolResultBlock) contentBlock() {}

// Text returns the concatenated text parts of the result.
func (b ToolResultBlock) Text() string {
	var out string
	for _, c := range b.Content {
		if t, ok := c.(TextBlock); ok {
			if out != "" {
				out += "\n"
			}
			out += t.Text
		}
	}
	return out
}

// ImageBlock is an encoded image, e.g. Format "png".
type ImageBlock struct {
	Format string
	Data   []byte
}

func (ImageBlock) contentBlock() {}

// MediaType returns the MIME type for the image format.
func (b ImageBlock) MediaType() string {
	switch b.Format {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// UserMessage creates a user message.
func UserMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleUser, Content: blocks}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: blocks}
}

// ToolUses returns the tool use blocks of the message in order.
func (m Message) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, b := range m.Content {
		if tu, ok := b.(ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}

// ToolSpec defines a tool that the LLM can call.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"` // JSON Schema
}

// Properties returns the schema's properties map.
func (s ToolSpec) Properties() map[string]any {
	props, _ := s.InputSchema["properties"].(map[string]any)
	return props
}

// Required returns the schema's required property names.
func (s ToolSpec) Required() []string {
	switch req := s.InputSchema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if name, ok := r.(string); ok {
				out = append(out, name)
			}
		}
		return out
	default:
		return nil
	}
}

// Request is everything a provider needs for one model call.
type Request struct {
	System   string
	Messages []Message
	Tools    []ToolSpec
}

// Response represents a response from an LLM provider.
type Response struct {
	Message    Message
	StopReason string
	Usage      *TokenUsage
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other *TokenUsage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
