// OpenAI Provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for OpenAI Chat Completions API
// - Tool messages are text only, so tool result images follow as a user image part

package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return &OpenAIProvider{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Converse sends a chat completion request with tool definitions.
func (p *OpenAIProvider) Converse(ctx context.Context, req Request) (Response, error) {
	oaiReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    convertToOpenAIMessages(req.System, req.Messages),
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Tools:       convertToOpenAITools(req.Tools),
	}

	resp, err := p.client.CreateChatCompletion(ctx, oaiReq)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion failed: %w", err)
	}

	var blocks []ContentBlock
	stopReason := ""
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		stopReason = string(choice.FinishReason)
		if choice.Message.Content != "" {
			blocks = append(blocks, TextBlock{Text: choice.Message.Content})
		}
		for _, tc := range choice.Message.ToolCalls {
			var input map[string]any
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
				input = map[string]any{"raw": tc.Function.Arguments}
			}
			blocks = append(blocks, ToolUseBlock{
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: input,
			})
		}
	}

	usage := &TokenUsage{
		PromptTokens:     uint32(resp.Usage.PromptTokens),
		CompletionTokens: uint32(resp.Usage.CompletionTokens),
		TotalTokens:      uint32(resp.Usage.TotalTokens),
	}

	return Response{
		Message:    AssistantMessage(blocks...),
		StopReason: stopReason,
		Usage:      usage,
	}, nil
}

// convertToOpenAIMessages converts the history to openai.ChatCompletionMessage values.
func convertToOpenAIMessages(system string, messages []Message) []openai.ChatCompletionMessage {
	var result []openai.ChatCompletionMessage
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		if msg.Role == RoleAssistant {
			result = append(result, convertOpenAIAssistant(msg))
			continue
		}

		var parts []openai.ChatMessagePart
		hasImage := false
		for _, block := range msg.Content {
			switch b := block.(type) {
			case ToolResultBlock:
				content := b.Text()
				if content == "" {
					content = "(no text output)"
				}
				result = append(result, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    content,
					ToolCallID: b.ToolUseID,
				})
				for _, c := range b.Content {
					if img, ok := c.(ImageBlock); ok {
						parts = append(parts, openAIImagePart(img))
						hasImage = true
					}
				}
			case TextBlock:
				parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: b.Text})
			case ImageBlock:
				parts = append(parts, openAIImagePart(b))
				hasImage = true
			}
		}

		if len(parts) == 0 {
			continue
		}
		if hasImage {
			result = append(result, openai.ChatCompletionMessage{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			})
			continue
		}
		texts := make([]string, 0, len(parts))
		for _, part := range parts {
			texts = append(texts, part.Text)
		}
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: strings.Join(texts, "\n"),
		})
	}
	return result
}

func convertOpenAIAssistant(msg Message) openai.ChatCompletionMessage {
	oaiMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
	var texts []string
	for _, block := range msg.Content {
		switch b := block.(type) {
		case TextBlock:
			texts = append(texts, b.Text)
		case ToolUseBlock:
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   b.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      b.Name,
					Arguments: string(b.InputJSON()),
				},
			})
		}
	}
	oaiMsg.Content = strings.Join(texts, "\n")
	return oaiMsg
}

func openAIImagePart(img ImageBlock) openai.ChatMessagePart {
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL: fmt.Sprintf("data:%s;base64,%s", img.MediaType(), base64.StdEncoding.EncodeToString(img.Data)),
		},
	}
}

// convertToOpenAITools converts tool specs to OpenAI format.
func convertToOpenAITools(tools []ToolSpec) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		}
	}
	return result
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
