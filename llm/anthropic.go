// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Anthropic Messages API
// - Tool result images encoded as base64 image blocks

package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string, maxTokens uint32, temperature float32) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // RetryPolicy owns retries
	)

	return &AnthropicProvider{
		client:      client,
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: float64(temperature),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the current model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Converse sends a request with tool definitions.
func (p *AnthropicProvider) Converse(ctx context.Context, req Request) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Messages:    convertToAnthropicMessages(req.Messages),
		Temperature: anthropic.Float(p.temperature),
		Tools:       convertToAnthropicTools(req.Tools),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion failed: %w", err)
	}

	var blocks []ContentBlock
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			blocks = append(blocks, TextBlock{Text: variant.Text})
		case anthropic.ToolUseBlock:
			var input map[string]any
			if err := json.Unmarshal(variant.Input, &input); err != nil {
				input = map[string]any{"raw": string(variant.Input)}
			}
			blocks = append(blocks, ToolUseBlock{
				ID:    variant.ID,
				Name:  variant.Name,
				Input: input,
			})
		}
	}

	var usage *TokenUsage
	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		usage = &TokenUsage{
			PromptTokens:     uint32(message.Usage.InputTokens),
			CompletionTokens: uint32(message.Usage.OutputTokens),
			TotalTokens:      uint32(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}

	return Response{
		Message:    AssistantMessage(blocks...),
		StopReason: string(message.StopReason),
		Usage:      usage,
	}, nil
}

// convertToAnthropicMessages converts the history to Anthropic message params.
func convertToAnthropicMessages(messages []Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		var blocks []anthropic.ContentBlockParamUnion
		for _, block := range msg.Content {
			switch b := block.(type) {
			case TextBlock:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case ImageBlock:
				blocks = append(blocks, anthropic.NewImageBlockBase64(b.MediaType(), base64.StdEncoding.EncodeToString(b.Data)))
			case ToolUseBlock:
				input := b.Input
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, input, b.Name))
			case ToolResultBlock:
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolResult: convertToAnthropicToolResult(b),
				})
			}
		}

		switch msg.Role {
		case RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		default:
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
	}

	return result
}

// convertToAnthropicToolResult keeps text and images of a tool result in order.
func convertToAnthropicToolResult(b ToolResultBlock) *anthropic.ToolResultBlockParam {
	param := &anthropic.ToolResultBlockParam{
		ToolUseID: b.ToolUseID,
		IsError:   anthropic.Bool(b.IsError),
	}
	for _, c := range b.Content {
		switch part := c.(type) {
		case TextBlock:
			param.Content = append(param.Content, anthropic.ToolResultBlockParamContentUnion{
				OfText: &anthropic.TextBlockParam{Text: part.Text},
			})
		case ImageBlock:
			param.Content = append(param.Content, anthropic.ToolResultBlockParamContentUnion{
				OfImage: &anthropic.ImageBlockParam{
					Source: anthropic.ImageBlockParamSourceUnion{
						OfBase64: &anthropic.Base64ImageSourceParam{
							Data:      base64.StdEncoding.EncodeToString(part.Data),
							MediaType: anthropic.Base64ImageSourceMediaType(part.MediaType()),
						},
					},
				},
			})
		}
	}
	return param
}

// convertToAnthropicTools converts tool specs to Anthropic format.
func convertToAnthropicTools(tools []ToolSpec) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		toolParam := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: t.Properties(),
				Required:   t.Required(),
			},
		}
		result[i] = anthropic.ToolUnionParam{OfTool: &toolParam}
	}
	return result
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)
