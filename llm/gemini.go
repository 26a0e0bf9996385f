// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - System instruction handling via config
// - Function responses matched back to function names

package llm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	initErr     error // Stores client initialization error for deferred reporting
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(apiKey, model string, maxTokens uint32, temperature float32) *GeminiProvider {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return &GeminiProvider{
			model:       model,
			maxTokens:   int32(maxTokens),
			temperature: temperature,
			initErr:     fmt.Errorf("failed to initialize Gemini client: %w", err),
		}
	}

	return &GeminiProvider{
		client:      client,
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the current model.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Converse sends a request with tool definitions.
func (p *GeminiProvider) Converse(ctx context.Context, req Request) (Response, error) {
	if p.initErr != nil {
		return Response{}, p.initErr
	}
	if p.client == nil {
		return Response{}, fmt.Errorf("gemini client not initialized")
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
		Tools:           convertToGeminiTools(req.Tools),
	}

	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	response, err := p.client.Models.GenerateContent(ctx, p.model, convertToGeminiContents(req.Messages), config)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion failed: %w", err)
	}

	var blocks []ContentBlock
	stopReason := ""
	if len(response.Candidates) > 0 && response.Candidates[0].Content != nil {
		stopReason = string(response.Candidates[0].FinishReason)
		for _, part := range response.Candidates[0].Content.Parts {
			if part.Text != "" && !part.Thought {
				blocks = append(blocks, TextBlock{Text: part.Text})
			}
			if part.FunctionCall != nil {
				id := part.FunctionCall.ID
				if id == "" {
					id = uuid.NewString()
				}
				blocks = append(blocks, ToolUseBlock{
					ID:    id,
					Name:  part.FunctionCall.Name,
					Input: part.FunctionCall.Args,
				})
			}
		}
	}

	var usage *TokenUsage
	if response.UsageMetadata != nil {
		usage = &TokenUsage{
			PromptTokens:     uint32(response.UsageMetadata.PromptTokenCount),
			CompletionTokens: uint32(response.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      uint32(response.UsageMetadata.TotalTokenCount),
		}
	}

	return Response{
		Message:    AssistantMessage(blocks...),
		StopReason: stopReason,
		Usage:      usage,
	}, nil
}

// convertToGeminiContents converts the history to Gemini contents.
// Function responses need the function name, so names are tracked by tool use ID.
func convertToGeminiContents(messages []Message) []*genai.Content {
	var contents []*genai.Content
	names := make(map[string]string)

	for _, msg := range messages {
		content := &genai.Content{Role: genai.RoleUser}
		if msg.Role == RoleAssistant {
			content.Role = genai.RoleModel
		}

		var images []*genai.Part
		for _, block := range msg.Content {
			switch b := block.(type) {
			case TextBlock:
				content.Parts = append(content.Parts, &genai.Part{Text: b.Text})
			case ImageBlock:
				content.Parts = append(content.Parts, geminiImagePart(b))
			case ToolUseBlock:
				names[b.ID] = b.Name
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   b.ID,
						Name: b.Name,
						Args: b.Input,
					},
				})
			case ToolResultBlock:
				key := "output"
				if b.IsError {
					key = "error"
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       b.ToolUseID,
						Name:     names[b.ToolUseID],
						Response: map[string]any{key: b.Text()},
					},
				})
				for _, c := range b.Content {
					if img, ok := c.(ImageBlock); ok {
						images = append(images, geminiImagePart(img))
					}
				}
			}
		}
		content.Parts = append(content.Parts, images...)

		if len(content.Parts) > 0 {
			contents = append(contents, content)
		}
	}

	return contents
}

func geminiImagePart(img ImageBlock) *genai.Part {
	return &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: img.MediaType(),
			Data:     img.Data,
		},
	}
}

// convertToGeminiTools converts tool specs to Gemini format.
func convertToGeminiTools(tools []ToolSpec) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	var declarations []*genai.FunctionDeclaration
	for _, t := range tools {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertToGeminiSchema(t),
		})
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertToGeminiSchema converts a tool's input schema to Gemini format.
func convertToGeminiSchema(t ToolSpec) *genai.Schema {
	schema := &genai.Schema{
		Type:     genai.TypeObject,
		Required: t.Required(),
	}

	if props := t.Properties(); len(props) > 0 {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			propMap, ok := prop.(map[string]any)
			if !ok {
				continue
			}
			schema.Properties[name] = convertPropertyToGeminiSchema(propMap)
		}
	}

	return schema
}

// convertPropertyToGeminiSchema converts a single property to Gemini schema.
func convertPropertyToGeminiSchema(prop map[string]any) *genai.Schema {
	schema := &genai.Schema{}

	if t, ok := prop["type"].(string); ok {
		schema.Type = mapToGeminiType(t)
	}

	if d, ok := prop["description"].(string); ok {
		schema.Description = d
	}

	switch enum := prop["enum"].(type) {
	case []string:
		schema.Enum = enum
	case []any:
		for _, e := range enum {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}

	// Gemini requires 'items' for arrays
	if schema.Type == genai.TypeArray {
		if items, ok := prop["items"].(map[string]any); ok {
			schema.Items = convertPropertyToGeminiSchema(items)
		} else {
			schema.Items = &genai.Schema{Type: genai.TypeString}
		}
	}

	return schema
}

// mapToGeminiType maps JSON schema type to Gemini type.
func mapToGeminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
