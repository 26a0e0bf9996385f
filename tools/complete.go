package tools

import (
	"context"
	"encoding/json"
)

// CompleteTool lets the model declare the drawing finished.
type CompleteTool struct {
	BaseTool
}

// NewCompleteTool creates a new complete tool.
func NewCompleteTool() *CompleteTool {
	return &CompleteTool{}
}

// Metadata returns the tool metadata.
func (t *CompleteTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "complete",
		Description: "A tool to notify when all processing is complete",
		Parameters: []ToolParameter{
			{Name: "content", ParamType: "string", Description: "A message for processing complete", Required: true},
		},
	}
}

func (t *CompleteTool) terminal() {}

// Execute always terminates the conversation. The message is optional:
// when content is missing or not a string it is left empty.
func (t *CompleteTool) Execute(ctx context.Context, args json.RawMessage) (Outcome, error) {
	return Terminate{Message: completionMessage(args)}, nil
}

func completionMessage(args json.RawMessage) string {
	var fields map[string]any
	if err := json.Unmarshal(args, &fields); err != nil {
		return ""
	}
	msg, _ := fields["content"].(string)
	return msg
}

// Verify CompleteTool implements Terminal
var _ Terminal = (*CompleteTool)(nil)
