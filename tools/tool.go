// Package tools provides the tool system for the painting agent.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Tool parameters and schemas hidden in implementations
// - Registry implementation details hidden from consumers
// - Error handling internalized per tool
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/richinex/svgpainter/llm"
)

// ToolParameter defines a parameter schema for a tool.
type ToolParameter struct {
	Name        string   `json:"name"`
	ParamType   string   `json:"param_type"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Schema returns the JSON schema of the tool input.
func (m ToolMetadata) Schema() map[string]any {
	properties := make(map[string]any, len(m.Parameters))
	var required []string
	for _, p := range m.Parameters {
		prop := map[string]any{
			"type":        p.ParamType,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Spec returns the ToolSpec sent to the model.
func (m ToolMetadata) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        m.Name,
		Description: m.Description,
		InputSchema: m.Schema(),
	}
}

// Outcome is the result of a tool execution.
// The concrete types are TextResult, ImageResult and Terminate.
type Outcome interface {
	outcome()
}

// TextResult is a plain text answer to the model.
type TextResult struct {
	Text string
}

// ImageResult is an encoded image with a caption.
type ImageResult struct {
	Format  string
	Data    []byte
	Caption string
}

// Terminate ends the conversation successfully. No tool result is sent back.
type Terminate struct {
	Message string
}

func (TextResult) outcome()  {}
func (ImageResult) outcome() {}
func (Terminate) outcome()   {}

// Size returns the approximate payload size of an outcome in bytes.
func Size(o Outcome) int {
	switch v := o.(type) {
	case TextResult:
		return len(v.Text)
	case ImageResult:
		return len(v.Data) + len(v.Caption)
	case Terminate:
		return len(v.Message)
	default:
		return 0
	}
}

// Tool is the interface that all tools must implement.
//
// Information Hiding: Tool implementations hide their internal execution logic,
// data structures, and error handling strategies behind this interface.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Execute runs the tool with given arguments.
	// Recoverable failures are *ValidationError or *IOError.
	Execute(ctx context.Context, args json.RawMessage) (Outcome, error)

	// Validate validates arguments before execution.
	Validate(args json.RawMessage) error
}

// Terminal is implemented by tools that end the conversation whatever
// arguments they receive. The registry runs them without validation.
type Terminal interface {
	Tool
	terminal()
}

// BaseTool provides a default implementation for Validate.
type BaseTool struct{}

// Validate provides a default no-op validation.
func (BaseTool) Validate(args json.RawMessage) error {
	return nil
}

// decodeArgs unmarshals tool arguments into v, reporting failures as a ValidationError.
func decodeArgs(tool string, args json.RawMessage, v any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &ValidationError{Tool: tool, Problems: []string{fmt.Sprintf("invalid arguments: %v", err)}}
	}
	return nil
}

// pathAllowedForWrite checks if a path's parent directory is within allowed paths.
// Used for write operations where the file may not exist yet.
// If allowedPaths is empty, all paths are allowed.
func pathAllowedForWrite(path string, allowedPaths []string) bool {
	if len(allowedPaths) == 0 {
		return true
	}
	absParent, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return false
	}
	for _, allowed := range allowedPaths {
		allowedAbs, err := filepath.Abs(allowed)
		if err != nil {
			continue
		}
		if absParent == allowedAbs || strings.HasPrefix(absParent, allowedAbs+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
