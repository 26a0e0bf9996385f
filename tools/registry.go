// Package tools provides tool management and registration.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Argument schema compilation and validation hidden
// - Registration order preserved for the model's tool list

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/richinex/svgpainter/llm"
)

// Registry maps tool names to tools and validates arguments against their schemas.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*gojsonschema.Schema
	order   []string
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// Register adds a new tool to the registry.
// Returns error if a tool with the same name already exists or its schema does not compile.
func (r *Registry) Register(tool Tool) error {
	meta := tool.Metadata()
	if meta.Name == "" {
		return fmt.Errorf("tool has no name")
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(meta.Schema()))
	if err != nil {
		return fmt.Errorf("tool '%s' has an invalid input schema: %w", meta.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[meta.Name]; exists {
		return fmt.Errorf("tool '%s' already registered", meta.Name)
	}
	r.tools[meta.Name] = tool
	r.schemas[meta.Name] = schema
	r.order = append(r.order, meta.Name)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// List returns metadata for all registered tools in registration order.
func (r *Registry) List() []ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]ToolMetadata, 0, len(r.order))
	for _, name := range r.order {
		metadata = append(metadata, r.tools[name].Metadata())
	}
	return metadata
}

// Specs returns the tool specifications sent with every model request.
func (r *Registry) Specs() []llm.ToolSpec {
	list := r.List()
	specs := make([]llm.ToolSpec, len(list))
	for i, meta := range list {
		specs[i] = meta.Spec()
	}
	return specs
}

// Description returns a formatted description of all tools.
func (r *Registry) Description() string {
	var descriptions []string
	for _, meta := range r.List() {
		var params []string
		for _, p := range meta.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			line := fmt.Sprintf("  - %s (%s): %s [%s]", p.Name, p.ParamType, p.Description, required)
			if len(p.Enum) > 0 {
				line += " one of " + strings.Join(p.Enum, "|")
			}
			params = append(params, line)
		}

		descriptions = append(descriptions, fmt.Sprintf(
			"Tool: %s\nDescription: %s\nParameters:\n%s",
			meta.Name, meta.Description, strings.Join(params, "\n")))
	}

	return strings.Join(descriptions, "\n\n")
}

// Dispatch validates args and runs the named tool.
//
// An unregistered name fails with *UnknownToolError. Argument problems fail with
// *ValidationError before the tool runs. Terminal tools skip validation.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (Outcome, error) {
	r.mu.RLock()
	tool, exists := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()

	if !exists {
		return nil, &UnknownToolError{Name: name}
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if _, ok := tool.(Terminal); ok {
		return tool.Execute(ctx, args)
	}

	if err := tool.Validate(args); err != nil {
		return nil, err
	}
	if err := validateSchema(name, schema, args); err != nil {
		return nil, err
	}

	return tool.Execute(ctx, args)
}

func validateSchema(name string, schema *gojsonschema.Schema, args json.RawMessage) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return &ValidationError{Tool: name, Problems: []string{fmt.Sprintf("invalid arguments: %v", err)}}
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return &ValidationError{Tool: name, Problems: problems}
}

// Default size limit for tool payloads.
const DefaultMaxFileSize = 1024 * 1024 // 1MB

// WithPaintingTools creates a registry with write, svg2png and complete.
// Writes are restricted to workDir when it is non-empty.
func WithPaintingTools(store ImageStore, workDir string) (*Registry, error) {
	registry := NewRegistry()

	write := NewWriteTool(DefaultMaxFileSize)
	if workDir != "" {
		write = write.WithAllowedPaths([]string{workDir})
	}

	tools := []Tool{
		write,
		NewSVG2PNGTool(store),
		NewCompleteTool(),
	}

	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register painting tools: %w", err)
		}
	}

	return registry, nil
}
