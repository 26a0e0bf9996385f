// Driver builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"fmt"

	"github.com/richinex/svgpainter/transcript"
)

// Builder provides fluent configuration for creating drivers.
// Usage: agent.NewBuilder(client, registry) - no stutter.
type Builder struct {
	client   Model
	registry Dispatcher
	config   Config
	log      *transcript.Logger
}

// NewBuilder creates a new builder for a model client and tool registry.
func NewBuilder(client Model, registry Dispatcher) *Builder {
	return &Builder{
		client:   client,
		registry: registry,
		config:   DefaultConfig(),
	}
}

// SystemPrompt sets the system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.config.SystemPrompt = prompt
	return b
}

// MaxTurns sets the turn limit. Zero disables it.
func (b *Builder) MaxTurns(n int) *Builder {
	b.config.MaxTurns = n
	return b
}

// Transcript sets the transcript logger.
func (b *Builder) Transcript(log *transcript.Logger) *Builder {
	b.log = log
	return b
}

// Build creates the driver.
func (b *Builder) Build() (*Driver, error) {
	if b.client == nil {
		return nil, fmt.Errorf("driver requires a model client")
	}
	if b.registry == nil {
		return nil, fmt.Errorf("driver requires a tool registry")
	}
	if b.config.MaxTurns < 0 {
		return nil, fmt.Errorf("max turns must not be negative, got %d", b.config.MaxTurns)
	}
	return New(b.config, b.client, b.registry, b.log), nil
}
