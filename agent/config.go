// Driver configuration types.
//
// Information Hiding:
// - Default values hidden

package agent

// Config holds driver configuration.
type Config struct {
	// SystemPrompt is sent with every model request.
	SystemPrompt string

	// MaxTurns stops the run after this many model turns. Zero means no limit.
	MaxTurns int
}

// DefaultConfig returns a configuration without a turn limit.
func DefaultConfig() Config {
	return Config{
		SystemPrompt: "You are a painter. Draw the subject as SVG with the svg2png tool and call complete when done.",
	}
}

// HasTurnLimit returns true if a turn limit is configured.
func (c *Config) HasTurnLimit() bool {
	return c.MaxTurns > 0
}
