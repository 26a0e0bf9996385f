// Package model provides domain types shared across packages.
package model

// Step records one model turn of a painting run.
// Used by the agent for progress tracking and by the transcript for persistence.
type Step struct {
	Turn      int
	Remark    string   // Concatenated text blocks of the assistant turn
	ToolNames []string // Tools requested in this turn, in order
}

// ToolCall contains metrics about a tool invocation.
type ToolCall struct {
	Name       string `json:"name"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	DurationMs uint64 `json:"duration_ms"`
	Success    bool   `json:"success"`
}

// ToolStats aggregates ToolCall metrics per tool name.
type ToolStats struct {
	Calls      int
	Failures   int
	DurationMs uint64
}

// Summarize groups calls by tool name.
func Summarize(calls []ToolCall) map[string]ToolStats {
	stats := make(map[string]ToolStats)
	for _, c := range calls {
		s := stats[c.Name]
		s.Calls++
		if !c.Success {
			s.Failures++
		}
		s.DurationMs += c.DurationMs
		stats[c.Name] = s
	}
	return stats
}
