// Package agent provides the painting conversation driver.
//
// Contains the types describing how a run ended and what it did.
package agent

import (
	"github.com/richinex/svgpainter/llm"
	"github.com/richinex/svgpainter/model"
)

// Step is an alias for model.Step for per-turn records.
type Step = model.Step

// ToolCall is an alias for model.ToolCall for tool call metadata.
type ToolCall = model.ToolCall

// TerminationReason says why a run stopped.
type TerminationReason int

const (
	// ReasonCompleted means the model called the complete tool.
	ReasonCompleted TerminationReason = iota
	// ReasonNoToolCall means an assistant turn contained no tool use.
	ReasonNoToolCall
	// ReasonFailed means a fatal error ended the run.
	ReasonFailed
	// ReasonTurnLimit means the configured turn limit was reached.
	ReasonTurnLimit
)

// String returns the reason name.
func (r TerminationReason) String() string {
	switch r {
	case ReasonCompleted:
		return "completed"
	case ReasonNoToolCall:
		return "no_tool_call"
	case ReasonFailed:
		return "failed"
	case ReasonTurnLimit:
		return "turn_limit"
	default:
		return "unknown"
	}
}

// IsSuccess reports whether the run ended without a fatal error.
func (r TerminationReason) IsSuccess() bool {
	return r != ReasonFailed
}

// Metadata contains metadata about a run.
type Metadata struct {
	ExecutionTimeMs uint64
	ToolCalls       []ToolCall
	TokenUsage      *llm.TokenUsage
	LLMCalls        int
}

// Result describes a finished run.
type Result struct {
	Reason   TerminationReason
	Message  string // complete message, or the last remark for other reasons
	Turns    int
	Steps    []Step
	History  []llm.Message
	Metadata Metadata
}
