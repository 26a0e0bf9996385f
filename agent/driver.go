// Tool-use conversation loop.
//
// Information Hiding:
// - Message history management hidden
// - Tool outcome to tool result conversion hidden
// - Error classification (recoverable vs fatal) hidden

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/richinex/svgpainter/llm"
	"github.com/richinex/svgpainter/tools"
	"github.com/richinex/svgpainter/transcript"
)

// Model answers one request with one assistant message. *llm.Client implements it.
type Model interface {
	Converse(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Dispatcher runs tools by name. *tools.Registry implements it.
type Dispatcher interface {
	Specs() []llm.ToolSpec
	Dispatch(ctx context.Context, name string, args json.RawMessage) (tools.Outcome, error)
}

var (
	_ Model      = (*llm.Client)(nil)
	_ Dispatcher = (*tools.Registry)(nil)
)

// Driver runs the painting conversation until the model completes or fails.
// Following Dave's naming advice: agent.Driver, not agent.ConversationDriver.
type Driver struct {
	config   Config
	client   Model
	registry Dispatcher
	log      *transcript.Logger
}

// New creates a driver. A nil logger discards the transcript.
func New(config Config, client Model, registry Dispatcher, log *transcript.Logger) *Driver {
	if log == nil {
		log = transcript.Discard()
	}
	return &Driver{
		config:   config,
		client:   client,
		registry: registry,
		log:      log,
	}
}

// run carries the mutable state of one Run call.
type run struct {
	start     time.Time
	history   []llm.Message
	steps     []Step
	toolCalls []ToolCall
	usage     llm.TokenUsage
	llmCalls  int
}

func (r *run) result(reason TerminationReason, message string) Result {
	usage := r.usage
	return Result{
		Reason:  reason,
		Message: message,
		Turns:   len(r.steps),
		Steps:   r.steps,
		History: r.history,
		Metadata: Metadata{
			ExecutionTimeMs: uint64(time.Since(r.start).Milliseconds()),
			ToolCalls:       r.toolCalls,
			TokenUsage:      &usage,
			LLMCalls:        r.llmCalls,
		},
	}
}

// Run starts a conversation with prompt as the first user turn.
//
// A non-nil error means the run failed: the model call exhausted its retries,
// the model asked for an unknown tool, or ctx was cancelled. The Result is
// populated in every case.
func (d *Driver) Run(ctx context.Context, prompt string) (Result, error) {
	r := &run{
		start:   time.Now(),
		history: []llm.Message{llm.UserMessage(llm.TextBlock{Text: prompt})},
	}
	specs := d.registry.Specs()

	d.log.Section("Start")
	d.log.Summary(prompt)

	for turn := 1; ; turn++ {
		if d.config.HasTurnLimit() && turn > d.config.MaxTurns {
			d.log.Warn(fmt.Sprintf("turn limit of %d reached", d.config.MaxTurns), nil)
			return d.finish(r, ReasonTurnLimit, "", nil)
		}
		if err := ctx.Err(); err != nil {
			return d.finish(r, ReasonFailed, "", fmt.Errorf("run cancelled: %w", err))
		}

		d.log.Separator()
		d.log.Section(fmt.Sprintf("Turn %d", turn))

		resp, err := d.client.Converse(ctx, llm.Request{
			System:   d.config.SystemPrompt,
			Messages: r.history,
			Tools:    specs,
		})
		r.llmCalls++
		if err != nil {
			return d.finish(r, ReasonFailed, "", fmt.Errorf("model call failed: %w", err))
		}
		r.usage.Add(resp.Usage)

		assistant := llm.AssistantMessage(resp.Message.Content...)
		r.history = append(r.history, assistant)
		d.logAssistant(assistant, resp)

		step := Step{Turn: turn, Remark: remark(assistant)}
		var (
			results    []llm.ContentBlock
			terminated bool
			completion string
		)

		uses := assistant.ToolUses()
		for _, use := range uses {
			step.ToolNames = append(step.ToolNames, use.Name)

			outcome, err := d.dispatch(ctx, r, use)
			if err != nil {
				var unknown *tools.UnknownToolError
				if errors.As(err, &unknown) {
					r.steps = append(r.steps, step)
					return d.finish(r, ReasonFailed, "", fmt.Errorf("turn %d: %w", turn, err))
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					r.steps = append(r.steps, step)
					return d.finish(r, ReasonFailed, "", fmt.Errorf("run cancelled: %w", ctxErr))
				}
				d.log.Event("tool_error", use.Name, map[string]any{"id": use.ID, "error": err.Error()})
				results = append(results, errorResult(use.ID, err))
				continue
			}

			switch o := outcome.(type) {
			case tools.Terminate:
				terminated = true
				completion = o.Message
				d.log.Section("Complete")
				d.log.Summary(o.Message)
			case tools.TextResult:
				d.log.Event("tool_result", use.Name, map[string]any{"id": use.ID})
				d.log.Summary(o.Text)
				results = append(results, llm.ToolResultBlock{
					ToolUseID: use.ID,
					Content:   []llm.ContentBlock{llm.TextBlock{Text: o.Text}},
				})
			case tools.ImageResult:
				d.log.Event("tool_result", use.Name, map[string]any{"id": use.ID, "format": o.Format, "bytes": len(o.Data)})
				results = append(results, llm.ToolResultBlock{
					ToolUseID: use.ID,
					Content: []llm.ContentBlock{
						llm.TextBlock{Text: o.Caption},
						llm.ImageBlock{Format: o.Format, Data: o.Data},
					},
				})
			default:
				results = append(results, errorResult(use.ID, fmt.Errorf("tool %s returned no result", use.Name)))
			}
		}

		r.steps = append(r.steps, step)
		if len(results) > 0 {
			r.history = append(r.history, llm.UserMessage(results...))
		}

		if terminated {
			return d.finish(r, ReasonCompleted, completion, nil)
		}
		if len(uses) == 0 {
			d.log.Warn("model answered without a tool call; stopping", nil)
			return d.finish(r, ReasonNoToolCall, step.Remark, nil)
		}
	}
}

// dispatch runs one tool use and records its metrics.
func (d *Driver) dispatch(ctx context.Context, r *run, use llm.ToolUseBlock) (tools.Outcome, error) {
	input := use.InputJSON()
	start := time.Now()

	outcome, err := d.registry.Dispatch(ctx, use.Name, input)

	r.toolCalls = append(r.toolCalls, ToolCall{
		Name:       use.Name,
		InputSize:  len(input),
		OutputSize: tools.Size(outcome),
		DurationMs: uint64(time.Since(start).Milliseconds()),
		Success:    err == nil,
	})
	return outcome, err
}

func (d *Driver) logAssistant(msg llm.Message, resp llm.Response) {
	fields := map[string]any{"blocks": len(msg.Content)}
	if resp.StopReason != "" {
		fields["stop_reason"] = resp.StopReason
	}
	if resp.Usage != nil {
		fields["output_tokens"] = resp.Usage.CompletionTokens
	}
	d.log.Event("assistant_message", "assistant message received", fields)

	for _, block := range msg.Content {
		switch b := block.(type) {
		case llm.TextBlock:
			d.log.Subsection("Text")
			d.log.Summary(b.Text)
		case llm.ToolUseBlock:
			d.log.Subsection("Tool: " + b.Name)
			d.log.Event("tool_use", b.Name, map[string]any{"id": b.ID, "input_bytes": len(b.InputJSON())})
			d.log.Summary(string(b.InputJSON()))
		}
	}
}

func (d *Driver) finish(r *run, reason TerminationReason, message string, err error) (Result, error) {
	fields := map[string]any{
		"reason":    reason.String(),
		"turns":     len(r.steps),
		"llm_calls": r.llmCalls,
	}
	if err != nil {
		d.log.Warn("run failed", err)
	}
	d.log.Event("run_end", "run finished", fields)
	return r.result(reason, message), err
}

func errorResult(toolUseID string, err error) llm.ToolResultBlock {
	return llm.ToolResultBlock{
		ToolUseID: toolUseID,
		Content:   []llm.ContentBlock{llm.TextBlock{Text: "Error: " + err.Error()}},
		IsError:   true,
	}
}

func remark(msg llm.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if t, ok := block.(llm.TextBlock); ok && t.Text != "" {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}
