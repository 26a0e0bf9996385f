package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/richinex/svgpainter/artifact"
	"github.com/richinex/svgpainter/llm"
	"github.com/richinex/svgpainter/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedModel replays assistant turns and records every request.
type scriptedModel struct {
	turns    []llm.Message
	errAt    map[int]error
	requests []llm.Request
}

func (m *scriptedModel) Converse(ctx context.Context, req llm.Request) (llm.Response, error) {
	n := len(m.requests)
	// Copy the history so later appends do not change what was recorded.
	req.Messages = append([]llm.Message(nil), req.Messages...)
	m.requests = append(m.requests, req)

	if err, ok := m.errAt[n]; ok {
		return llm.Response{}, err
	}
	if n >= len(m.turns) {
		return llm.Response{}, errors.New("script exhausted")
	}
	return llm.Response{
		Message: m.turns[n],
		Usage:   &llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func toolUse(id, name string, input map[string]any) llm.ToolUseBlock {
	return llm.ToolUseBlock{ID: id, Name: name, Input: input}
}

const circleSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="64" height="64"><circle cx="32" cy="32" r="20" fill="red"/></svg>`

type paintingFixture struct {
	imageDir string
	workDir  string
	store    *artifact.Store
	registry *tools.Registry
}

func newPaintingFixture(t *testing.T) paintingFixture {
	t.Helper()
	root := t.TempDir()
	f := paintingFixture{
		imageDir: filepath.Join(root, "image"),
		workDir:  filepath.Join(root, "work"),
	}
	require.NoError(t, artifact.PrepareWorkspace(f.workDir, f.imageDir))

	f.store = artifact.NewStore(f.imageDir, artifact.NewOKSVG())
	registry, err := tools.WithPaintingTools(f.store, f.workDir)
	require.NoError(t, err)
	f.registry = registry
	return f
}

func TestRunRedCircleEndToEnd(t *testing.T) {
	f := newPaintingFixture(t)
	model := &scriptedModel{turns: []llm.Message{
		llm.AssistantMessage(
			llm.TextBlock{Text: "I'll draw a red circle."},
			toolUse("tu_1", "svg2png", map[string]any{"content": circleSVG}),
		),
		llm.AssistantMessage(
			toolUse("tu_2", "complete", map[string]any{"content": "The red circle is finished."}),
		),
	}}

	driver, err := NewBuilder(model, f.registry).SystemPrompt("paint").Build()
	require.NoError(t, err)

	result, err := driver.Run(context.Background(), "a red circle")
	require.NoError(t, err)

	assert.Equal(t, ReasonCompleted, result.Reason)
	assert.Equal(t, "The red circle is finished.", result.Message)
	assert.Equal(t, 2, result.Turns)
	assert.Equal(t, 2, result.Metadata.LLMCalls)
	assert.Equal(t, uint32(30), result.Metadata.TokenUsage.TotalTokens)

	assert.FileExists(t, f.store.SVGPath())
	assert.FileExists(t, f.store.PNGPath())
	archived, err := f.store.Archived()
	require.NoError(t, err)
	assert.Empty(t, archived, "only one drawing cycle ran")

	// The second request carried the image result as a user turn.
	require.Len(t, model.requests, 2)
	second := model.requests[1]
	assert.Equal(t, "paint", second.System)
	assert.Len(t, second.Tools, 3)
	require.Len(t, second.Messages, 3)
	last := second.Messages[2]
	assert.Equal(t, llm.RoleUser, last.Role)
	require.Len(t, last.Content, 1)
	res, ok := last.Content[0].(llm.ToolResultBlock)
	require.True(t, ok, "got %T", last.Content[0])
	assert.Equal(t, "tu_1", res.ToolUseID)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 2)
	assert.Equal(t, llm.TextBlock{Text: tools.ImageCaption}, res.Content[0])
	img, ok := res.Content[1].(llm.ImageBlock)
	require.True(t, ok)
	assert.Equal(t, "png", img.Format)

	png, err := os.ReadFile(f.store.PNGPath())
	require.NoError(t, err)
	assert.Equal(t, png, img.Data)
}

func TestRunPairsToolResultsInOrder(t *testing.T) {
	f := newPaintingFixture(t)
	notes := filepath.Join(f.workDir, "thinking_en.txt")
	model := &scriptedModel{turns: []llm.Message{
		llm.AssistantMessage(
			toolUse("a", "write", map[string]any{"content": "plan", "write_file_path": notes, "mode": "at"}),
			toolUse("b", "svg2png", map[string]any{"content": circleSVG}),
			toolUse("c", "write", map[string]any{"content": "", "write_file_path": "", "mode": "wt"}),
		),
		llm.AssistantMessage(
			toolUse("d", "svg2png", map[string]any{"content": circleSVG}),
		),
		llm.AssistantMessage(
			toolUse("e", "complete", map[string]any{"content": "done"}),
		),
	}}

	result, err := New(DefaultConfig(), model, f.registry, nil).Run(context.Background(), "a red circle")
	require.NoError(t, err)
	assert.Equal(t, ReasonCompleted, result.Reason)

	// user, assistant, user(results), assistant, user(results), assistant(complete)
	require.Len(t, result.History, 6)

	for i, msg := range result.History {
		if msg.Role != llm.RoleAssistant {
			continue
		}
		uses := msg.ToolUses()
		if i+1 == len(result.History) {
			assert.Equal(t, "complete", uses[0].Name)
			continue
		}
		next := result.History[i+1]
		require.Equal(t, llm.RoleUser, next.Role)
		require.Len(t, next.Content, len(uses))
		for j, use := range uses {
			res, ok := next.Content[j].(llm.ToolResultBlock)
			require.True(t, ok)
			assert.Equal(t, use.ID, res.ToolUseID, "result %d of turn %d", j, i)
		}
	}

	errResult := result.History[2].Content[2].(llm.ToolResultBlock)
	assert.True(t, errResult.IsError)
	assert.Equal(t, "Error: content is empty, write_file_path is empty", errResult.Text())

	data, err := os.ReadFile(notes)
	require.NoError(t, err)
	assert.Equal(t, "plan\n", string(data))

	archived, err := f.store.Archived()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, archived)

	require.Len(t, result.Metadata.ToolCalls, 5)
	assert.False(t, result.Metadata.ToolCalls[2].Success)
	assert.Equal(t, []string{"write", "svg2png", "write"}, result.Steps[0].ToolNames)
}

func TestRunUnknownToolIsFatal(t *testing.T) {
	model := &scriptedModel{turns: []llm.Message{
		llm.AssistantMessage(toolUse("x", "rm_recursive", map[string]any{"remove_dir_path": "/"})),
	}}
	f := newPaintingFixture(t)

	result, err := New(DefaultConfig(), model, f.registry, nil).Run(context.Background(), "anything")

	var unknown *tools.UnknownToolError
	require.True(t, errors.As(err, &unknown), "got %T: %v", err, err)
	assert.Equal(t, ReasonFailed, result.Reason)
	assert.Len(t, model.requests, 1)
}

func TestRunTextOnlyTurnStops(t *testing.T) {
	model := &scriptedModel{turns: []llm.Message{
		llm.AssistantMessage(llm.TextBlock{Text: "What should I draw?"}),
	}}
	f := newPaintingFixture(t)

	result, err := New(DefaultConfig(), model, f.registry, nil).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, ReasonNoToolCall, result.Reason)
	assert.Equal(t, "What should I draw?", result.Message)
	assert.True(t, result.Reason.IsSuccess())
	assert.Len(t, result.History, 2)
}

func TestRunModelFailureIsFatal(t *testing.T) {
	cause := &llm.ExhaustedRetriesError{Attempts: 10, Err: errors.New("overloaded")}
	model := &scriptedModel{errAt: map[int]error{0: cause}}
	f := newPaintingFixture(t)

	result, err := New(DefaultConfig(), model, f.registry, nil).Run(context.Background(), "a red circle")

	var exhausted *llm.ExhaustedRetriesError
	require.True(t, errors.As(err, &exhausted), "got %T: %v", err, err)
	assert.Equal(t, 10, exhausted.Attempts)
	assert.Equal(t, ReasonFailed, result.Reason)
	assert.False(t, result.Reason.IsSuccess())
}

func TestRunTurnLimit(t *testing.T) {
	f := newPaintingFixture(t)
	model := &scriptedModel{turns: []llm.Message{
		llm.AssistantMessage(toolUse("1", "svg2png", map[string]any{"content": circleSVG})),
		llm.AssistantMessage(toolUse("2", "svg2png", map[string]any{"content": circleSVG})),
		llm.AssistantMessage(toolUse("3", "svg2png", map[string]any{"content": circleSVG})),
	}}

	driver, err := NewBuilder(model, f.registry).MaxTurns(2).Build()
	require.NoError(t, err)

	result, err := driver.Run(context.Background(), "a red circle")
	require.NoError(t, err)
	assert.Equal(t, ReasonTurnLimit, result.Reason)
	assert.Equal(t, 2, result.Turns)
	assert.Len(t, model.requests, 2)
}

func TestRunCompleteStillAnswersSiblingTools(t *testing.T) {
	f := newPaintingFixture(t)
	model := &scriptedModel{turns: []llm.Message{
		llm.AssistantMessage(
			toolUse("c", "complete", map[string]any{"content": "done"}),
			toolUse("s", "svg2png", map[string]any{"content": circleSVG}),
		),
	}}

	result, err := New(DefaultConfig(), model, f.registry, nil).Run(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, ReasonCompleted, result.Reason)
	assert.FileExists(t, f.store.PNGPath())

	require.Len(t, result.History, 3)
	res := result.History[2].Content
	require.Len(t, res, 1)
	assert.Equal(t, "s", res[0].(llm.ToolResultBlock).ToolUseID)
}

func TestRunCompleteWithoutMessageTerminates(t *testing.T) {
	f := newPaintingFixture(t)
	model := &scriptedModel{turns: []llm.Message{
		llm.AssistantMessage(toolUse("c", "complete", map[string]any{})),
	}}

	result, err := New(DefaultConfig(), model, f.registry, nil).Run(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, ReasonCompleted, result.Reason)
	assert.Empty(t, result.Message)
	assert.Len(t, model.requests, 1)

	// prompt and assistant turn only, no tool results
	require.Len(t, result.History, 2)
	assert.Equal(t, llm.RoleAssistant, result.History[1].Role)
}

func TestRunTextAfterToolUseContinues(t *testing.T) {
	f := newPaintingFixture(t)
	model := &scriptedModel{turns: []llm.Message{
		llm.AssistantMessage(
			toolUse("s", "svg2png", map[string]any{"content": circleSVG}),
			llm.TextBlock{Text: "Let me look at it first."},
		),
		llm.AssistantMessage(toolUse("c", "complete", map[string]any{"content": "done"})),
	}}

	result, err := New(DefaultConfig(), model, f.registry, nil).Run(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, ReasonCompleted, result.Reason)
	assert.Equal(t, 2, result.Turns)
	assert.Len(t, model.requests, 2)

	require.Len(t, result.Steps, 2)
	assert.Equal(t, "Let me look at it first.", result.Steps[0].Remark)
	assert.Equal(t, []string{"svg2png"}, result.Steps[0].ToolNames)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := &scriptedModel{}
	f := newPaintingFixture(t)

	result, err := New(DefaultConfig(), model, f.registry, nil).Run(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ReasonFailed, result.Reason)
	assert.Empty(t, model.requests)
}

func TestBuilderValidation(t *testing.T) {
	_, err := NewBuilder(nil, nil).Build()
	assert.Error(t, err)

	f := newPaintingFixture(t)
	_, err = NewBuilder(&scriptedModel{}, f.registry).MaxTurns(-1).Build()
	assert.Error(t, err)
}

func TestTerminationReasonString(t *testing.T) {
	assert.Equal(t, "completed", ReasonCompleted.String())
	assert.Equal(t, "no_tool_call", ReasonNoToolCall.String())
	assert.Equal(t, "failed", ReasonFailed.String())
	assert.Equal(t, "turn_limit", ReasonTurnLimit.String())
}
