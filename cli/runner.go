// Command execution for CLI commands.
//
// Information Hiding:
// - Provider, registry and driver setup hidden
// - Transcript database lifecycle hidden
// - Output formatting hidden

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/richinex/svgpainter/agent"
	"github.com/richinex/svgpainter/artifact"
	"github.com/richinex/svgpainter/config"
	"github.com/richinex/svgpainter/llm"
	"github.com/richinex/svgpainter/model"
	"github.com/richinex/svgpainter/prompt"
	"github.com/richinex/svgpainter/tools"
	"github.com/richinex/svgpainter/transcript"
)

// DefaultTitle is painted when no title is given.
const DefaultTitle = "Doraemon"

// Options holds CLI execution options. Empty fields keep the environment settings.
type Options struct {
	Provider     string
	Usecase      string
	TranscriptDB string
	MaxTurns     int
}

// Paint runs one painting session for title.
//
// The returned error is non-nil only for fatal failures: bad settings, a
// workspace that cannot be reset, exhausted model retries or an unknown tool.
// A run that stops without calling complete still returns nil.
func Paint(ctx context.Context, title string, opts Options) error {
	if title == "" {
		title = DefaultTitle
	}

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	systemPrompt, err := prompt.System(settings.Usecase)
	if err != nil {
		return err
	}

	provider, err := createProvider(settings)
	if err != nil {
		return err
	}

	if err := artifact.PrepareWorkspace(settings.Workspace.WorkDir, settings.Workspace.ImageDir); err != nil {
		return fmt.Errorf("failed to prepare workspace: %w", err)
	}

	var (
		sink transcript.Sink
		run  *transcript.RunSink
	)
	if settings.TranscriptDB != "" {
		store, err := transcript.OpenSqlite(settings.TranscriptDB)
		if err != nil {
			return fmt.Errorf("failed to open transcript database: %w", err)
		}
		defer store.Close()

		run, err = store.StartRun(ctx, transcript.RunInfo{
			Title:    title,
			Provider: provider.Name(),
			Model:    provider.Model(),
			Usecase:  settings.Usecase,
		})
		if err != nil {
			return fmt.Errorf("failed to start transcript run: %w", err)
		}
		sink = run
	}

	log, err := transcript.Open(transcript.Options{Dir: settings.Workspace.LogDir, Sink: sink})
	if err != nil {
		return err
	}
	defer log.Close()

	policy := settings.RetryPolicy()
	policy.OnRetry = func(attempt, maxRetries int, delay time.Duration, err error) {
		log.Warn(fmt.Sprintf("model call failed (attempt %d/%d), retrying in %s",
			attempt, maxRetries, delay.Round(time.Millisecond)), err)
	}
	client := llm.NewClient(provider).WithRetryPolicy(policy)

	images := artifact.NewStore(settings.Workspace.ImageDir, artifact.NewOKSVG())
	registry, err := tools.WithPaintingTools(images, settings.Workspace.WorkDir)
	if err != nil {
		return err
	}

	driver, err := agent.NewBuilder(client, registry).
		SystemPrompt(systemPrompt).
		MaxTurns(settings.MaxTurns).
		Transcript(log).
		Build()
	if err != nil {
		return err
	}

	log.Event("run_start", "painting "+title, map[string]any{
		"provider": provider.Name(),
		"model":    provider.Model(),
		"usecase":  settings.Usecase,
		"tools":    registry.Names(),
	})

	result, runErr := driver.Run(ctx, title)

	if run != nil {
		// Record the outcome even when ctx was cancelled.
		if err := run.Finish(context.WithoutCancel(ctx), result.Reason.String(), result.Turns); err != nil {
			log.Warn("failed to finish transcript run", err)
		}
	}

	printResult(os.Stdout, result, images, log.Path())

	if runErr != nil {
		return fmt.Errorf("painting failed: %w", runErr)
	}
	return nil
}

// ListTools prints the tools offered to the model.
func ListTools(verbose bool) error {
	registry, err := tools.WithPaintingTools(artifact.NewStore("image", artifact.NewOKSVG()), "work")
	if err != nil {
		return err
	}
	printTools(os.Stdout, registry, verbose)
	return nil
}

// ListRuns prints the runs recorded in a transcript database.
func ListRuns(ctx context.Context, dbPath string) error {
	store, err := transcript.OpenSqlite(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open transcript database: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	printRuns(os.Stdout, runs)
	return nil
}

// ShowRun prints the transcript events of one run.
func ShowRun(ctx context.Context, dbPath, runID string) error {
	store, err := transcript.OpenSqlite(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open transcript database: %w", err)
	}
	defer store.Close()

	events, err := store.Events(ctx, runID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("no events recorded for run %q", runID)
	}
	printEvents(os.Stdout, events)
	return nil
}

// Helper functions

func loadSettings(opts Options) (config.Settings, error) {
	settings, err := config.Load(opts.Provider)
	if err != nil {
		return config.Settings{}, err
	}
	if opts.Usecase != "" {
		settings.Usecase = opts.Usecase
	}
	if opts.TranscriptDB != "" {
		settings.TranscriptDB = opts.TranscriptDB
	}
	if opts.MaxTurns > 0 {
		settings.MaxTurns = opts.MaxTurns
	}
	return settings, nil
}

func createProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := settings.ProviderType()
	if err != nil {
		return nil, err
	}
	apiKey, err := settings.APIKey()
	if err != nil {
		return nil, err
	}
	return llm.NewProviderBuilder(providerType).
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		Build(apiKey)
}

// maxRemarkLen bounds the final remark printed to the console.
const maxRemarkLen = 300

func printResult(w io.Writer, result agent.Result, images *artifact.Store, logPath string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Finished: %s after %d turns\n", result.Reason, result.Turns)
	if result.Message != "" {
		fmt.Fprintf(w, "%s\n", truncateString(result.Message, maxRemarkLen))
	}

	if images != nil {
		fmt.Fprintf(w, "\nImage: %s\n", images.PNGPath())
		if archived, err := images.Archived(); err == nil && len(archived) > 0 {
			fmt.Fprintf(w, "Earlier drafts: %d\n", len(archived))
		}
	}
	if logPath != "" {
		fmt.Fprintf(w, "Transcript: %s\n", logPath)
	}

	printTokenStats(w, result.Metadata)
	printToolStats(w, result.Metadata.ToolCalls)
}

// printTokenStats prints token usage statistics.
func printTokenStats(w io.Writer, meta agent.Metadata) {
	fmt.Fprintf(w, "\nToken Usage:\n")
	fmt.Fprintf(w, "  LLM calls: %d\n", meta.LLMCalls)
	if meta.TokenUsage == nil {
		return
	}
	fmt.Fprintf(w, "  Prompt tokens: %d\n", meta.TokenUsage.PromptTokens)
	fmt.Fprintf(w, "  Completion tokens: %d\n", meta.TokenUsage.CompletionTokens)
	fmt.Fprintf(w, "  Total tokens: %d\n", meta.TokenUsage.TotalTokens)
}

func printToolStats(w io.Writer, calls []model.ToolCall) {
	if len(calls) == 0 {
		return
	}
	stats := model.Summarize(calls)
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "\nTool Calls:\n")
	for _, name := range names {
		s := stats[name]
		fmt.Fprintf(w, "  %s: %d calls, %d failed, %dms\n", name, s.Calls, s.Failures, s.DurationMs)
	}
}

func printTools(w io.Writer, registry *tools.Registry, verbose bool) {
	fmt.Fprintln(w, "Available tools:")
	fmt.Fprintln(w)

	if verbose {
		fmt.Fprintln(w, registry.Description())
		return
	}
	for _, meta := range registry.List() {
		fmt.Fprintf(w, "  %s\n", meta.Name)
		fmt.Fprintf(w, "    %s\n", meta.Description)
		fmt.Fprintln(w)
	}
}

func printRuns(w io.Writer, runs []transcript.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range runs {
		status := "running"
		if r.FinishedAt != nil {
			status = r.Reason
		}
		fmt.Fprintf(w, "%s  %s  %-12s %s/%s  turns=%d events=%d  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status,
			r.Provider,
			r.Model,
			r.Turns,
			r.Events,
			truncateString(r.Title, 40),
		)
	}
}

// maxEventMessageLen bounds each event line of ShowRun.
const maxEventMessageLen = 120

func printEvents(w io.Writer, events []transcript.EventRecord) {
	for _, e := range events {
		fmt.Fprintf(w, "%4d %-18s %s\n", e.Seq, e.Kind, truncateString(e.Message, maxEventMessageLen))
	}
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
