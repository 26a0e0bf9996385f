// Package transcript records a painting run on the console and in a log file.
//
// Information Hiding:
// - Log file naming and lifecycle hidden
// - zerolog writer setup hidden
// - Optional persistent sink fed from the same calls
package transcript

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSummaryLength is the rune limit used by Summary.
const DefaultSummaryLength = 500

const separator = "=================================================="

// Sink receives every transcript entry, e.g. a database.
type Sink interface {
	Record(kind, message string, fields map[string]any) error
}

// Options configures Open.
type Options struct {
	Dir     string    // Directory for research_log_<timestamp>.txt, default "logs"
	Console io.Writer // Default os.Stdout
	Sink    Sink
	Now     func() time.Time
}

// Logger mirrors transcript entries to the console and a timestamped file.
// Open it at run start and Close it at run end.
type Logger struct {
	log  zerolog.Logger
	file *os.File
	path string
	sink Sink
}

// Open creates the log directory and file and returns a ready logger.
func Open(opts Options) (*Logger, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "logs"
	}
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("research_log_%s.txt", now().Format("20060102_150405")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	writer := zerolog.MultiLevelWriter(
		newConsoleWriter(console, false),
		newConsoleWriter(file, true),
	)

	return &Logger{
		log:  zerolog.New(writer).With().Timestamp().Logger(),
		file: file,
		path: path,
		sink: opts.Sink,
	}, nil
}

func newConsoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor || out != os.Stdout,
		TimeFormat: "15:04:05",
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.MessageFieldName,
		},
	}
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.path
}

// Log writes a plain message.
func (l *Logger) Log(message string) {
	l.log.Info().Msg(message)
	l.record("log", message, nil)
}

// Separator writes a horizontal rule.
func (l *Logger) Separator() {
	l.log.Info().Msg(separator)
}

// Section writes a section title.
func (l *Logger) Section(title string) {
	l.log.Info().Msg("=== " + title + " ===")
	l.record("section", title, nil)
}

// Subsection writes a subsection title.
func (l *Logger) Subsection(title string) {
	l.log.Info().Msg("--- " + title + " ---")
	l.record("subsection", title, nil)
}

// Summary writes text truncated to DefaultSummaryLength runes.
func (l *Logger) Summary(text string) {
	l.Log(Truncate(text, DefaultSummaryLength))
}

// Event writes a structured entry. Values should be small; never pass image bytes.
func (l *Logger) Event(kind, message string, fields map[string]any) {
	ev := l.log.Info().Str("event", kind)
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(message)
	l.record(kind, message, fields)
}

// Warn writes a warning with an optional error.
func (l *Logger) Warn(message string, err error) {
	ev := l.log.Warn()
	fields := map[string]any{}
	if err != nil {
		ev = ev.Err(err)
		fields["error"] = err.Error()
	}
	ev.Msg(message)
	l.record("warning", message, fields)
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		l.file.Close()
		l.file = nil
		return fmt.Errorf("failed to flush log file: %w", err)
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// record forwards an entry to the sink. Sink failures never stop the run.
func (l *Logger) record(kind, message string, fields map[string]any) {
	if l.sink == nil {
		return
	}
	if err := l.sink.Record(kind, message, fields); err != nil {
		l.log.Warn().Err(err).Str("event", kind).Msg("transcript sink failed")
	}
}

// Truncate shortens text to max runes, appending "..." when cut.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// Discard returns a logger that writes nowhere. Useful in tests.
func Discard() *Logger {
	return &Logger{log: zerolog.Nop()}
}
