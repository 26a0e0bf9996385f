// Write Tool - overwrite or append text files in the work directory.
//
// Information Hiding:
// - File I/O implementation details hidden
// - Path validation and security checks hidden
// - Mode aliases normalized internally

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Write modes accepted by the write tool.
const (
	ModeOverwrite = "wt"
	ModeAppend    = "at"
)

// WriteSuccess is the text returned after a successful write.
const WriteSuccess = "File written successfully."

// WriteTool writes or appends text to a file. A trailing newline is always added.
type WriteTool struct {
	allowedPaths []string
	maxSizeBytes int64
}

// NewWriteTool creates a new write tool.
func NewWriteTool(maxSizeBytes int64) *WriteTool {
	return &WriteTool{
		maxSizeBytes: maxSizeBytes,
	}
}

// WithAllowedPaths sets the allowed path prefixes.
func (t *WriteTool) WithAllowedPaths(paths []string) *WriteTool {
	t.allowedPaths = paths
	return t
}

// Metadata returns the tool metadata.
func (t *WriteTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "write",
		Description: "A tool to write text to a file.\n" +
			"The return value is \"" + WriteSuccess + "\"\n" +
			"If an error occurs, the output will start with \"Error:\"",
		Parameters: []ToolParameter{
			{Name: "content", ParamType: "string", Description: "Content to be written to the file", Required: true},
			{Name: "write_file_path", ParamType: "string", Description: "File path to write text", Required: true},
			{
				Name:        "mode",
				ParamType:   "string",
				Description: "If overwriting, store as \"wt\", if appending, store as \"at\".",
				Required:    true,
				Enum:        []string{ModeOverwrite, ModeAppend, "overwrite", "append"},
			},
		},
	}
}

type writeArgs struct {
	Content       string `json:"content"`
	WriteFilePath string `json:"write_file_path"`
	Mode          string `json:"mode"`
}

// normalizeMode maps mode aliases to wt/at. It returns "" for unknown modes.
func normalizeMode(mode string) string {
	switch mode {
	case ModeOverwrite, "overwrite":
		return ModeOverwrite
	case ModeAppend, "append":
		return ModeAppend
	default:
		return ""
	}
}

// Validate reports every empty field in one error.
func (t *WriteTool) Validate(args json.RawMessage) error {
	var a writeArgs
	if err := decodeArgs("write", args, &a); err != nil {
		return err
	}

	var problems []string
	if a.Content == "" {
		problems = append(problems, "content is empty")
	}
	if a.WriteFilePath == "" {
		problems = append(problems, "write_file_path is empty")
	}
	if a.Mode == "" {
		problems = append(problems, "mode is empty")
	} else if normalizeMode(a.Mode) == "" {
		problems = append(problems, fmt.Sprintf("mode %q is not one of %q, %q", a.Mode, ModeOverwrite, ModeAppend))
	}
	if t.maxSizeBytes > 0 && int64(len(a.Content)) > t.maxSizeBytes {
		problems = append(problems, fmt.Sprintf("content too large: %d bytes (max: %d bytes)", len(a.Content), t.maxSizeBytes))
	}

	if len(problems) > 0 {
		return &ValidationError{Tool: "write", Problems: problems}
	}
	return nil
}

// Execute writes to the file.
func (t *WriteTool) Execute(ctx context.Context, args json.RawMessage) (Outcome, error) {
	if err := t.Validate(args); err != nil {
		return nil, err
	}
	var a writeArgs
	if err := decodeArgs("write", args, &a); err != nil {
		return nil, err
	}

	if !pathAllowedForWrite(a.WriteFilePath, t.allowedPaths) {
		return nil, &ValidationError{
			Tool:     "write",
			Problems: []string{fmt.Sprintf("access to path '%s' is not allowed", a.WriteFilePath)},
		}
	}

	if err := os.MkdirAll(filepath.Dir(a.WriteFilePath), 0755); err != nil {
		return nil, &IOError{Op: "mkdir", Path: filepath.Dir(a.WriteFilePath), Err: err}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if normalizeMode(a.Mode) == ModeAppend {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := os.OpenFile(a.WriteFilePath, flags, 0644)
	if err != nil {
		return nil, &IOError{Op: "open", Path: a.WriteFilePath, Err: err}
	}
	if _, err := f.WriteString(a.Content + "\n"); err != nil {
		f.Close()
		return nil, &IOError{Op: "write", Path: a.WriteFilePath, Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, &IOError{Op: "close", Path: a.WriteFilePath, Err: err}
	}

	return TextResult{Text: WriteSuccess}, nil
}

// Verify WriteTool implements Tool
var _ Tool = (*WriteTool)(nil)
