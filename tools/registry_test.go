package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	svgs []string
	png  []byte
	err  error
}

func (s *fakeStore) ArchiveAndWrite(ctx context.Context, svg string) ([]byte, error) {
	s.svgs = append(s.svgs, svg)
	if s.err != nil {
		return nil, s.err
	}
	return s.png, nil
}

func newTestRegistry(t *testing.T, store ImageStore) *Registry {
	t.Helper()
	r, err := WithPaintingTools(store, t.TempDir())
	require.NoError(t, err)
	return r
}

func TestRegistryNamesInOrder(t *testing.T) {
	r := newTestRegistry(t, &fakeStore{})

	assert.Equal(t, []string{"write", "svg2png", "complete"}, r.Names())
	_, ok := r.Get("svg2png")
	assert.True(t, ok)
	_, ok = r.Get("bash")
	assert.False(t, ok)

	specs := r.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, "write", specs[0].Name)
	assert.ElementsMatch(t, []string{"content", "write_file_path", "mode"}, specs[0].Required())
	assert.Contains(t, r.Description(), "Tool: complete")
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewCompleteTool()))

	err := r.Register(NewCompleteTool())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

type badSchemaTool struct {
	BaseTool
}

func (badSchemaTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:       "broken",
		Parameters: []ToolParameter{{Name: "x", ParamType: "not-a-type"}},
	}
}

func (badSchemaTool) Execute(ctx context.Context, args json.RawMessage) (Outcome, error) {
	return TextResult{}, nil
}

func TestRegistryRejectsInvalidSchema(t *testing.T) {
	err := NewRegistry().Register(badSchemaTool{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input schema")
}

func TestDispatchUnknownTool(t *testing.T) {
	r := newTestRegistry(t, &fakeStore{})

	_, err := r.Dispatch(context.Background(), "rm_recursive", json.RawMessage(`{}`))

	var unknown *UnknownToolError
	require.True(t, errors.As(err, &unknown), "got %T", err)
	assert.Equal(t, "rm_recursive", unknown.Name)
}

func TestDispatchSchemaViolation(t *testing.T) {
	r := newTestRegistry(t, &fakeStore{})

	tests := []struct {
		name string
		tool string
		args string
	}{
		{"wrong type", "svg2png", `{"content": 42}`},
		{"mode outside enum", "write", `{"content":"x","write_file_path":"a.txt","mode":"rw"}`},
		{"missing required", "write", `{"content":"x","mode":"wt"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Dispatch(context.Background(), tt.tool, json.RawMessage(tt.args))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %T: %v", err, err)
			assert.NotEmpty(t, verr.Problems)
		})
	}
}

func TestDispatchSVG2PNG(t *testing.T) {
	store := &fakeStore{png: []byte("png-bytes")}
	r := newTestRegistry(t, store)

	out, err := r.Dispatch(context.Background(), "svg2png", json.RawMessage(`{"content":"<svg width=\"10\" height=\"10\"/>"}`))
	require.NoError(t, err)

	img, ok := out.(ImageResult)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, []byte("png-bytes"), img.Data)
	assert.Equal(t, ImageCaption, img.Caption)
	assert.Equal(t, []string{`<svg width="10" height="10"/>`}, store.svgs)
}

func TestDispatchSVG2PNGFailureIsIOError(t *testing.T) {
	cause := errors.New("svg has no width")
	r := newTestRegistry(t, &fakeStore{err: cause})

	_, err := r.Dispatch(context.Background(), "svg2png", json.RawMessage(`{"content":"<svg/>"}`))

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr), "got %T", err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "svg2png: svg has no width", err.Error())
}

func TestDispatchComplete(t *testing.T) {
	r := newTestRegistry(t, &fakeStore{})

	out, err := r.Dispatch(context.Background(), "complete", json.RawMessage(`{"content":"Finished the circle."}`))
	require.NoError(t, err)
	assert.Equal(t, Terminate{Message: "Finished the circle."}, out)
}

func TestDispatchCompleteAlwaysTerminates(t *testing.T) {
	r := newTestRegistry(t, &fakeStore{})

	tests := []struct {
		name string
		args string
		want string
	}{
		{"missing content", `{}`, ""},
		{"empty args", ``, ""},
		{"content not a string", `{"content": 42}`, ""},
		{"not an object", `["done"]`, ""},
		{"extra fields", `{"content":"done","mood":"happy"}`, "done"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Dispatch(context.Background(), "complete", json.RawMessage(tt.args))
			require.NoError(t, err)
			assert.Equal(t, Terminate{Message: tt.want}, out)
		})
	}
}

func TestOutcomeSize(t *testing.T) {
	assert.Equal(t, 5, Size(TextResult{Text: "hello"}))
	assert.Equal(t, 4, Size(ImageResult{Data: []byte{1, 2}, Caption: "ab"}))
	assert.Equal(t, 0, Size(nil))
}
