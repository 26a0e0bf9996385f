// SVG2PNG Tool - rasterize the model's drawing and show it back.

package tools

import (
	"context"
	"encoding/json"
)

// ImageCaption accompanies every rendered image sent back to the model.
const ImageCaption = "This is the image you created."

// ImageStore archives the current drawing and renders a new one.
// Implemented by artifact.Store.
type ImageStore interface {
	ArchiveAndWrite(ctx context.Context, svg string) ([]byte, error)
}

// SVG2PNGTool renders SVG text to PNG through an ImageStore.
type SVG2PNGTool struct {
	store ImageStore
}

// NewSVG2PNGTool creates a new svg2png tool.
func NewSVG2PNGTool(store ImageStore) *SVG2PNGTool {
	return &SVG2PNGTool{store: store}
}

// Metadata returns the tool metadata.
func (t *SVG2PNGTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "svg2png",
		Description: "Pass an SVG string and receive the rendered PNG image. " +
			"The root <svg> element must declare width and height.",
		Parameters: []ToolParameter{
			{Name: "content", ParamType: "string", Description: "The SVG document", Required: true},
		},
	}
}

type svg2pngArgs struct {
	Content string `json:"content"`
}

// Validate validates the arguments.
func (t *SVG2PNGTool) Validate(args json.RawMessage) error {
	var a svg2pngArgs
	if err := decodeArgs("svg2png", args, &a); err != nil {
		return err
	}
	if a.Content == "" {
		return &ValidationError{Tool: "svg2png", Problems: []string{"content is empty"}}
	}
	return nil
}

// Execute archives the previous drawing, renders the new one and returns the PNG.
func (t *SVG2PNGTool) Execute(ctx context.Context, args json.RawMessage) (Outcome, error) {
	var a svg2pngArgs
	if err := decodeArgs("svg2png", args, &a); err != nil {
		return nil, err
	}

	png, err := t.store.ArchiveAndWrite(ctx, a.Content)
	if err != nil {
		return nil, &IOError{Op: "svg2png", Err: err}
	}

	return ImageResult{Format: "png", Data: png, Caption: ImageCaption}, nil
}

// Verify SVG2PNGTool implements Tool
var _ Tool = (*SVG2PNGTool)(nil)
