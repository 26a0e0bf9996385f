package artifact

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// MaxDimension bounds the declared width and height of a drawing in pixels.
const MaxDimension = 4096

// Rasterizer converts SVG text to PNG bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, svg []byte) ([]byte, error)
}

// OKSVG renders with srwiley/oksvg at the size the SVG root declares.
type OKSVG struct{}

// NewOKSVG creates the default rasterizer.
func NewOKSVG() OKSVG {
	return OKSVG{}
}

// Rasterize draws svg onto a transparent canvas and encodes it as PNG.
func (OKSVG) Rasterize(ctx context.Context, svg []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h, err := Dimensions(svg)
	if err != nil {
		return nil, err
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Dimensions returns the pixel width and height declared on the root <svg> element.
func Dimensions(svg []byte) (int, int, error) {
	dec := xml.NewDecoder(bytes.NewReader(svg))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return 0, 0, errors.New("no <svg> element found")
		}
		if err != nil {
			return 0, 0, fmt.Errorf("failed to parse svg: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return 0, 0, fmt.Errorf("root element is <%s>, want <svg>", start.Name.Local)
		}

		var width, height string
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "width":
				width = attr.Value
			case "height":
				height = attr.Value
			}
		}

		w, err := parseLength("width", width)
		if err != nil {
			return 0, 0, err
		}
		h, err := parseLength("height", height)
		if err != nil {
			return 0, 0, err
		}
		return w, h, nil
	}
}

// parseLength accepts unitless or px lengths and rounds up to whole pixels.
func parseLength(name, value string) (int, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, fmt.Errorf("svg root must declare %s", name)
	}
	v = strings.TrimSuffix(v, "px")

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("svg %s %q: only px or unitless lengths are supported", name, value)
	}
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("svg %s %q must be positive", name, value)
	}

	n := int(math.Ceil(f))
	if n > MaxDimension {
		return 0, fmt.Errorf("svg %s %d exceeds %d pixels", name, n, MaxDimension)
	}
	return n, nil
}
