// Package artifact keeps the drawings produced during a run.
//
// Information Hiding:
// - File naming and sequence numbering hidden
// - Rasterization hidden behind the Rasterizer interface
// - Archive scan recomputed on every call, no cached state
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/richinex/svgpainter/tools"
)

// File names of the current drawing.
const (
	CurrentSVG = "image.svg"
	CurrentPNG = "image.png"
)

var archivePattern = regexp.MustCompile(`^image-(\d{5,})\.(svg|png)$`)

// Store holds the current SVG/PNG pair and its numbered history in one directory.
// Not safe for concurrent runs sharing a directory.
type Store struct {
	dir    string
	raster Rasterizer
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, raster Rasterizer) *Store {
	return &Store{dir: dir, raster: raster}
}

// Dir returns the image directory.
func (s *Store) Dir() string {
	return s.dir
}

// SVGPath returns the path of the current SVG.
func (s *Store) SVGPath() string {
	return filepath.Join(s.dir, CurrentSVG)
}

// PNGPath returns the path of the current PNG.
func (s *Store) PNGPath() string {
	return filepath.Join(s.dir, CurrentPNG)
}

// ArchivePath returns the path of an archived file, e.g. image-00003.svg.
func (s *Store) ArchivePath(seq int, ext string) string {
	return filepath.Join(s.dir, fmt.Sprintf("image-%05d.%s", seq, ext))
}

// Archived returns the archived sequence numbers in ascending order.
func (s *Store) Archived() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	seen := make(map[int]bool)
	for _, e := range entries {
		m := archivePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		seen[n] = true
	}

	seqs := make([]int, 0, len(seen))
	for n := range seen {
		seqs = append(seqs, n)
	}
	sort.Ints(seqs)
	return seqs, nil
}

// NextSequence returns one more than the highest archived sequence number.
func (s *Store) NextSequence() (int, error) {
	seqs, err := s.Archived()
	if err != nil {
		return 0, err
	}
	if len(seqs) == 0 {
		return 1, nil
	}
	return seqs[len(seqs)-1] + 1, nil
}

// ArchiveAndWrite rasterizes svg, moves the current pair to the next sequence
// number and writes the new pair. A drawing that fails to rasterize leaves the
// directory untouched.
func (s *Store) ArchiveAndWrite(ctx context.Context, svg string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	png, err := s.raster.Rasterize(ctx, []byte(svg))
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", s.dir, err)
	}
	if err := s.archiveCurrent(); err != nil {
		return nil, err
	}

	if err := os.WriteFile(s.SVGPath(), []byte(svg), 0644); err != nil {
		return nil, fmt.Errorf("failed to write svg: %w", err)
	}
	if err := os.WriteFile(s.PNGPath(), png, 0644); err != nil {
		return nil, fmt.Errorf("failed to write png: %w", err)
	}
	return png, nil
}

func (s *Store) archiveCurrent() error {
	svgExists := fileExists(s.SVGPath())
	pngExists := fileExists(s.PNGPath())
	if !svgExists && !pngExists {
		return nil
	}

	seq, err := s.NextSequence()
	if err != nil {
		return err
	}
	if svgExists {
		if err := os.Rename(s.SVGPath(), s.ArchivePath(seq, "svg")); err != nil {
			return fmt.Errorf("failed to archive svg: %w", err)
		}
	}
	if pngExists {
		if err := os.Rename(s.PNGPath(), s.ArchivePath(seq, "png")); err != nil {
			return fmt.Errorf("failed to archive png: %w", err)
		}
	}
	return nil
}

// Verify Store implements tools.ImageStore
var _ tools.ImageStore = (*Store)(nil)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
