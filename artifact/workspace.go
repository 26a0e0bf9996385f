package artifact

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/richinex/svgpainter/tools"
)

// protectedDirs are never removed by ResetDir.
var protectedDirs = map[string]bool{
	"/":     true,
	"/etc":  true,
	"/bin":  true,
	"/sbin": true,
	"/var":  true,
	"/usr":  true,
	"/home": true,
}

// ResetDir removes dir with its contents and recreates it empty.
// Failures are *tools.IOError.
func ResetDir(dir string) error {
	abs, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return &tools.IOError{Op: "reset", Path: dir, Err: err}
	}
	if protectedDirs[abs] {
		return &tools.IOError{Op: "reset", Path: abs, Err: errors.New("refusing to remove a system directory")}
	}

	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return &tools.IOError{Op: "reset", Path: abs, Err: errors.New("not a directory")}
	}
	if err := os.RemoveAll(abs); err != nil {
		return &tools.IOError{Op: "reset", Path: abs, Err: err}
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return &tools.IOError{Op: "reset", Path: abs, Err: err}
	}
	return nil
}

// PrepareWorkspace resets every directory in order, stopping at the first failure.
func PrepareWorkspace(dirs ...string) error {
	for _, dir := range dirs {
		if err := ResetDir(dir); err != nil {
			return err
		}
	}
	return nil
}
