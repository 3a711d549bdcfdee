package runtimepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoRuntimeDir is returned when XDG_RUNTIME_DIR is not set. Callers treat
// it as "no per-session state", not as a failure.
var ErrNoRuntimeDir = errors.New("XDG_RUNTIME_DIR is not set")

// Dir returns the per-user runtime directory from XDG_RUNTIME_DIR.
func Dir() (string, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", ErrNoRuntimeDir
	}
	return runtimeDir, nil
}

// PidfilePath returns the single-instance lock path for display, e.g.
// $XDG_RUNTIME_DIR/mgnfx.pid:0 for DISPLAY=:0.
func PidfilePath(display string) (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, "mgnfx.pid"+strings.ReplaceAll(display, "/", "_")), nil
}
