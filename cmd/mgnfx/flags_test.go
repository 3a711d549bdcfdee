package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1broseidon/mgnfx/internal/config"
	"github.com/1broseidon/mgnfx/internal/instance"
)

func TestParseFlagsDefaultsLeaveConfigUntouched(t *testing.T) {
	opts, err := parseFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.Width = 123
	cfg.Keys.Quit = config.MustParseKey("KEY_Q")
	opts.apply(cfg)
	if cfg.Width != 123 {
		t.Fatalf("width=%d, want file value 123 kept", cfg.Width)
	}
	if cfg.Keys.Quit != config.MustParseKey("KEY_Q") {
		t.Fatalf("quit=%v, want file value kept", cfg.Keys.Quit)
	}
}

func TestParseFlagsOverride(t *testing.T) {
	opts, err := parseFlags([]string{
		"-w", "640", "-h", "480", "-W", "10", "-H", "20",
		"-s", "3.5", "-z", "0.1", "-Z", "1", "-r", "144",
		"-q", "KEY_Q", "-i", "KEY_L", "-I", "KEY_H",
		"-e", "KEY_J", "-E", "KEY_K", "-n", "KEY_KPPLUS", "-o", "KEY_KPMINUS",
		"-m", "KEY_LEFTALT", "-m", "KEY_LEFTSHIFT",
	}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg := config.DefaultConfig()
	opts.apply(cfg)

	if cfg.Width != 640 || cfg.Height != 480 || cfg.WidthStep != 10 || cfg.HeightStep != 20 {
		t.Fatalf("sizes = %d %d %d %d", cfg.Width, cfg.Height, cfg.WidthStep, cfg.HeightStep)
	}
	if cfg.Zoom != 3.5 || cfg.ZoomCoefficient != 0.1 || cfg.ZoomStep != 1 || cfg.Rate != 144 {
		t.Fatalf("zoom = %v %v %v rate=%d", cfg.Zoom, cfg.ZoomCoefficient, cfg.ZoomStep, cfg.Rate)
	}
	want := config.Bindings{
		Quit:         config.MustParseKey("KEY_Q"),
		GrowWidth:    config.MustParseKey("KEY_L"),
		ShrinkWidth:  config.MustParseKey("KEY_H"),
		GrowHeight:   config.MustParseKey("KEY_J"),
		ShrinkHeight: config.MustParseKey("KEY_K"),
		ZoomIn:       config.MustParseKey("KEY_KPPLUS"),
		ZoomOut:      config.MustParseKey("KEY_KPMINUS"),
	}
	got := cfg.Keys
	if got.Quit != want.Quit || got.GrowWidth != want.GrowWidth || got.ShrinkWidth != want.ShrinkWidth ||
		got.GrowHeight != want.GrowHeight || got.ShrinkHeight != want.ShrinkHeight ||
		got.ZoomIn != want.ZoomIn || got.ZoomOut != want.ZoomOut {
		t.Fatalf("keys = %+v, want %+v", got, want)
	}
	if len(got.Modifiers) != 2 || got.Modifiers[0] != config.MustParseKey("KEY_LEFTALT") ||
		got.Modifiers[1] != config.MustParseKey("KEY_LEFTSHIFT") {
		t.Fatalf("modifiers = %v", got.Modifiers)
	}
}

func TestParseFlagsErrors(t *testing.T) {
	tooMany := []string{}
	for i := 0; i <= config.MaxModifierKeys; i++ {
		tooMany = append(tooMany, "-m", fmt.Sprintf("KEY_F%d", i+1))
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown key", []string{"-q", "KEY_NOPE"}, "KEY_NOPE"},
		{"bad int", []string{"-w", "wide"}, "invalid value"},
		{"too many modifiers", tooMany, config.ErrTooManyModifiers.Error()},
		{"positional", []string{"extra"}, "unexpected arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			_, err := parseFlags(tt.args, &out)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Fatalf("output %q does not mention %q", out.String(), tt.want)
			}
		})
	}
}

func TestParseFlagsHelp(t *testing.T) {
	var out strings.Builder
	_, err := parseFlags([]string{"--help"}, &out)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("err=%v, want flag.ErrHelp", err)
	}
	if !strings.Contains(out.String(), "Usage: mgnfx") || !strings.Contains(out.String(), "KEY_LEFTMETA KEY_LEFTCTRL") {
		t.Fatalf("usage output = %q", out.String())
	}
}

func TestRunExitCodes(t *testing.T) {
	tooMany := []string{}
	for i := 0; i <= config.MaxModifierKeys; i++ {
		tooMany = append(tooMany, "-m", "KEY_A")
	}
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"--help"}, 0},
		{"missing value", []string{"-w"}, 1},
		{"unknown key", []string{"-q", "KEY_BOGUS"}, 1},
		{"too many modifiers", tooMany, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rc := run(tt.args); rc != tt.want {
				t.Fatalf("rc=%d, want %d", rc, tt.want)
			}
		})
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "width: 300\nheight: 310\nrate: 30\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	opts, err := parseFlags([]string{"-c", path, "-w", "500"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg, gotPath, err := loadConfig(opts)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if gotPath != path {
		t.Fatalf("path=%q, want %q", gotPath, path)
	}
	if cfg.Width != 500 {
		t.Fatalf("width=%d, want flag value 500", cfg.Width)
	}
	if cfg.Height != 310 || cfg.Rate != 30 {
		t.Fatalf("height=%d rate=%d, want file values", cfg.Height, cfg.Rate)
	}
	if cfg.ZoomStep != config.DefaultZoomStep {
		t.Fatalf("zoom step=%v, want default", cfg.ZoomStep)
	}
}

func TestLoadConfigRejectsInvalidFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml"), "-s", "20"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	_, _, err = loadConfig(opts)
	if err == nil {
		t.Fatalf("expected zoom out of range to be rejected")
	}
	if !strings.Contains(err.Error(), "flag -s: zoom") {
		t.Fatalf("err=%v, want it attributed to -s", err)
	}
}

func TestReleaseLockReportsFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mgnfx.pid:0")
	lock, err := instance.Acquire(path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// A non-empty directory in place of the pidfile cannot be removed.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(path, "busy"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err = releaseLock(lock, nil)
	if err == nil || !strings.Contains(err.Error(), "instance lock") {
		t.Fatalf("err=%v, want pidfile removal failure", err)
	}

	prior := errors.New("loop failed")
	if err := releaseLock(nil, prior); err != prior {
		t.Fatalf("nil lock changed err to %v", err)
	}
}

func TestMagnifierRequiresEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	opts, err := parseFlags([]string{"-c", path}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	logger := newLogger(os.Stderr, false)

	t.Setenv("DISPLAY", "")
	t.Setenv("XDG_SEAT", "seat0")
	if err := magnifier(opts, logger); err == nil || !strings.Contains(err.Error(), "DISPLAY") {
		t.Fatalf("err=%v, want DISPLAY error", err)
	}

	t.Setenv("DISPLAY", ":99")
	t.Setenv("XDG_SEAT", "")
	if err := magnifier(opts, logger); err == nil || !strings.Contains(err.Error(), "XDG_SEAT") {
		t.Fatalf("err=%v, want XDG_SEAT error", err)
	}
}
