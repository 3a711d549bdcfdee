package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MinScale and MaxScale bound the zoom factor.
	MinScale = 1.0
	MaxScale = 10.0

	// MaxModifierKeys is the largest chord that can be configured.
	MaxModifierKeys = 10
)

const (
	DefaultWidth             = 400
	DefaultHeight            = 400
	DefaultWidthStep         = 50
	DefaultHeightStep        = 50
	DefaultZoom              = 2.0
	DefaultZoomCoefficient   = 0.05
	DefaultZoomStep          = 0.5
	DefaultRate              = 60
	DefaultBackground        = 0x000000
	DefaultCompletionTimeout = 250 * time.Millisecond
)

// ErrTooManyModifiers is returned when the chord exceeds MaxModifierKeys.
var ErrTooManyModifiers = errors.New("too many modifier keys")

// Filter selects the XRender filter used when scaling the capture.
type Filter string

const (
	FilterNearest  Filter = "nearest"
	FilterBilinear Filter = "bilinear"
)

// Bindings are the resolved key codes the event scheduler reacts to.
type Bindings struct {
	Quit         KeyCode
	GrowWidth    KeyCode
	ShrinkWidth  KeyCode
	GrowHeight   KeyCode
	ShrinkHeight KeyCode
	ZoomIn       KeyCode
	ZoomOut      KeyCode
	Modifiers    []KeyCode
}

// IsModifier reports whether code is part of the chord.
func (b Bindings) IsModifier(code KeyCode) bool {
	for _, m := range b.Modifiers {
		if m == code {
			return true
		}
	}
	return false
}

// Config is the effective magnifier configuration.
type Config struct {
	Width      int
	Height     int
	WidthStep  int
	HeightStep int

	Zoom            float64
	ZoomCoefficient float64
	ZoomStep        float64

	// Rate is the maximum number of redraws per second.
	Rate int

	Filter     Filter
	Background uint32 // 0xRRGGBB, used when the root has no wallpaper pixmap

	// CompletionTimeout bounds the post-draw rendezvous. Zero waits forever.
	CompletionTimeout time.Duration

	Keys Bindings
}

func DefaultConfig() *Config {
	return &Config{
		Width:             DefaultWidth,
		Height:            DefaultHeight,
		WidthStep:         DefaultWidthStep,
		HeightStep:        DefaultHeightStep,
		Zoom:              DefaultZoom,
		ZoomCoefficient:   DefaultZoomCoefficient,
		ZoomStep:          DefaultZoomStep,
		Rate:              DefaultRate,
		Filter:            FilterNearest,
		Background:        DefaultBackground,
		CompletionTimeout: DefaultCompletionTimeout,
		Keys:              DefaultBindings(),
	}
}

// DefaultBindings returns the stock key layout: arrows resize, =/- zoom,
// Escape quits and Super+Ctrl form the chord.
func DefaultBindings() Bindings {
	return Bindings{
		Quit:         MustParseKey("KEY_ESC"),
		GrowWidth:    MustParseKey("KEY_RIGHT"),
		ShrinkWidth:  MustParseKey("KEY_LEFT"),
		GrowHeight:   MustParseKey("KEY_DOWN"),
		ShrinkHeight: MustParseKey("KEY_UP"),
		ZoomIn:       MustParseKey("KEY_EQUAL"),
		ZoomOut:      MustParseKey("KEY_MINUS"),
		Modifiers: []KeyCode{
			MustParseKey("KEY_LEFTMETA"),
			MustParseKey("KEY_LEFTCTRL"),
		},
	}
}

// Clone returns a deep copy so a reloaded config can be handed to the loop
// without sharing the modifier slice.
func (c *Config) Clone() *Config {
	out := *c
	out.Keys.Modifiers = append([]KeyCode(nil), c.Keys.Modifiers...)
	return &out
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if c.Width < 1 {
		return &ValidationError{Path: "width", Err: fmt.Errorf("width must be >= 1")}
	}
	if c.Height < 1 {
		return &ValidationError{Path: "height", Err: fmt.Errorf("height must be >= 1")}
	}
	if c.WidthStep < 0 {
		return &ValidationError{Path: "width_step", Err: fmt.Errorf("width_step must be >= 0")}
	}
	if c.HeightStep < 0 {
		return &ValidationError{Path: "height_step", Err: fmt.Errorf("height_step must be >= 0")}
	}
	if c.Zoom < MinScale || c.Zoom > MaxScale {
		return &ValidationError{Path: "zoom", Err: fmt.Errorf("zoom must be between %.1f and %.1f", MinScale, MaxScale)}
	}
	if c.ZoomCoefficient < 0 {
		return &ValidationError{Path: "zoom_coefficient", Err: fmt.Errorf("zoom_coefficient must be >= 0")}
	}
	if c.ZoomStep < 0 {
		return &ValidationError{Path: "zoom_step", Err: fmt.Errorf("zoom_step must be >= 0")}
	}
	if c.Rate < 1 {
		return &ValidationError{Path: "rate", Err: fmt.Errorf("rate must be >= 1")}
	}
	switch c.Filter {
	case FilterNearest, FilterBilinear:
	default:
		return &ValidationError{Path: "filter", Err: fmt.Errorf("filter must be one of: nearest, bilinear")}
	}
	if c.Background > 0xffffff {
		return &ValidationError{Path: "background", Err: fmt.Errorf("background must be a 24-bit colour")}
	}
	if c.CompletionTimeout < 0 {
		return &ValidationError{Path: "completion_timeout_ms", Err: fmt.Errorf("completion_timeout_ms must be >= 0")}
	}
	return c.Keys.validate()
}

func (b Bindings) validate() error {
	if len(b.Modifiers) == 0 {
		return &ValidationError{Path: "keys.modifiers", Err: fmt.Errorf("at least one modifier key is required")}
	}
	if len(b.Modifiers) > MaxModifierKeys {
		return &ValidationError{Path: "keys.modifiers", Err: fmt.Errorf("%w (max %d)", ErrTooManyModifiers, MaxModifierKeys)}
	}
	seen := make(map[KeyCode]struct{}, len(b.Modifiers))
	for _, m := range b.Modifiers {
		if _, dup := seen[m]; dup {
			return &ValidationError{Path: "keys.modifiers", Err: fmt.Errorf("modifier %s listed twice", m)}
		}
		seen[m] = struct{}{}
	}
	if b.IsModifier(b.Quit) {
		return &ValidationError{Path: "keys.quit", Err: fmt.Errorf("quit key %s is also a modifier", b.Quit)}
	}
	return nil
}
