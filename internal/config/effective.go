package config

import (
	"fmt"
	"strings"
	"time"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Source.Kind == SourceFlag && e.Source.Flag != "" {
		return fmt.Sprintf("flag -%s: %s: %v", e.Source.Flag, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BuildEffectiveConfig overlays raw on top of the defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Width != nil {
		cfg.Width = *raw.Width
	}
	if raw.Height != nil {
		cfg.Height = *raw.Height
	}
	if raw.WidthStep != nil {
		cfg.WidthStep = *raw.WidthStep
	}
	if raw.HeightStep != nil {
		cfg.HeightStep = *raw.HeightStep
	}
	if raw.Zoom != nil {
		cfg.Zoom = *raw.Zoom
	}
	if raw.ZoomCoefficient != nil {
		cfg.ZoomCoefficient = *raw.ZoomCoefficient
	}
	if raw.ZoomStep != nil {
		cfg.ZoomStep = *raw.ZoomStep
	}
	if raw.Rate != nil {
		cfg.Rate = *raw.Rate
	}
	if raw.Filter != nil {
		cfg.Filter = Filter(strings.ToLower(strings.TrimSpace(string(*raw.Filter))))
	}
	if raw.Background != nil {
		cfg.Background = uint32(*raw.Background)
	}
	if raw.CompletionTimeoutMS != nil {
		if *raw.CompletionTimeoutMS < 0 {
			return nil, &ValidationError{Path: "completion_timeout_ms", Err: fmt.Errorf("completion_timeout_ms must be >= 0")}
		}
		cfg.CompletionTimeout = time.Duration(*raw.CompletionTimeoutMS) * time.Millisecond
	}

	if raw.Keys != nil {
		if err := applyRawKeys(&cfg.Keys, raw.Keys); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func applyRawKeys(b *Bindings, raw *RawKeys) error {
	single := []struct {
		path string
		name *string
		dst  *KeyCode
	}{
		{"keys.quit", raw.Quit, &b.Quit},
		{"keys.grow_width", raw.GrowWidth, &b.GrowWidth},
		{"keys.shrink_width", raw.ShrinkWidth, &b.ShrinkWidth},
		{"keys.grow_height", raw.GrowHeight, &b.GrowHeight},
		{"keys.shrink_height", raw.ShrinkHeight, &b.ShrinkHeight},
		{"keys.zoom_in", raw.ZoomIn, &b.ZoomIn},
		{"keys.zoom_out", raw.ZoomOut, &b.ZoomOut},
	}
	for _, s := range single {
		if s.name == nil {
			continue
		}
		code, err := ParseKey(*s.name)
		if err != nil {
			return &ValidationError{Path: s.path, Err: err}
		}
		*s.dst = code
	}

	if raw.Modifiers != nil {
		if len(raw.Modifiers) > MaxModifierKeys {
			return &ValidationError{Path: "keys.modifiers", Err: fmt.Errorf("%w (max %d)", ErrTooManyModifiers, MaxModifierKeys)}
		}
		mods := make([]KeyCode, 0, len(raw.Modifiers))
		for i, name := range raw.Modifiers {
			code, err := ParseKey(name)
			if err != nil {
				return &ValidationError{Path: "keys.modifiers", Err: fmt.Errorf("entry %d: %w", i, err)}
			}
			mods = append(mods, code)
		}
		b.Modifiers = mods
	}
	return nil
}
