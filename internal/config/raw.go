package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Colour accepts either an integer or a "#rrggbb" / "0xrrggbb" string:
//
//	background: "#202020"
//	background: 0x202020
type Colour uint32

func (c *Colour) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("colour must be a scalar")
	}
	v, err := ParseColour(value.Value)
	if err != nil {
		return err
	}
	*c = Colour(v)
	return nil
}

// ParseColour parses "#rrggbb", "0xrrggbb" or a plain decimal value.
func ParseColour(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	switch {
	case strings.HasPrefix(s, "#"):
		s, base = s[1:], 16
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid colour %q", s)
	}
	return uint32(v), nil
}

// RawKeys holds key names as written in the file; they are resolved to
// codes by BuildEffectiveConfig.
type RawKeys struct {
	Quit         *string  `yaml:"quit"`
	GrowWidth    *string  `yaml:"grow_width"`
	ShrinkWidth  *string  `yaml:"shrink_width"`
	GrowHeight   *string  `yaml:"grow_height"`
	ShrinkHeight *string  `yaml:"shrink_height"`
	ZoomIn       *string  `yaml:"zoom_in"`
	ZoomOut      *string  `yaml:"zoom_out"`
	Modifiers    []string `yaml:"modifiers"`
}

// RawConfig mirrors the YAML file. Pointer fields distinguish "unset" from
// a zero value so the file only overrides what it names.
type RawConfig struct {
	Width               *int     `yaml:"width"`
	Height              *int     `yaml:"height"`
	WidthStep           *int     `yaml:"width_step"`
	HeightStep          *int     `yaml:"height_step"`
	Zoom                *float64 `yaml:"zoom"`
	ZoomCoefficient     *float64 `yaml:"zoom_coefficient"`
	ZoomStep            *float64 `yaml:"zoom_step"`
	Rate                *int     `yaml:"rate"`
	Filter              *Filter  `yaml:"filter"`
	Background          *Colour  `yaml:"background"`
	CompletionTimeoutMS *int     `yaml:"completion_timeout_ms"`
	Keys                *RawKeys `yaml:"keys"`
}
