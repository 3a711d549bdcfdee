package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/1broseidon/mgnfx/internal/config"
)

// keyFlag resolves an evdev key name while flags are parsed.
type keyFlag struct {
	code config.KeyCode
}

func (k *keyFlag) String() string {
	return k.code.String()
}

func (k *keyFlag) Set(name string) error {
	code, err := config.ParseKey(name)
	if err != nil {
		return err
	}
	k.code = code
	return nil
}

// modifierFlags collects repeated -m values.
type modifierFlags []config.KeyCode

func (m *modifierFlags) String() string {
	names := make([]string, len(*m))
	for i, code := range *m {
		names[i] = code.String()
	}
	return strings.Join(names, ",")
}

func (m *modifierFlags) Set(name string) error {
	if len(*m) >= config.MaxModifierKeys {
		return config.ErrTooManyModifiers
	}
	code, err := config.ParseKey(name)
	if err != nil {
		return err
	}
	*m = append(*m, code)
	return nil
}

// options is the parsed command line. Only flags that were given on the
// command line override the config file.
type options struct {
	configPath string
	verbose    bool

	width, height         int
	widthStep, heightStep int
	zoom                  float64
	zoomCoefficient       float64
	zoomStep              float64
	rate                  int

	quit, growWidth, shrinkWidth keyFlag
	growHeight, shrinkHeight     keyFlag
	zoomIn, zoomOut              keyFlag
	modifiers                    modifierFlags

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	defaults := config.DefaultConfig()
	keys := defaults.Keys
	opts := &options{
		quit:         keyFlag{keys.Quit},
		growWidth:    keyFlag{keys.GrowWidth},
		shrinkWidth:  keyFlag{keys.ShrinkWidth},
		growHeight:   keyFlag{keys.GrowHeight},
		shrinkHeight: keyFlag{keys.ShrinkHeight},
		zoomIn:       keyFlag{keys.ZoomIn},
		zoomOut:      keyFlag{keys.ZoomOut},
		set:          map[string]bool{},
	}

	fs := flag.NewFlagSet("mgnfx", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	fs.StringVar(&opts.configPath, "c", "", "Config file path")
	fs.BoolVar(&opts.verbose, "v", false, "Debug logging")
	fs.IntVar(&opts.width, "w", defaults.Width, "Magnifier width in pixels")
	fs.IntVar(&opts.height, "h", defaults.Height, "Magnifier height in pixels")
	fs.IntVar(&opts.widthStep, "W", defaults.WidthStep, "Width resize increment in pixels")
	fs.IntVar(&opts.heightStep, "H", defaults.HeightStep, "Height resize increment in pixels")
	fs.Float64Var(&opts.zoom, "s", defaults.Zoom, "Zoom scale")
	fs.Float64Var(&opts.zoomCoefficient, "z", defaults.ZoomCoefficient, "Zoom scale coefficient")
	fs.Float64Var(&opts.zoomStep, "Z", defaults.ZoomStep, "Zoom scale increment")
	fs.IntVar(&opts.rate, "r", defaults.Rate, "Max redraws per second")
	fs.Var(&opts.quit, "q", "Key to exit the program")
	fs.Var(&opts.growWidth, "i", "Key to increase magnifier width")
	fs.Var(&opts.shrinkWidth, "I", "Key to decrease magnifier width")
	fs.Var(&opts.growHeight, "e", "Key to increase magnifier height")
	fs.Var(&opts.shrinkHeight, "E", "Key to decrease magnifier height")
	fs.Var(&opts.zoomIn, "n", "Key to zoom in")
	fs.Var(&opts.zoomOut, "o", "Key to zoom out")
	fs.Var(&opts.modifiers, "m", "Modifier key (repeatable)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		printUsage(stderr)
		return nil, fmt.Errorf("unexpected arguments")
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// flagPaths maps each overriding flag to the config field it sets.
var flagPaths = map[string]string{
	"w": "width",
	"h": "height",
	"W": "width_step",
	"H": "height_step",
	"s": "zoom",
	"z": "zoom_coefficient",
	"Z": "zoom_step",
	"r": "rate",
	"q": "keys.quit",
	"i": "keys.grow_width",
	"I": "keys.shrink_width",
	"e": "keys.grow_height",
	"E": "keys.shrink_height",
	"n": "keys.zoom_in",
	"o": "keys.zoom_out",
	"m": "keys.modifiers",
}

// flagFor returns the flag that overrode the config field at path, if any.
func (o *options) flagFor(path string) string {
	for name, p := range flagPaths {
		if p == path && o.set[name] {
			return name
		}
	}
	return ""
}

// apply overlays the flags that were given onto cfg.
func (o *options) apply(cfg *config.Config) {
	ints := []struct {
		name string
		dst  *int
		val  int
	}{
		{"w", &cfg.Width, o.width},
		{"h", &cfg.Height, o.height},
		{"W", &cfg.WidthStep, o.widthStep},
		{"H", &cfg.HeightStep, o.heightStep},
		{"r", &cfg.Rate, o.rate},
	}
	for _, f := range ints {
		if o.set[f.name] {
			*f.dst = f.val
		}
	}

	floats := []struct {
		name string
		dst  *float64
		val  float64
	}{
		{"s", &cfg.Zoom, o.zoom},
		{"z", &cfg.ZoomCoefficient, o.zoomCoefficient},
		{"Z", &cfg.ZoomStep, o.zoomStep},
	}
	for _, f := range floats {
		if o.set[f.name] {
			*f.dst = f.val
		}
	}

	keys := []struct {
		name string
		dst  *config.KeyCode
		val  keyFlag
	}{
		{"q", &cfg.Keys.Quit, o.quit},
		{"i", &cfg.Keys.GrowWidth, o.growWidth},
		{"I", &cfg.Keys.ShrinkWidth, o.shrinkWidth},
		{"e", &cfg.Keys.GrowHeight, o.growHeight},
		{"E", &cfg.Keys.ShrinkHeight, o.shrinkHeight},
		{"n", &cfg.Keys.ZoomIn, o.zoomIn},
		{"o", &cfg.Keys.ZoomOut, o.zoomOut},
	}
	for _, f := range keys {
		if o.set[f.name] {
			*f.dst = f.val.code
		}
	}

	if len(o.modifiers) > 0 {
		cfg.Keys.Modifiers = append([]config.KeyCode(nil), o.modifiers...)
	}
}

func printUsage(w io.Writer) {
	d := config.DefaultConfig()
	k := d.Keys
	fmt.Fprintln(w, "Usage: mgnfx [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --help        print this message and exit")
	fmt.Fprintln(w, "  -c PATH       config file (default ~/.config/mgnfx/config.yaml)")
	fmt.Fprintln(w, "  -v            debug logging")
	fmt.Fprintf(w, "  -w PIXELS     magnifier width in pixels (default %d)\n", d.Width)
	fmt.Fprintf(w, "  -h PIXELS     magnifier height in pixels (default %d)\n", d.Height)
	fmt.Fprintf(w, "  -W PIXELS     width resize increment in pixels (default %d)\n", d.WidthStep)
	fmt.Fprintf(w, "  -H PIXELS     height resize increment in pixels (default %d)\n", d.HeightStep)
	fmt.Fprintf(w, "  -s DECIMAL    zoom scale (default %g)\n", d.Zoom)
	fmt.Fprintf(w, "  -z DECIMAL    zoom scale coefficient (default %g)\n", d.ZoomCoefficient)
	fmt.Fprintf(w, "  -Z DECIMAL    zoom scale increment (default %g)\n", d.ZoomStep)
	fmt.Fprintf(w, "  -r NUMBER     max redraws per second (default %d)\n", d.Rate)
	fmt.Fprintf(w, "  -q KEY_NAME   key to exit the program (default %s)\n", k.Quit)
	fmt.Fprintf(w, "  -i KEY_NAME   key to increase magnifier width (default %s)\n", k.GrowWidth)
	fmt.Fprintf(w, "  -I KEY_NAME   key to decrease magnifier width (default %s)\n", k.ShrinkWidth)
	fmt.Fprintf(w, "  -e KEY_NAME   key to increase magnifier height (default %s)\n", k.GrowHeight)
	fmt.Fprintf(w, "  -E KEY_NAME   key to decrease magnifier height (default %s)\n", k.ShrinkHeight)
	fmt.Fprintf(w, "  -n KEY_NAME   key to zoom in (default %s)\n", k.ZoomIn)
	fmt.Fprintf(w, "  -o KEY_NAME   key to zoom out (default %s)\n", k.ZoomOut)
	fmt.Fprintf(w, "  -m KEY_NAME   modifier key, repeat for a chord of up to %d keys\n", config.MaxModifierKeys)
	mods := make([]string, len(k.Modifiers))
	for i, m := range k.Modifiers {
		mods[i] = m.String()
	}
	fmt.Fprintf(w, "The default modifier keys are %s\n", strings.Join(mods, " "))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Press the quit key at any time to exit. The region around the pointer is")
	fmt.Fprintln(w, "magnified at the current zoom scale.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "While every modifier key is held:")
	fmt.Fprintln(w, "  - drag with the left button to resize the magnified region")
	fmt.Fprintln(w, "  - use the resize keys to step the region size")
	fmt.Fprintln(w, "  - scroll to zoom, scaled by the zoom scale coefficient")
	fmt.Fprintln(w, "  - use the zoom keys to step the zoom scale")
}
