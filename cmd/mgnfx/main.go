package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/1broseidon/mgnfx/internal/config"
	"github.com/1broseidon/mgnfx/internal/input"
	"github.com/1broseidon/mgnfx/internal/instance"
	"github.com/1broseidon/mgnfx/internal/magnify"
	"github.com/1broseidon/mgnfx/internal/runtimepath"
	"github.com/1broseidon/mgnfx/internal/x11"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	logger := newLogger(os.Stderr, opts.verbose)
	if err := magnifier(opts, logger); err != nil {
		logger.Error("mgnfx failed", "error", err)
		return 1
	}
	return 0
}

// newLogger writes human-readable logs to a terminal and JSON otherwise.
func newLogger(w *os.File, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(w.Fd())) {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}

// loadConfig resolves defaults, the config file and flags, in that order.
func loadConfig(opts *options) (*config.Config, string, error) {
	path := opts.configPath
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, "", err
	}
	cfg, err := withFlags(res.Config, res.Sources, opts)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// withFlags applies the command-line overrides to base. Validation errors
// name the flag or file position that set the offending field.
func withFlags(base *config.Config, sources map[string]config.Source, opts *options) (*config.Config, error) {
	cfg := base.Clone()
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, config.Attribute(err, sources, opts.flagFor)
	}
	return cfg, nil
}

func magnifier(opts *options, logger *slog.Logger) (err error) {
	cfg, cfgPath, err := loadConfig(opts)
	if err != nil {
		return err
	}

	display := os.Getenv("DISPLAY")
	if display == "" {
		return errors.New("reading the DISPLAY environment variable failed")
	}
	seat := os.Getenv("XDG_SEAT")
	if seat == "" {
		return errors.New("reading the XDG_SEAT environment variable failed")
	}

	lock, err := acquireLock(display, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = releaseLock(lock, err)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := input.Open(seat, logger)
	if err != nil {
		return err
	}
	logger.Info("input devices opened", "seat", seat, "count", len(src.Devices()))
	go src.Run(ctx)

	conn, err := x11.NewConnection(display, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	disp, err := x11.NewDisplay(conn, cfg, logger)
	if err != nil {
		return err
	}
	defer disp.Close()

	events := x11.NewEventSource(conn, logger)
	go events.Run(ctx)

	updates := watchConfig(ctx, cfgPath, opts, logger)

	width, height := disp.ScreenSize()
	loop := magnify.NewLoop(magnify.Options{
		Display:           disp,
		DisplayEvents:     events.Events(),
		InputEvents:       src.Events(),
		ConfigUpdates:     updates,
		Scheduler:         magnify.NewScheduler(cfg, width, height, disp.Grabber(), logger),
		Pacer:             magnify.NewPacer(cfg.Rate),
		CompletionTimeout: cfg.CompletionTimeout,
		Logger:            logger,
	})

	logger.Info("magnifier running", "width", cfg.Width, "height", cfg.Height, "zoom", cfg.Zoom, "rate", cfg.Rate)
	err = loop.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("magnifier stopped", "frames", loop.Frames())
	return nil
}

// acquireLock returns a nil lock when there is no runtime directory.
func acquireLock(display string, logger *slog.Logger) (*instance.Lock, error) {
	path, err := runtimepath.PidfilePath(display)
	if errors.Is(err, runtimepath.ErrNoRuntimeDir) {
		logger.Debug("XDG_RUNTIME_DIR unset, skipping instance lock")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lock, err := instance.Acquire(path)
	if err != nil {
		return nil, fmt.Errorf("instance lock %s: %w", path, err)
	}
	return lock, nil
}

// releaseLock removes the pidfile and joins any failure into err.
func releaseLock(lock *instance.Lock, err error) error {
	if lock == nil {
		return err
	}
	if rerr := lock.Release(); rerr != nil {
		return errors.Join(err, fmt.Errorf("instance lock %s: %w", lock.Path(), rerr))
	}
	return err
}

// watchConfig hot-reloads the config file and re-applies the command-line
// flags on top of every reload. It returns nil when watching is not
// possible.
func watchConfig(ctx context.Context, path string, opts *options, logger *slog.Logger) <-chan *config.Config {
	w, err := config.NewWatcher(path, config.DefaultWatchDebounce, logger)
	if err != nil {
		logger.Warn("config hot reload disabled", "path", path, "error", err)
		return nil
	}
	go w.Run(ctx)

	out := make(chan *config.Config)
	go func() {
		defer close(out)
		for base := range w.Updates() {
			cfg, err := withFlags(base, nil, opts)
			if err != nil {
				logger.Warn("ignoring reloaded config", "path", path, "error", err)
				continue
			}
			select {
			case out <- cfg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
