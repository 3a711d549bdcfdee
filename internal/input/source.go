// Package input reads keyboard and pointer events for one seat from the
// kernel evdev nodes.
package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"

	"github.com/1broseidon/mgnfx/internal/magnify"
)

// DefaultSeat is the seat of devices that udev did not assign to one.
const DefaultSeat = "seat0"

// ErrNoDevices is returned when no input device on the seat can be opened.
var ErrNoDevices = errors.New("no readable input devices on seat")

const defaultUdevDir = "/run/udev/data"

// eventReader is the part of *evdev.InputDevice the readers use.
type eventReader interface {
	ReadOne() (*evdev.InputEvent, error)
	Close() error
}

// Device is an opened evdev node.
type Device struct {
	Path string
	Name string
	dev  eventReader
}

// Source fans in events from every device on a seat.
type Source struct {
	devices []*Device
	events  chan magnify.Event
	logger  *slog.Logger
}

type discoverer struct {
	list    func() ([]evdev.InputPath, error)
	openDev func(path string) (eventReader, error)
	udevDir string
	rdev    func(path string) (uint64, error)
}

func defaultDiscoverer() discoverer {
	return discoverer{
		list:    evdev.ListDevicePaths,
		openDev: openDevice,
		udevDir: defaultUdevDir,
		rdev:    statRdev,
	}
}

func openDevice(path string) (eventReader, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

func statRdev(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Rdev), nil
}

// Open opens every input device assigned to seat.
func Open(seat string, logger *slog.Logger) (*Source, error) {
	return defaultDiscoverer().open(seat, logger)
}

func (d discoverer) open(seat string, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	paths, err := d.discover(seat, logger)
	if err != nil {
		return nil, err
	}

	src := &Source{
		events: make(chan magnify.Event, 256),
		logger: logger,
	}
	for _, p := range paths {
		r, err := d.openDev(p.Path)
		if err != nil {
			logger.Debug("skipping input device", "path", p.Path, "error", err)
			continue
		}
		dev := &Device{Path: p.Path, Name: p.Name, dev: r}
		logger.Debug("opened input device", "path", p.Path, "name", dev.Name)
		src.devices = append(src.devices, dev)
	}
	if len(src.devices) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoDevices, seat)
	}
	return src, nil
}

// discover lists device nodes whose udev seat matches. Nodes udev marks as
// non-input are skipped; nodes with no udev record are assumed to be input
// devices on the default seat.
func (d discoverer) discover(seat string, logger *slog.Logger) ([]evdev.InputPath, error) {
	paths, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].Path < paths[j].Path })

	var out []evdev.InputPath
	for _, p := range paths {
		props, err := d.udevProperties(p.Path)
		if err != nil {
			logger.Debug("reading udev data failed", "path", p.Path, "error", err)
		}
		if props != nil && props["ID_INPUT"] != "1" {
			continue
		}
		if deviceSeat(props) != seat {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (d discoverer) udevProperties(path string) (map[string]string, error) {
	rdev, err := d.rdev(path)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("c%d:%d", unix.Major(rdev), unix.Minor(rdev))
	f, err := os.Open(filepath.Join(d.udevDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return parseUdevData(f)
}

// parseUdevData reads the E: property lines of a udev database record.
func parseUdevData(r io.Reader) (map[string]string, error) {
	props := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		kv, ok := strings.CutPrefix(line, "E:")
		if !ok {
			continue
		}
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		props[key] = value
	}
	return props, sc.Err()
}

func deviceSeat(props map[string]string) string {
	if seat := props["ID_SEAT"]; seat != "" {
		return seat
	}
	return DefaultSeat
}

// Devices lists the opened devices.
func (s *Source) Devices() []*Device {
	return s.devices
}

// Events delivers translated events from every device. It is closed once
// every device has stopped or Run returns.
func (s *Source) Events() <-chan magnify.Event {
	return s.events
}

// Run reads every device until ctx is cancelled or the last device fails.
// A device that fails (for example because it was unplugged) is dropped
// without affecting the rest.
func (s *Source) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, dev := range s.devices {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.read(ctx, dev)
		}()
	}
	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
	case <-stopped:
		s.logger.Warn("every input device stopped")
	}
	for _, dev := range s.devices {
		dev.dev.Close()
	}
	<-stopped
	close(s.events)
}

func (s *Source) read(ctx context.Context, dev *Device) {
	var tr translator
	emit := func(ev magnify.Event) {
		select {
		case s.events <- ev:
		case <-ctx.Done():
		}
	}

	for {
		ev, err := dev.dev.ReadOne()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("input device stopped", "path", dev.Path, "name", dev.Name, "error", err)
			}
			return
		}
		tr.feed(*ev, emit)
	}
}
