// Package instance keeps one magnifier per display by recording the running
// pid in a lock file under the runtime directory.
package instance

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning is returned when the lock file names a live process
// running the same executable.
var ErrAlreadyRunning = errors.New("another instance is already running")

// pidSize matches pid_t so files written by other builds stay readable.
const pidSize = 4

// Lock is a held pidfile. Release removes it.
type Lock struct {
	path string
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Acquire claims path for the current process.
func Acquire(path string) (*Lock, error) {
	return acquire(path, os.Getpid(), procExe)
}

func procExe(pid int) (string, error) {
	return filepath.EvalSymlinks(filepath.Join("/proc", strconv.Itoa(pid), "exe"))
}

func acquire(path string, pid int, exeOf func(pid int) (string, error)) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening pidfile failed: %w", err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return nil, fmt.Errorf("locking pidfile failed: %w", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	var buf [pidSize]byte
	n, err := io.ReadFull(f, buf[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("reading pidfile failed: %w", err)
	}
	if n == pidSize {
		oldPid := int(int32(binary.NativeEndian.Uint32(buf[:])))
		if oldPid != pid && sameExecutable(exeOf, pid, oldPid) {
			return nil, ErrAlreadyRunning
		}
	}

	if err := f.Truncate(0); err != nil {
		return nil, fmt.Errorf("truncating pidfile failed: %w", err)
	}
	binary.NativeEndian.PutUint32(buf[:], uint32(int32(pid)))
	if _, err := f.WriteAt(buf[:], 0); err != nil {
		return nil, fmt.Errorf("writing pidfile failed: %w", err)
	}

	return &Lock{path: path}, nil
}

// sameExecutable is false whenever either side cannot be resolved; a stale
// pid from a crashed run must not block startup.
func sameExecutable(exeOf func(int) (string, error), self, other int) bool {
	selfExe, err := exeOf(self)
	if err != nil {
		return false
	}
	otherExe, err := exeOf(other)
	if err != nil {
		return false
	}
	return selfExe == otherExe
}

// Release removes the pidfile.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing pidfile failed: %w", err)
	}
	return nil
}
