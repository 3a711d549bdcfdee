package config

import (
	"errors"
	"fmt"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// KeyCode is a Linux evdev key code as reported in input_event.code.
type KeyCode uint16

// BtnLeft is the primary mouse button.
const BtnLeft = KeyCode(evdev.BTN_LEFT)

// ErrUnknownKey is returned when a key name has no evdev code.
var ErrUnknownKey = errors.New("not a valid key name")

// ParseKey resolves a key name from linux/input-event-codes.h, such as
// "KEY_LEFTMETA" or "BTN_LEFT", to its evdev code. Names are matched
// case-insensitively and the KEY_ prefix is optional.
func ParseKey(name string) (KeyCode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	if normalized == "" {
		return 0, fmt.Errorf("`%s` is %w", name, ErrUnknownKey)
	}
	if code, ok := evdev.KEYFromString[normalized]; ok {
		return KeyCode(code), nil
	}
	if !strings.HasPrefix(normalized, "KEY_") && !strings.HasPrefix(normalized, "BTN_") {
		if code, ok := evdev.KEYFromString["KEY_"+normalized]; ok {
			return KeyCode(code), nil
		}
	}
	return 0, fmt.Errorf("`%s` is %w", name, ErrUnknownKey)
}

// MustParseKey is ParseKey for compile-time constants.
func MustParseKey(name string) KeyCode {
	code, err := ParseKey(name)
	if err != nil {
		panic(err)
	}
	return code
}

// String returns the evdev name of the key, or its numeric code.
func (k KeyCode) String() string {
	if name, ok := evdev.KEYToString[evdev.EvCode(k)]; ok {
		return name
	}
	return fmt.Sprintf("KEY_%d", uint16(k))
}
