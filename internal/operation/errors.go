package operation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOperationNotFound  = errors.New("operation not found")
	ErrInvalidArguments   = errors.New("invalid arguments")
	ErrPluginLoad         = errors.New("plugin load failed")
	ErrDuplicateOperation = errors.New("operation already registered")
)

// Wrap tags err with a marker sentinel and the operation it concerns, so that
// callers can classify it with errors.Is and operators can read which
// operation and locator were involved.
func Wrap(marker error, name, locator, message string, err error) error {
	detail := buildDetail(name, locator, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(name, locator, message string) string {
	parts := make([]string, 0, 3)
	if name = strings.TrimSpace(name); name != "" {
		parts = append(parts, fmt.Sprintf("operation %q", name))
	}
	if locator = strings.TrimSpace(locator); locator != "" {
		parts = append(parts, fmt.Sprintf("locator %q", locator))
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failure"
	}
	return strings.Join(parts, ": ")
}
