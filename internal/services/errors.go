package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed names or arguments caught before any
	// side effect (bad workflow name, bad ACL spec).
	ErrValidation = errors.New("validation error")
	// ErrPrecondition marks a missing or conflicting filesystem state the
	// operation refuses to touch (workspace already exists, executable
	// absent, pidfile present).
	ErrPrecondition = errors.New("precondition failed")
	// ErrOwnership marks a delivery entry whose owner does not match the
	// expected identity. Treated as a potential security incident, not an
	// ordinary fault.
	ErrOwnership = errors.New("ownership violation")
	// ErrProcess marks a workflow executable that could not be spawned or
	// exited non-zero.
	ErrProcess = errors.New("process error")
	// ErrIO marks filesystem or external tool failures.
	ErrIO = errors.New("io error")
)

// Wrap builds an error message that includes component context while
// tagging it with the provided marker for later classification. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsSecurityIncident reports whether err should be logged at the highest
// severity because it indicates tampering rather than a routine failure.
func IsSecurityIncident(err error) bool {
	return errors.Is(err, ErrOwnership)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
