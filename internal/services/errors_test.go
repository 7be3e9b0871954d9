package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(ErrIO, "securecopy", "copy file", "result/out.txt", cause)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected wrapped error to match ErrIO: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to retain cause: %v", err)
	}
}

func TestWrapDefaultsToIO(t *testing.T) {
	err := Wrap(nil, "workspace", "prepare", "", nil)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected nil marker to default to ErrIO: %v", err)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(ErrPrecondition, "workspace", "prepare", "target directory exists", nil)
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition: %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Log("no cause attached, as requested")
	}
}

func TestIsSecurityIncident(t *testing.T) {
	violation := Wrap(ErrOwnership, "securecopy", "validate owner", "result/bad", nil)
	if !IsSecurityIncident(violation) {
		t.Fatal("ownership violations must classify as security incidents")
	}
	if IsSecurityIncident(Wrap(ErrProcess, "supervise", "wait", "exit 3", nil)) {
		t.Fatal("process failures are not security incidents")
	}
}
