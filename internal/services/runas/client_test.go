package runas

import (
	"context"
	"os/exec"
	"testing"
)

func TestCommandWithoutIdentityRunsDirectly(t *testing.T) {
	runner := New()
	cmd := runner.Command(context.Background(), "", []string{"/srv/ws/src/flow/run"}, "/srv/ws/src/flow")
	if cmd.Args[0] != "/srv/ws/src/flow/run" {
		t.Fatalf("expected direct invocation, got %v", cmd.Args)
	}
	if cmd.Dir != "/srv/ws/src/flow" {
		t.Fatalf("working directory not set: %q", cmd.Dir)
	}
}

func TestCommandWithIdentityWrapsInSudo(t *testing.T) {
	runner := New(WithBinary("sudo"))
	cmd := runner.Command(context.Background(), "worker", []string{"/srv/run", "worker"}, "/srv")
	want := []string{"sudo", "-u", "worker", "--", "/srv/run", "worker"}
	if len(cmd.Args) != len(want) {
		t.Fatalf("unexpected argv: %v", cmd.Args)
	}
	for i := range want {
		if cmd.Args[i] != want[i] {
			t.Fatalf("unexpected argv: %v", cmd.Args)
		}
	}
}

func TestKillWithIdentityUsesSudo(t *testing.T) {
	var captured []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string{name}, args...)
		return exec.CommandContext(ctx, "true")
	}
	t.Cleanup(func() { commandContext = original })

	runner := New()
	if err := runner.Kill(context.Background(), "worker", 4242); err != nil {
		t.Fatal(err)
	}
	want := []string{"sudo", "-u", "worker", "--", "kill", "4242"}
	if len(captured) != len(want) {
		t.Fatalf("unexpected kill invocation: %v", captured)
	}
	for i := range want {
		if captured[i] != want[i] {
			t.Fatalf("unexpected kill invocation: %v", captured)
		}
	}
}

func TestKillWithoutIdentitySignalsDirectly(t *testing.T) {
	runner := New()
	// A PID that certainly does not exist: expect a process error, not a
	// sudo invocation.
	if err := runner.Kill(context.Background(), "", 1<<22-1); err == nil {
		t.Skip("pid unexpectedly exists")
	}
}
