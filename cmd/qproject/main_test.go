package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestPrepareCommandCreatesWorkspace(t *testing.T) {
	isolateHome(t)
	root := filepath.Join(t.TempDir(), "job")

	output, err := executeCommand(t, "prepare", root)
	if err != nil {
		t.Fatalf("prepare failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Prepared workspace") {
		t.Fatalf("unexpected output: %s", output)
	}
	for _, name := range []string{"data", "src", "result", "run", "logs"} {
		if info, statErr := os.Stat(filepath.Join(root, name)); statErr != nil || !info.IsDir() {
			t.Fatalf("directory %s missing after prepare", name)
		}
	}
}

func TestPrepareCommandForceCreateRefusesExisting(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()

	if _, err := executeCommand(t, "prepare", root, "--force-create"); err == nil {
		t.Fatal("expected error for existing directory under --force-create")
	}
}

func TestStatusCommandReportsTree(t *testing.T) {
	isolateHome(t)
	root := filepath.Join(t.TempDir(), "job")
	if _, err := executeCommand(t, "prepare", root); err != nil {
		t.Fatal(err)
	}

	output, err := executeCommand(t, "status", root)
	if err != nil {
		t.Fatalf("status failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "data") || !strings.Contains(output, "yes") {
		t.Fatalf("unexpected status output: %s", output)
	}
}

func TestCommitCommandRequiresBarcode(t *testing.T) {
	isolateHome(t)
	if _, err := executeCommand(t, "commit", t.TempDir()); err == nil {
		t.Fatal("expected missing --barcode error")
	}
}

func TestRunCommandRequiresWorkflow(t *testing.T) {
	isolateHome(t)
	if _, err := executeCommand(t, "run", t.TempDir()); err == nil {
		t.Fatal("expected missing --workflow error")
	}
}

func TestConfigInitCommand(t *testing.T) {
	isolateHome(t)
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := executeCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v\n%s", err, output)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := executeCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}

func TestConfigValidateCommandWithDefaults(t *testing.T) {
	isolateHome(t)
	output, err := executeCommand(t, "config", "validate")
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Configuration valid") {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestParseWorkflowFlags(t *testing.T) {
	specs, err := parseWorkflowFlags([]string{"qcprot=github:org/qcprot@v1.2"}, `{"threads": 2}`)
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected one spec, got %d", len(specs))
	}
	spec := specs[0]
	if spec.Name != "qcprot" || spec.Remote != "github:org/qcprot" || spec.Revision != "v1.2" {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if string(spec.Params) != `{"threads": 2}` {
		t.Fatalf("params not carried: %s", spec.Params)
	}

	if _, err := parseWorkflowFlags([]string{"noremote"}, ""); err == nil {
		t.Fatal("expected error for flag without remote")
	}
	if _, err := parseWorkflowFlags([]string{"wf=remote"}, "{broken"); err == nil {
		t.Fatal("expected error for invalid params JSON")
	}
}

func TestSplitRevisionKeepsScpRemotes(t *testing.T) {
	remote, revision, pinned := splitRevision("git@example.org:org/repo")
	if pinned || revision != "" || remote != "git@example.org:org/repo" {
		t.Fatalf("scp remote mangled: %s %s %v", remote, revision, pinned)
	}

	remote, revision, pinned = splitRevision("https://example.org/repo.git@main")
	if !pinned || remote != "https://example.org/repo.git" || revision != "main" {
		t.Fatalf("revision not split: %s %s", remote, revision)
	}
}

func TestShortJobID(t *testing.T) {
	if got := shortJobID("123e4567-e89b-12d3-a456-426614174000"); got != "123e4567" {
		t.Fatalf("got %q", got)
	}
	if got := shortJobID("plain"); got != "plain" {
		t.Fatalf("got %q", got)
	}
}
