package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStageInputsCopiesIntoData(t *testing.T) {
	mgr := newTestManager(nil)
	ws := preparedWorkspace(t, mgr)

	srcDir := t.TempDir()
	input := filepath.Join(srcDir, "sample.fastq")
	if err := os.WriteFile(input, []byte("ACGT"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := mgr.StageInputs(context.Background(), ws, []string{input}, ""); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(ws.Data, "sample.fastq"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "ACGT" {
		t.Fatalf("staged content mismatch: %q", got)
	}
}

func TestStageRefsGrantsReadACL(t *testing.T) {
	acl := &recordingACL{}
	mgr := newTestManager(acl)
	ws := preparedWorkspace(t, mgr)
	acl.grants = nil

	srcDir := t.TempDir()
	ref := filepath.Join(srcDir, "genome.fa")
	if err := os.WriteFile(ref, []byte(">chr1"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := mgr.StageRefs(context.Background(), ws, []string{ref}, "worker"); err != nil {
		t.Fatal(err)
	}

	if len(acl.grants) != 1 {
		t.Fatalf("expected one grant, got %d", len(acl.grants))
	}
	if acl.grants[0][0] != filepath.Join(ws.Ref, "genome.fa") || acl.grants[0][2] != "r" {
		t.Fatalf("unexpected grant: %v", acl.grants[0])
	}
}

func TestStageInputsMissingSourceFails(t *testing.T) {
	mgr := newTestManager(nil)
	ws := preparedWorkspace(t, mgr)

	if err := mgr.StageInputs(context.Background(), ws, []string{"/nonexistent/input"}, ""); err == nil {
		t.Fatal("expected error for missing input file")
	}
}
