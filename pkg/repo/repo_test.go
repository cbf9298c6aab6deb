package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glyphvcs/glyph/pkg/object"
	"github.com/glyphvcs/glyph/pkg/vcsmerge"
)

func testIdentity() object.Identity {
	return object.Identity{Name: "Ada", Email: "ada@example.com", Timestamp: 1700000000, TZOffset: "+0000"}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestInitCreatesAttachedHeadWithNoCommits(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer r.Close()

	if _, err := os.Stat(filepath.Join(dir, ControlDirName)); err != nil {
		t.Fatalf("control dir missing: %v", err)
	}
	branch, attached, err := r.currentBranch()
	if err != nil {
		t.Fatalf("currentBranch: %v", err)
	}
	if !attached || branch != defaultBranch {
		t.Fatalf("expected attached to %q, got %q attached=%v", defaultBranch, branch, attached)
	}
}

func TestOpenWalksUpFromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	sub := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	r, err := Open(sub)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if r.RootDir != dir {
		t.Fatalf("RootDir = %q, want %q", r.RootDir, dir)
	}
}

func TestOpenOutsideRepositoryFails(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("expected error opening non-repository")
	}
}

func TestAddCommitLog(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer r.Close()

	writeFile(t, dir, "a.txt", "hello")
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	h, err := r.Commit("first", testIdentity())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	log, err := r.Log(h, 0)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(log) != 1 || log[0].Message != "first" {
		t.Fatalf("unexpected log: %+v", log)
	}

	writeFile(t, dir, "b.txt", "world")
	if err := r.Add([]string{"b.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	h2, err := r.Commit("second", testIdentity())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	log, err = r.Log(h2, 0)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(log))
	}
	if len(log[0].Parents) != 1 || log[0].Parents[0] != h {
		t.Fatalf("second commit parent = %v, want [%v]", log[0].Parents, h)
	}
}

func TestCheckoutSwitchesBranchAndRestoresFiles(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer r.Close()

	writeFile(t, dir, "a.txt", "v1")
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	base, err := r.Commit("base", testIdentity())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := r.CreateBranch("feature", base); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.Checkout("feature", false); err != nil {
		t.Fatalf("Checkout feature: %v", err)
	}

	writeFile(t, dir, "a.txt", "v2")
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := r.Commit("feature change", testIdentity()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := r.Checkout(defaultBranch, false); err != nil {
		t.Fatalf("Checkout main: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("read a.txt: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("a.txt = %q, want v1 after checking out main", got)
	}
}

func TestStatusReportsUntrackedAndModified(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer r.Close()

	writeFile(t, dir, "a.txt", "v1")
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := r.Commit("base", testIdentity()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	writeFile(t, dir, "a.txt", "v2")
	writeFile(t, dir, "b.txt", "new")
	st, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(st.Modified) != 1 || st.Modified[0] != "a.txt" {
		t.Fatalf("Modified = %v, want [a.txt]", st.Modified)
	}
	if len(st.Untracked) != 1 || st.Untracked[0] != "b.txt" {
		t.Fatalf("Untracked = %v, want [b.txt]", st.Untracked)
	}
}

func TestTagAndResolveCommittish(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer r.Close()

	writeFile(t, dir, "a.txt", "v1")
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	h, err := r.Commit("base", testIdentity())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := r.CreateTag("v1", h, false); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	resolved, err := r.ResolveCommittish("v1")
	if err != nil {
		t.Fatalf("ResolveCommittish(tag): %v", err)
	}
	if resolved != h {
		t.Fatalf("resolved = %v, want %v", resolved, h)
	}

	byPrefix, err := r.ResolveCommittish(string(h)[:8])
	if err != nil {
		t.Fatalf("ResolveCommittish(prefix): %v", err)
	}
	if byPrefix != h {
		t.Fatalf("resolved by prefix = %v, want %v", byPrefix, h)
	}
}

func TestResetHardDiscardsWorktreeChanges(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer r.Close()

	writeFile(t, dir, "a.txt", "v1")
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	h, err := r.Commit("base", testIdentity())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	writeFile(t, dir, "a.txt", "v2")
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := r.Commit("changed", testIdentity()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := r.Reset(h, vcsmerge.ResetHard); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("read a.txt: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("a.txt = %q, want v1 after hard reset", got)
	}
}

func TestRmRemovesFromIndexAndWorktree(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer r.Close()

	writeFile(t, dir, "a.txt", "v1")
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Rm([]string{"a.txt"}, false); err != nil {
		t.Fatalf("Rm: %v", err)
	}
	if _, ok := r.Index.Get("a.txt"); ok {
		t.Fatal("a.txt still in index after Rm")
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); !os.IsNotExist(err) {
		t.Fatalf("a.txt still on disk after Rm: %v", err)
	}
}

func TestGCKeepsReachableObjects(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer r.Close()

	writeFile(t, dir, "a.txt", "v1")
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	h, err := r.Commit("base", testIdentity())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	kept, _, err := r.GC()
	if err != nil {
		t.Fatalf("GC: %v", err)
	}
	if kept == 0 {
		t.Fatal("expected at least one kept object")
	}
	commit, err := r.Graph.ReadCommit(h)
	if err != nil {
		t.Fatalf("commit should survive GC: %v", err)
	}
	if !r.Objects.Has(commit.TreeHash) {
		t.Fatal("tree should survive GC as reachable from HEAD")
	}
}

func TestWriterLockExcludesConcurrentWriter(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer r.Close()

	l, err := Lock(r.lockPath(), LockExclusive, confirmStaleLock)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer l.Unlock()

	_, err = Lock(r.lockPath(), LockExclusive, confirmStaleLock)
	if err == nil {
		t.Fatal("expected second exclusive lock to fail while first is held")
	}
}
