package refs

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/glyphvcs/glyph/pkg/catalog"
	"github.com/glyphvcs/glyph/pkg/object"
)

func newTestManager(t *testing.T) (*Manager, *object.Store) {
	t.Helper()
	dir := t.TempDir()
	cat, err := catalog.Open(filepath.Join(dir, "catalog"))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	objs, err := object.NewStore(filepath.Join(dir, "objects"))
	if err != nil {
		t.Fatalf("object.NewStore: %v", err)
	}
	return New(cat, objs), objs
}

func writeTestCommitHash(t *testing.T, objs *object.Store) object.Hash {
	t.Helper()
	treeHash, err := objs.WriteTree(&object.Tree{})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	rec := &object.CommitRecord{
		TreeHash: treeHash,
		Author:   object.Identity{Name: "t", Email: "t@example.com", Timestamp: 1, TZOffset: "+0000"},
		Message:  "m",
	}
	return object.HashObject(object.TypeCommit, object.MarshalCommit(rec))
}

func TestCreateAndResolveBranch(t *testing.T) {
	m, objs := newTestManager(t)
	h := writeTestCommitHash(t, objs)
	if err := m.CreateBranch("main", h); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	got, err := m.ResolveBranch("main")
	if err != nil || got != h {
		t.Fatalf("ResolveBranch: got %s err %v, want %s", got, err, h)
	}
}

func TestCreateBranchExists(t *testing.T) {
	m, objs := newTestManager(t)
	h := writeTestCommitHash(t, objs)
	if err := m.CreateBranch("main", h); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := m.CreateBranch("main", h); !errors.Is(err, ErrBranchExists) {
		t.Fatalf("expected ErrBranchExists, got %v", err)
	}
}

func TestUpdateRefCASRaceLost(t *testing.T) {
	m, objs := newTestManager(t)
	h1 := writeTestCommitHash(t, objs)
	if err := m.CreateBranch("main", h1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := m.UpdateRefCAS("main", "stale-hash", h1, "test"); !errors.Is(err, ErrRefRaceLost) {
		t.Fatalf("expected ErrRefRaceLost, got %v", err)
	}
}

func TestHeadAttachedAndDetached(t *testing.T) {
	m, objs := newTestManager(t)
	h := writeTestCommitHash(t, objs)
	if err := m.CreateBranch("main", h); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := m.InitHead("main"); err != nil {
		t.Fatalf("InitHead: %v", err)
	}
	name, attached, err := m.CurrentBranch()
	if err != nil || !attached || name != "main" {
		t.Fatalf("CurrentBranch: %s %v %v", name, attached, err)
	}
	resolved, err := m.ResolveHead()
	if err != nil || resolved != h {
		t.Fatalf("ResolveHead: %s %v", resolved, err)
	}

	if err := m.SetHeadDetached(h); err != nil {
		t.Fatalf("SetHeadDetached: %v", err)
	}
	_, attached, err = m.CurrentBranch()
	if err != nil || attached {
		t.Fatalf("expected detached HEAD, attached=%v err=%v", attached, err)
	}
}

func TestLightweightTag(t *testing.T) {
	m, objs := newTestManager(t)
	h := writeTestCommitHash(t, objs)
	if err := m.CreateTag("v1", h, false); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	got, err := m.ResolveTag("v1")
	if err != nil || got != h {
		t.Fatalf("ResolveTag: %s %v", got, err)
	}
}

func TestAnnotatedTag(t *testing.T) {
	m, objs := newTestManager(t)
	h := writeTestCommitHash(t, objs)
	// WriteCommit isn't wired here (commitgraph owns it), so manually commit
	// the same canonical bytes into the object store's path isn't possible —
	// annotated tags validate against *any* object kind, so target a tree.
	treeHash, err := objs.WriteTree(&object.Tree{})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	_ = h
	tagHash, err := m.CreateAnnotatedTag("v1", treeHash, "Ada", "ada@example.com", "release notes", false)
	if err != nil {
		t.Fatalf("CreateAnnotatedTag: %v", err)
	}
	if tagHash == "" {
		t.Fatalf("expected non-empty tag hash")
	}
	got, err := m.ResolveTag("v1")
	if err != nil || got != treeHash {
		t.Fatalf("ResolveTag: %s %v, want %s", got, err, treeHash)
	}
}

func TestDeleteBranchAndTag(t *testing.T) {
	m, objs := newTestManager(t)
	h := writeTestCommitHash(t, objs)
	m.CreateBranch("feature", h)
	if err := m.DeleteBranch("feature"); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	if _, err := m.ResolveBranch("feature"); !errors.Is(err, ErrBranchNotFound) {
		t.Fatalf("expected ErrBranchNotFound, got %v", err)
	}

	m.CreateTag("t1", h, false)
	if err := m.DeleteTag("t1"); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	if _, err := m.ResolveTag("t1"); !errors.Is(err, ErrTagNotFound) {
		t.Fatalf("expected ErrTagNotFound, got %v", err)
	}
}

func TestReflogRecordsUpdates(t *testing.T) {
	m, objs := newTestManager(t)
	h1 := writeTestCommitHash(t, objs)
	if err := m.CreateBranch("main", h1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	entries, err := m.ReadReflog("refs/heads/main", 0)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) != 1 || entries[0].NewHash != h1 {
		t.Fatalf("expected 1 reflog entry for creation, got %+v", entries)
	}
}

func TestInvalidBranchName(t *testing.T) {
	m, objs := newTestManager(t)
	h := writeTestCommitHash(t, objs)
	if err := m.CreateBranch("-bad", h); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if err := m.CreateBranch("HEAD", h); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName for HEAD, got %v", err)
	}
}
