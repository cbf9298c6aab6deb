package index

import (
	"path/filepath"
	"testing"

	"github.com/glyphvcs/glyph/pkg/catalog"
	"github.com/glyphvcs/glyph/pkg/object"
)

func newTestIndex(t *testing.T) (*Index, *object.Store) {
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
	idx, err := Open(cat, objs)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return idx, objs
}

func TestPutAndGet(t *testing.T) {
	idx, _ := newTestIndex(t)
	e, err := idx.Put("a.txt", []byte("hello"), object.ModeFile)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := idx.Get("a.txt")
	if !ok || got.BlobHash != e.BlobHash {
		t.Fatalf("Get mismatch: %+v", got)
	}
}

func TestPutRejectsInvalidPaths(t *testing.T) {
	idx, _ := newTestIndex(t)
	cases := []string{"../escape", "/abs/path", "a//b", "a/./b", "a/../b", "a\x00b"}
	for _, p := range cases {
		if _, err := idx.Put(p, []byte("x"), object.ModeFile); err == nil {
			t.Fatalf("expected ErrInvalidPath for %q", p)
		}
	}
}

func TestFlushAndReopen(t *testing.T) {
	idx, objs := newTestIndex(t)
	if _, err := idx.Put("a.txt", []byte("hello"), object.ModeFile); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := idx.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reopened, err := Open(idx.cat, objs)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	e, ok := reopened.Get("a.txt")
	if !ok || e.Size != 5 {
		t.Fatalf("expected reopened entry, got %+v ok=%v", e, ok)
	}
}

func TestRemoveAndClear(t *testing.T) {
	idx, _ := newTestIndex(t)
	idx.Put("a.txt", []byte("a"), object.ModeFile)
	idx.Put("b.txt", []byte("b"), object.ModeFile)
	idx.Remove("a.txt")
	if _, ok := idx.Get("a.txt"); ok {
		t.Fatalf("expected a.txt removed")
	}
	if len(idx.Entries()) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(idx.Entries()))
	}
	idx.Clear()
	if len(idx.Entries()) != 0 {
		t.Fatalf("expected empty index after Clear")
	}
}

func TestFindPrefix(t *testing.T) {
	idx, _ := newTestIndex(t)
	idx.Put("pkg/a.go", []byte("a"), object.ModeFile)
	idx.Put("pkg/b.go", []byte("b"), object.ModeFile)
	idx.Put("cmd/main.go", []byte("m"), object.ModeFile)

	found := idx.Find("pkg/")
	if len(found) != 2 {
		t.Fatalf("expected 2 matches under pkg/, got %d", len(found))
	}
}

func TestBuildAndFlattenTree(t *testing.T) {
	idx, objs := newTestIndex(t)
	idx.Put("pkg/a.go", []byte("a"), object.ModeFile)
	idx.Put("pkg/sub/b.go", []byte("b"), object.ModeFile)
	idx.Put("main.go", []byte("m"), object.ModeFile)

	root, err := idx.BuildTree()
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}

	flat, err := FlattenTree(objs, root)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(flat) != 3 {
		t.Fatalf("expected 3 flattened files, got %d: %+v", len(flat), flat)
	}
	paths := map[string]bool{}
	for _, f := range flat {
		paths[f.Path] = true
	}
	for _, want := range []string{"pkg/a.go", "pkg/sub/b.go", "main.go"} {
		if !paths[want] {
			t.Fatalf("expected flattened path %q, got %v", want, paths)
		}
	}
}

func TestPutEntryRejectsDanglingHash(t *testing.T) {
	idx, _ := newTestIndex(t)
	err := idx.PutEntry(&Entry{Path: "a.txt", BlobHash: "missing", Mode: object.ModeFile})
	if err == nil {
		t.Fatalf("expected error for dangling blob hash")
	}
}

func TestMove(t *testing.T) {
	idx, _ := newTestIndex(t)
	e, _ := idx.Put("old.txt", []byte("a"), object.ModeFile)
	if err := idx.Move("old.txt", "new.txt"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, ok := idx.Get("old.txt"); ok {
		t.Fatalf("expected old.txt removed after move")
	}
	got, ok := idx.Get("new.txt")
	if !ok || got.BlobHash != e.BlobHash || got.RenamedFrom != "old.txt" {
		t.Fatalf("Move mismatch: %+v ok=%v", got, ok)
	}
	if err := idx.Move("missing.txt", "x.txt"); err == nil {
		t.Fatalf("expected error moving an unstaged path")
	}
}

func TestHasConflicts(t *testing.T) {
	idx, _ := newTestIndex(t)
	idx.Put("a.txt", []byte("a"), object.ModeFile)
	if idx.HasConflicts() {
		t.Fatalf("expected no conflicts initially")
	}
	e, _ := idx.Get("a.txt")
	e.Conflict = &ConflictInfo{OursBlobHash: e.BlobHash}
	if !idx.HasConflicts() {
		t.Fatalf("expected conflict to be detected")
	}
}
