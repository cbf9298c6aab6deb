package worktree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glyphvcs/glyph/pkg/object"
)

func TestRestoreFromIndex(t *testing.T) {
	root, idx, objs := newTestWorktree(t)
	idx.Put("a.txt", []byte("staged"), object.ModeFile)
	writeWorkingFile(t, root, "a.txt", "dirty")

	if err := Restore(root, idx, objs, "", []string{"a.txt"}, RestoreFromIndex); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "a.txt"))
	if err != nil || string(data) != "staged" {
		t.Fatalf("expected a.txt restored to staged content, got %q err %v", data, err)
	}
}

func TestRestoreFromHEAD(t *testing.T) {
	root, idx, objs := newTestWorktree(t)
	idx.Put("a.txt", []byte("v1"), object.ModeFile)
	headTree := commitTreeFromIndex(t, idx)

	idx.Put("a.txt", []byte("v2"), object.ModeFile)
	writeWorkingFile(t, root, "a.txt", "v2")

	if err := Restore(root, idx, objs, headTree, []string{"a.txt"}, RestoreFromHEAD); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "a.txt"))
	if err != nil || string(data) != "v1" {
		t.Fatalf("expected a.txt restored to HEAD content v1, got %q err %v", data, err)
	}
	e, ok := idx.Get("a.txt")
	if !ok || string(e.BlobHash) == "" {
		t.Fatalf("expected a.txt restaged")
	}
}

func TestRestoreDoesNotTouchUntrackedSiblings(t *testing.T) {
	root, idx, objs := newTestWorktree(t)
	idx.Put("a.txt", []byte("v1"), object.ModeFile)
	writeWorkingFile(t, root, "sibling.txt", "untouched")

	if err := Restore(root, idx, objs, "", []string{"a.txt"}, RestoreFromIndex); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "sibling.txt"))
	if err != nil || string(data) != "untouched" {
		t.Fatalf("expected sibling.txt untouched, got %q err %v", data, err)
	}
}
