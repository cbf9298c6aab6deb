package gitimport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glyphvcs/glyph/pkg/object"
)

func TestLooseDirGet(t *testing.T) {
	dir := t.TempDir()
	id := hashRaw("blob", "payload bytes")
	sub := filepath.Join(dir, string(id)[:2])
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, string(id)[2:]), looseObjectBytes("blob", "payload bytes"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ld := NewLooseDir(dir)
	obj, err := ld.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if obj.Type != object.TypeBlob || string(obj.Payload) != "payload bytes" {
		t.Fatalf("Get = (%s, %q)", obj.Type, obj.Payload)
	}
}

func TestLooseDirGetNotFound(t *testing.T) {
	ld := NewLooseDir(t.TempDir())
	if _, err := ld.Get(ForeignID("0000000000000000000000000000000000000000")); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestLooseDirGetCorrupt(t *testing.T) {
	dir := t.TempDir()
	id := hashRaw("blob", "x")
	sub := filepath.Join(dir, string(id)[:2])
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, string(id)[2:]), []byte("not zlib data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ld := NewLooseDir(dir)
	if _, err := ld.Get(id); err == nil {
		t.Fatal("expected corrupt zlib error")
	}
}
