package object

import (
	"bytes"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "objects"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestBlobRoundTrip(t *testing.T) {
	s := newTestStore(t)
	h, err := s.WriteBlob(&Blob{Data: []byte("hello\n")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	got, err := s.ReadBlob(h)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if !bytes.Equal(got.Data, []byte("hello\n")) {
		t.Fatalf("got %q", got.Data)
	}
}

func TestPutBlobIdempotent(t *testing.T) {
	s := newTestStore(t)
	h1, err := s.WriteBlob(&Blob{Data: []byte("same")})
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	h2, err := s.WriteBlob(&Blob{Data: []byte("same")})
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected identical hash, got %s vs %s", h1, h2)
	}
}

func TestTreeCanonicalizationOrderIndependent(t *testing.T) {
	s := newTestStore(t)
	bh, _ := s.WriteBlob(&Blob{Data: []byte("x")})

	h1, err := s.WriteTree(&Tree{Entries: []TreeEntry{
		{Name: "b.txt", Mode: ModeFile, Hash: bh},
		{Name: "a.txt", Mode: ModeFile, Hash: bh},
	}})
	if err != nil {
		t.Fatalf("WriteTree 1: %v", err)
	}
	h2, err := s.WriteTree(&Tree{Entries: []TreeEntry{
		{Name: "a.txt", Mode: ModeFile, Hash: bh},
		{Name: "b.txt", Mode: ModeFile, Hash: bh},
	}})
	if err != nil {
		t.Fatalf("WriteTree 2: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected same hash regardless of input order, got %s vs %s", h1, h2)
	}
}

func TestTreeRejectsDuplicateNames(t *testing.T) {
	s := newTestStore(t)
	bh, _ := s.WriteBlob(&Blob{Data: []byte("x")})
	_, err := s.WriteTree(&Tree{Entries: []TreeEntry{
		{Name: "a.txt", Mode: ModeFile, Hash: bh},
		{Name: "a.txt", Mode: ModeFile, Hash: bh},
	}})
	if err == nil {
		t.Fatalf("expected error for duplicate tree entry name")
	}
}

func TestReadMissingObject(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.Read(Hash("00000000000000000000000000000000000000000000000000000000000000")); err == nil {
		t.Fatalf("expected error reading missing object")
	}
}

func TestHas(t *testing.T) {
	s := newTestStore(t)
	h, _ := s.WriteBlob(&Blob{Data: []byte("x")})
	if !s.Has(h) {
		t.Fatalf("expected Has to report true after write")
	}
}

func TestIterateVisitsWrittenObjects(t *testing.T) {
	s := newTestStore(t)
	h1, _ := s.WriteBlob(&Blob{Data: []byte("one")})
	h2, _ := s.WriteBlob(&Blob{Data: []byte("two")})

	seen := make(map[Hash]bool)
	if err := s.Iterate(func(h Hash) error { seen[h] = true; return nil }); err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if !seen[h1] || !seen[h2] {
		t.Fatalf("expected both hashes visited, got %v", seen)
	}
}
