package gitimport

import (
	"bytes"
	"testing"
)

func TestParseForeignTree(t *testing.T) {
	blobID := hashRaw("blob", "hi")
	subtreeID := hashRaw("tree", "")

	var payload bytes.Buffer
	payload.Write(treeEntryBytes("100644", "a.txt", blobID))
	payload.Write(treeEntryBytes("40000", "sub", subtreeID))

	entries, err := parseForeignTree(payload.Bytes())
	if err != nil {
		t.Fatalf("parseForeignTree: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Name != "a.txt" || entries[0].Mode != "100644" || entries[0].ID != blobID {
		t.Fatalf("entries[0] = %+v", entries[0])
	}
	if entries[1].Name != "sub" || entries[1].Mode != "40000" || entries[1].ID != subtreeID {
		t.Fatalf("entries[1] = %+v", entries[1])
	}
}

func TestParseForeignTreeTruncated(t *testing.T) {
	if _, err := parseForeignTree([]byte("100644 a.txt\x00short")); err == nil {
		t.Fatal("expected truncated id field error")
	}
}
