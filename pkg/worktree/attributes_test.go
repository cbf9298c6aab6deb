package worktree

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAttributesMergeAtKeyLevel(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, AttributesFileName), []byte("*.bin line_ending=binary merge=ours\n"), 0o644); err != nil {
		t.Fatalf("write attributes: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "assets"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "assets", AttributesFileName), []byte("*.bin merge=theirs\n"), 0o644); err != nil {
		t.Fatalf("write nested attributes: %v", err)
	}
	m, err := LoadAttributesMatcher(root)
	if err != nil {
		t.Fatalf("LoadAttributesMatcher: %v", err)
	}
	attrs := m.Attributes("assets/sprite.bin", false)
	if attrs["merge"] != "theirs" {
		t.Fatalf("expected deeper layer's merge=theirs to win, got %q", attrs["merge"])
	}
	if attrs["line_ending"] != "binary" {
		t.Fatalf("expected line_ending=binary to survive from the shallower layer, got %q", attrs["line_ending"])
	}
	if !m.IsBinary("assets/sprite.bin", false) {
		t.Fatalf("expected IsBinary true")
	}
	if m.MergeStrategy("assets/sprite.bin", false) != "theirs" {
		t.Fatalf("expected MergeStrategy theirs")
	}
}

func TestAttributesUnset(t *testing.T) {
	am := &AttributesMatcher{}
	am.layers = append(am.layers, attrLayer{dir: "", patterns: []*pattern{parseAttrLine("*.txt merge=ours")}})
	am.layers = append(am.layers, attrLayer{dir: "sub", patterns: []*pattern{parseAttrLine("*.txt -merge")}})
	attrs := am.Attributes("sub/notes.txt", false)
	if _, ok := attrs["merge"]; ok {
		t.Fatalf("expected merge attribute unset, got %v", attrs)
	}
}

func TestExportIgnoreAttribute(t *testing.T) {
	am := &AttributesMatcher{}
	am.layers = append(am.layers, attrLayer{dir: "", patterns: []*pattern{parseAttrLine("vendor/ export-ignore")}})
	if !am.ExportIgnore("vendor", true) {
		t.Fatalf("expected vendor marked export-ignore")
	}
}
