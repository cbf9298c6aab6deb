package gitimport

import (
	"testing"

	"github.com/glyphvcs/glyph/pkg/object"
)

func TestParseForeignTag(t *testing.T) {
	targetID := hashRaw("commit", "c")
	payload := "object " + string(targetID) + "\n" +
		"type commit\n" +
		"tag v1.0.0\n" +
		"tagger Jane Doe <jane@example.com> 1700000000 -0700\n" +
		"\n" +
		"release notes\n"

	tag, err := parseForeignTag([]byte(payload))
	if err != nil {
		t.Fatalf("parseForeignTag: %v", err)
	}
	if tag.Target != targetID || tag.TargetType != object.TypeCommit || tag.Name != "v1.0.0" {
		t.Fatalf("parseForeignTag = %+v", tag)
	}
	if tag.Tagger.Name != "Jane Doe" {
		t.Fatalf("Tagger = %+v", tag.Tagger)
	}
	if tag.Message != "release notes\n" {
		t.Fatalf("Message = %q", tag.Message)
	}
}

func TestParseForeignTagMissingObject(t *testing.T) {
	payload := "type commit\ntag v1\n\nmsg\n"
	if _, err := parseForeignTag([]byte(payload)); err == nil {
		t.Fatal("expected missing object header error")
	}
}
