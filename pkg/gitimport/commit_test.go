package gitimport

import "testing"

func TestParseForeignCommit(t *testing.T) {
	treeID := hashRaw("tree", "")
	parentID := hashRaw("commit", "parent")
	payload := "tree " + string(treeID) + "\n" +
		"parent " + string(parentID) + "\n" +
		"author Jane Doe <jane@example.com> 1700000000 -0700\n" +
		"committer Jane Doe <jane@example.com> 1700000000 -0700\n" +
		"gpgsig -----BEGIN PGP SIGNATURE-----\n" +
		" iQEzBAAB\n" +
		" -----END PGP SIGNATURE-----\n" +
		"\n" +
		"commit message body\n"

	c, err := parseForeignCommit([]byte(payload))
	if err != nil {
		t.Fatalf("parseForeignCommit: %v", err)
	}
	if c.Tree != treeID {
		t.Fatalf("Tree = %s, want %s", c.Tree, treeID)
	}
	if len(c.Parents) != 1 || c.Parents[0] != parentID {
		t.Fatalf("Parents = %v", c.Parents)
	}
	if c.Author.Name != "Jane Doe" || c.Author.Email != "jane@example.com" {
		t.Fatalf("Author = %+v", c.Author)
	}
	if c.Message != "commit message body\n" {
		t.Fatalf("Message = %q", c.Message)
	}
}

func TestParseForeignCommitMissingTree(t *testing.T) {
	payload := "author Jane Doe <jane@example.com> 1700000000 -0700\n" +
		"committer Jane Doe <jane@example.com> 1700000000 -0700\n\nmsg\n"
	if _, err := parseForeignCommit([]byte(payload)); err == nil {
		t.Fatal("expected missing tree header error")
	}
}

func TestParseForeignCommitMissingSeparator(t *testing.T) {
	if _, err := parseForeignCommit([]byte("tree abc\nno blank line")); err == nil {
		t.Fatal("expected missing header/message separator error")
	}
}
