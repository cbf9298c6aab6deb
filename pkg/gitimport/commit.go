package gitimport

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/glyphvcs/glyph/pkg/object"
)

// foreignCommit is a foreign commit's parsed header plus message.
type foreignCommit struct {
	Tree      ForeignID
	Parents   []ForeignID
	Author    object.Identity
	Committer object.Identity
	Message   string
}

// parseForeignCommit decodes a foreign commit's wire payload: a header
// block (tree, zero or more parent, author, committer, and any number of
// headers this importer doesn't need, e.g. gpgsig/mergetag/encoding) then
// a blank line then the free-form message.
func parseForeignCommit(payload []byte) (*foreignCommit, error) {
	headerBytes, message, found := bytes.Cut(payload, []byte("\n\n"))
	if !found {
		return nil, fmt.Errorf("missing header/message separator")
	}

	c := &foreignCommit{}
	scanner := bufio.NewScanner(bytes.NewReader(headerBytes))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		key, rest, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		switch key {
		case "tree":
			c.Tree = ForeignID(rest)
		case "parent":
			c.Parents = append(c.Parents, ForeignID(rest))
		case "author":
			id, err := parseGitIdentity(rest)
			if err != nil {
				return nil, fmt.Errorf("author: %w", err)
			}
			c.Author = id
		case "committer":
			id, err := parseGitIdentity(rest)
			if err != nil {
				return nil, fmt.Errorf("committer: %w", err)
			}
			c.Committer = id
		}
		// Any other header (gpgsig, mergetag, encoding, and gpgsig's
		// space-indented continuation lines) carries no information this
		// importer translates and is skipped.
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan header: %w", err)
	}
	if c.Tree == "" {
		return nil, fmt.Errorf("missing tree header")
	}
	c.Message = string(message)
	return c, nil
}
