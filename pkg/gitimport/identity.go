package gitimport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/glyphvcs/glyph/pkg/object"
)

// parseGitIdentity parses a Git identity line's tail — the part after the
// "author"/"committer"/"tagger" keyword — in the form
// "Name <email> <unix-seconds> <tz-offset>". This system's own identity
// lines omit the angle brackets (see object.formatIdentity), so the native
// decoder can't be reused here.
func parseGitIdentity(line string) (object.Identity, error) {
	open := strings.Index(line, "<")
	close := strings.LastIndex(line, ">")
	if open < 0 || close < open {
		return object.Identity{}, fmt.Errorf("malformed identity line %q", line)
	}
	name := strings.TrimSpace(line[:open])
	email := line[open+1 : close]
	rest := strings.Fields(strings.TrimSpace(line[close+1:]))
	if len(rest) != 2 {
		return object.Identity{}, fmt.Errorf("malformed identity line %q: expected timestamp and tz offset", line)
	}
	ts, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return object.Identity{}, fmt.Errorf("malformed identity line %q: timestamp: %w", line, err)
	}
	return object.Identity{
		Name:      name,
		Email:     email,
		Timestamp: ts,
		TZOffset:  rest[1],
	}, nil
}
