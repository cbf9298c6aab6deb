package gitimport

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/glyphvcs/glyph/pkg/object"
)

// foreignTag is an annotated tag object's parsed header plus message.
type foreignTag struct {
	Target     ForeignID
	TargetType object.ObjectType
	Name       string
	Tagger     object.Identity
	Message    string
}

func parseForeignTag(payload []byte) (*foreignTag, error) {
	headerBytes, message, found := bytes.Cut(payload, []byte("\n\n"))
	if !found {
		return nil, fmt.Errorf("missing header/message separator")
	}

	t := &foreignTag{}
	scanner := bufio.NewScanner(bytes.NewReader(headerBytes))
	for scanner.Scan() {
		line := scanner.Text()
		key, rest, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		switch key {
		case "object":
			t.Target = ForeignID(rest)
		case "type":
			t.TargetType = object.ObjectType(rest)
		case "tag":
			t.Name = rest
		case "tagger":
			id, err := parseGitIdentity(rest)
			if err != nil {
				return nil, fmt.Errorf("tagger: %w", err)
			}
			t.Tagger = id
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan header: %w", err)
	}
	if t.Target == "" {
		return nil, fmt.Errorf("missing object header")
	}
	t.Message = string(message)
	return t, nil
}
