package gitimport

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/glyphvcs/glyph/pkg/object"
)

// LooseDir resolves foreign objects from a fanout/rest directory of
// zlib-compressed loose object files, the same on-disk shape a foreign
// repository's own object database uses.
type LooseDir struct {
	root string
}

// NewLooseDir returns a source rooted at a foreign repository's loose
// object directory (its "objects" directory, with pack/ ignored).
func NewLooseDir(root string) *LooseDir {
	return &LooseDir{root: root}
}

func (l *LooseDir) path(id ForeignID) (string, error) {
	s := string(id)
	if len(s) < 3 {
		return "", fmt.Errorf("gitimport: loose: malformed id %q", id)
	}
	return filepath.Join(l.root, s[:2], s[2:]), nil
}

func (l *LooseDir) Get(id ForeignID) (*ForeignObject, error) {
	p, err := l.path(id)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("gitimport: loose %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("gitimport: loose %s: read: %w", id, err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("gitimport: loose %s: %w: zlib: %v", id, ErrCorrupt, err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("gitimport: loose %s: %w: inflate: %v", id, ErrCorrupt, err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("gitimport: loose %s: %w: inflate close: %v", id, ErrCorrupt, err)
	}

	typ, content, err := splitLooseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("gitimport: loose %s: %w: %v", id, ErrCorrupt, err)
	}
	return &ForeignObject{Type: typ, Payload: content}, nil
}

// splitLooseHeader parses "<type> <size>\0<content>", the same envelope
// shape a foreign object store's loose files carry on disk.
func splitLooseHeader(data []byte) (object.ObjectType, []byte, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return "", nil, fmt.Errorf("no NUL separator")
	}
	header := string(data[:nul])
	var typ string
	var size int
	if _, err := fmt.Sscanf(header, "%s %d", &typ, &size); err != nil {
		return "", nil, fmt.Errorf("malformed header %q: %w", header, err)
	}
	content := data[nul+1:]
	if len(content) != size {
		return "", nil, fmt.Errorf("size mismatch: header says %d, got %d", size, len(content))
	}
	return object.ObjectType(typ), content, nil
}
