package refs

import (
	"encoding/json"
	"fmt"

	"github.com/glyphvcs/glyph/pkg/catalog"
	"github.com/glyphvcs/glyph/pkg/object"
)

// Entry is one reflog line: a ref's value before and after an update.
// Grounded on the teacher's pkg/repo/reflog.go ReflogEntry, persisted as a
// JSON array per ref key in the REFLOG partition instead of an append-only
// text file.
type Entry struct {
	OldHash   object.Hash `json:"old_hash"`
	NewHash   object.Hash `json:"new_hash"`
	Timestamp int64       `json:"timestamp"`
	Reason    string      `json:"reason"`
}

// reflogAppendOp builds the catalog.Op that appends one entry to ref's
// reflog, meant to be included in the same WriteBatch as the ref update it
// documents so the two are atomic together (invariant 7).
func reflogAppendOp(cat *catalog.Catalog, ref string, oldHash, newHash object.Hash, reason string) catalog.Op {
	entries, _ := readReflog(cat, ref)
	entries = append(entries, Entry{OldHash: oldHash, NewHash: newHash, Reason: reason})
	data, _ := json.Marshal(entries)
	return catalog.Op{Partition: catalog.REFLOG, Key: ref, Value: data}
}

func readReflog(cat *catalog.Catalog, ref string) ([]Entry, error) {
	data, ok, err := cat.Get(catalog.REFLOG, ref)
	if err != nil {
		return nil, fmt.Errorf("refs: read reflog %q: %w", ref, err)
	}
	if !ok {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("refs: read reflog %q: %w: %v", ref, object.ErrCorruption, err)
	}
	return entries, nil
}

// ReadReflog returns ref's history, newest first, bounded by limit (0 means
// unlimited).
func (m *Manager) ReadReflog(ref string, limit int) ([]Entry, error) {
	entries, err := readReflog(m.cat, ref)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
