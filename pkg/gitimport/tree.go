package gitimport

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// foreignTreeEntry is one record of a foreign tree's raw payload.
type foreignTreeEntry struct {
	Mode string
	Name string
	ID   ForeignID
}

// parseForeignTree decodes repeated "<mode-ascii> <name>\0<20-byte-id>"
// records. Git's own mode strings already match this system's ModeFile /
// ModeExecutable / ModeSymlink / ModeDir constants verbatim, so the caller
// translates mode to child kind with a plain switch — no remapping table.
func parseForeignTree(payload []byte) ([]foreignTreeEntry, error) {
	var entries []foreignTreeEntry
	i := 0
	for i < len(payload) {
		sp := bytes.IndexByte(payload[i:], ' ')
		if sp < 0 {
			return nil, fmt.Errorf("truncated mode field at byte %d", i)
		}
		mode := string(payload[i : i+sp])
		rest := i + sp + 1

		nul := bytes.IndexByte(payload[rest:], 0)
		if nul < 0 {
			return nil, fmt.Errorf("truncated name field at byte %d", rest)
		}
		name := string(payload[rest : rest+nul])

		idStart := rest + nul + 1
		if idStart+gitIdxHashSize > len(payload) {
			return nil, fmt.Errorf("truncated id field at byte %d", idStart)
		}
		id := ForeignID(hex.EncodeToString(payload[idStart : idStart+gitIdxHashSize]))

		entries = append(entries, foreignTreeEntry{Mode: mode, Name: name, ID: id})
		i = idStart + gitIdxHashSize
	}
	return entries, nil
}
