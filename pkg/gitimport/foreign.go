// Package gitimport implements spec 4.J: translating a foreign Git object
// directory (loose objects plus optional pack v2 files) into this system's
// own content-addressed store, commit graph, and refs. Grounded on the
// teacher's pkg/object pack/delta/index code, adapted from that package's
// own SHA-256-native pack format to the 20-byte SHA-1 identity space real
// foreign repositories actually use on disk.
package gitimport

import "github.com/glyphvcs/glyph/pkg/object"

// ForeignID is a foreign object's identity: a 40-character lowercase hex
// SHA-1 digest, the hash space of the repository being imported. Distinct
// from object.Hash (64-hex SHA-256) so a translated and an untranslated id
// can never be confused at compile time.
type ForeignID string

// ForeignObject is one decoded object from the source repository, still in
// its foreign identity space: a blob's raw bytes, a tree's or commit's or
// tag's wire-format payload (not yet parsed).
type ForeignObject struct {
	Type    object.ObjectType
	Payload []byte
}

// ForeignSource resolves a foreign object by id, lazily — spec 4.J step 1:
// "build a mapping foreign_id -> {type, payload_bytes} (lazy: payloads
// fetched on demand)." A loose directory, a decoded pack, and the
// multi-source aggregate below all implement it.
type ForeignSource interface {
	Get(id ForeignID) (*ForeignObject, error)
}

// MultiSource tries each underlying source in order, so a repository made
// of a loose directory plus zero or more packs looks like one source to
// the translator.
type MultiSource struct {
	sources []ForeignSource
}

// NewMultiSource combines sources, consulted in the given order.
func NewMultiSource(sources ...ForeignSource) *MultiSource {
	return &MultiSource{sources: sources}
}

func (m *MultiSource) Get(id ForeignID) (*ForeignObject, error) {
	var lastErr error
	for _, s := range m.sources {
		obj, err := s.Get(id)
		if err == nil {
			return obj, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return nil, lastErr
}
