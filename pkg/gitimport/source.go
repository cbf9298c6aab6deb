package gitimport

import (
	"encoding/hex"
	"fmt"
)

// PackInput is one foreign pack file, plus its paired .idx file's bytes if
// one was found alongside it on disk.
type PackInput struct {
	PackData []byte
	IdxData  []byte // nil if no .idx file accompanied the pack
}

// NewSource decodes a loose object directory plus zero or more packs into
// one aggregate ForeignSource. Packs decode in the given order; a
// REF_DELTA whose base isn't in its own pack falls back to objects already
// known — the loose directory, plus any pack decoded earlier in the list.
// If a paired .idx is present, its self-reported pack checksum is cross
// checked against the pack's own trailer before the pack is trusted, per
// spec 4.J's general posture that any detected inconsistency aborts rather
// than importing corrupt history.
func NewSource(looseRoot string, packs []PackInput) (*MultiSource, error) {
	var sources []ForeignSource
	if looseRoot != "" {
		sources = append(sources, NewLooseDir(looseRoot))
	}

	for i, p := range packs {
		if len(p.PackData) < gitIdxHashSize {
			return nil, fmt.Errorf("gitimport: pack %d: %w: too short", i, ErrCorrupt)
		}
		if p.IdxData != nil {
			idx, err := ReadIndex(p.IdxData)
			if err != nil {
				return nil, fmt.Errorf("gitimport: pack %d: idx: %w", i, err)
			}
			trailer := p.PackData[len(p.PackData)-gitIdxHashSize:]
			if idx.PackChecksum != hex.EncodeToString(trailer) {
				return nil, fmt.Errorf("gitimport: pack %d: %w: idx pack-checksum does not match pack trailer", i, ErrCorrupt)
			}
		}

		decoded, err := DecodePack(p.PackData, NewMultiSource(sources...))
		if err != nil {
			return nil, fmt.Errorf("gitimport: pack %d: %w", i, err)
		}
		sources = append(sources, decoded)
	}

	return NewMultiSource(sources...), nil
}
