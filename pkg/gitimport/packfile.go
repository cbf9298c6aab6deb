package gitimport

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/glyphvcs/glyph/pkg/object"
)

// PackFile is a fully decoded foreign pack: every entry's delta chain has
// been resolved to a concrete (type, payload), keyed by its foreign id.
type PackFile struct {
	objects map[ForeignID]*ForeignObject
}

func (p *PackFile) Get(id ForeignID) (*ForeignObject, error) {
	obj, ok := p.objects[id]
	if !ok {
		return nil, fmt.Errorf("gitimport: pack: %w: %s", ErrNotFound, id)
	}
	return obj, nil
}

type pendingEntry struct {
	offset          uint64
	isDelta         bool
	ofsBase         uint64
	refBase         ForeignID
	raw             []byte
	resolved        bool
	resolvedType    object.ObjectType
	resolvedPayload []byte
}

// DecodePack parses a foreign pack v2 file and resolves every OFS_DELTA and
// REF_DELTA chain, repeating a fixpoint pass over unresolved entries so
// chains resolve regardless of storage order. A REF_DELTA whose base isn't
// in this pack falls back to external, so a thin pack delta-against-loose
// or delta-against-an-earlier-pack still resolves.
func DecodePack(data []byte, external ForeignSource) (*PackFile, error) {
	if len(data) < packHeaderSize+gitIdxHashSize {
		return nil, fmt.Errorf("gitimport: pack: %w: file too short", ErrCorrupt)
	}
	payload := data[:len(data)-gitIdxHashSize]
	trailer := data[len(data)-gitIdxHashSize:]
	sum := sha1.Sum(payload)
	if !bytes.Equal(sum[:], trailer) {
		return nil, fmt.Errorf("gitimport: pack: %w: trailer checksum mismatch", ErrCorrupt)
	}

	numObjects, err := decodePackHeader(payload)
	if err != nil {
		return nil, err
	}

	byOffset := make(map[uint64]*pendingEntry, numObjects)
	all := make([]*pendingEntry, 0, numObjects)

	cursor := uint64(packHeaderSize)
	for i := uint32(0); i < numObjects; i++ {
		entryStart := cursor
		if entryStart >= uint64(len(payload)) {
			return nil, fmt.Errorf("gitimport: pack: entry %d: %w: truncated", i, ErrCorrupt)
		}
		typ, size, headerLen, err := decodePackEntryHeader(payload[entryStart:])
		if err != nil {
			return nil, fmt.Errorf("gitimport: pack: entry %d: %w", i, err)
		}
		cursor += uint64(headerLen)

		pe := &pendingEntry{offset: entryStart}

		switch typ {
		case packOfsDelta:
			distance, n, err := decodeOfsDeltaDistance(payload[cursor:])
			if err != nil {
				return nil, fmt.Errorf("gitimport: pack: entry %d: %w", i, err)
			}
			if distance > entryStart {
				return nil, fmt.Errorf("gitimport: pack: entry %d: %w: ofs-delta distance %d exceeds offset %d", i, ErrCorrupt, distance, entryStart)
			}
			pe.isDelta = true
			pe.ofsBase = entryStart - distance
			cursor += uint64(n)
		case packRefDelta:
			if cursor+gitIdxHashSize > uint64(len(payload)) {
				return nil, fmt.Errorf("gitimport: pack: entry %d: %w: truncated ref-delta base", i, ErrCorrupt)
			}
			pe.isDelta = true
			pe.refBase = ForeignID(hex.EncodeToString(payload[cursor : cursor+gitIdxHashSize]))
			cursor += gitIdxHashSize
		}

		inflated, consumed, err := inflateAt(payload, cursor)
		if err != nil {
			return nil, fmt.Errorf("gitimport: pack: entry %d: %w: %v", i, ErrCorrupt, err)
		}
		cursor += uint64(consumed)
		if uint64(len(inflated)) != size {
			return nil, fmt.Errorf("gitimport: pack: entry %d: %w: size mismatch header=%d decoded=%d", i, ErrCorrupt, size, len(inflated))
		}

		if pe.isDelta {
			pe.raw = inflated
		} else {
			typName, err := packObjectTypeName(typ)
			if err != nil {
				return nil, fmt.Errorf("gitimport: pack: entry %d: %w", i, err)
			}
			pe.resolved = true
			pe.resolvedType = typName
			pe.resolvedPayload = inflated
		}

		byOffset[entryStart] = pe
		all = append(all, pe)
	}

	if cursor != uint64(len(payload)) {
		return nil, fmt.Errorf("gitimport: pack: %w: %d trailing undecoded bytes", ErrCorrupt, uint64(len(payload))-cursor)
	}

	byID := make(map[ForeignID]*pendingEntry, numObjects)
	for _, pe := range all {
		if pe.resolved {
			byID[hashForeignObject(pe.resolvedType, pe.resolvedPayload)] = pe
		}
	}

	for {
		progressed := false
		for _, pe := range all {
			if pe.resolved {
				continue
			}
			var baseType object.ObjectType
			var basePayload []byte
			found := false

			if pe.refBase != "" {
				if b, ok := byID[pe.refBase]; ok && b.resolved {
					baseType, basePayload, found = b.resolvedType, b.resolvedPayload, true
				} else if external != nil {
					if obj, err := external.Get(pe.refBase); err == nil {
						baseType, basePayload, found = obj.Type, obj.Payload, true
					}
				}
			} else {
				if b, ok := byOffset[pe.ofsBase]; ok && b.resolved {
					baseType, basePayload, found = b.resolvedType, b.resolvedPayload, true
				}
			}
			if !found {
				continue
			}

			out, err := applyDelta(basePayload, pe.raw)
			if err != nil {
				return nil, fmt.Errorf("gitimport: pack: delta at offset %d: %w", pe.offset, err)
			}
			pe.resolved = true
			pe.resolvedType = baseType
			pe.resolvedPayload = out
			byID[hashForeignObject(pe.resolvedType, pe.resolvedPayload)] = pe
			progressed = true
		}
		if !progressed {
			break
		}
	}

	objects := make(map[ForeignID]*ForeignObject, numObjects)
	for _, pe := range all {
		if !pe.resolved {
			return nil, fmt.Errorf("gitimport: pack: delta at offset %d: %w: base never resolved", pe.offset, ErrCorrupt)
		}
		id := hashForeignObject(pe.resolvedType, pe.resolvedPayload)
		objects[id] = &ForeignObject{Type: pe.resolvedType, Payload: pe.resolvedPayload}
	}
	return &PackFile{objects: objects}, nil
}

// inflateAt decompresses one zlib stream starting at data[offset:] and
// reports how many compressed bytes it occupied, so the caller can advance
// past exactly the stream and not into the next entry.
func inflateAt(data []byte, offset uint64) ([]byte, int, error) {
	if offset >= uint64(len(data)) {
		return nil, 0, fmt.Errorf("missing compressed payload")
	}
	sub := bytes.NewReader(data[offset:])
	zr, err := zlib.NewReader(sub)
	if err != nil {
		return nil, 0, fmt.Errorf("zlib reader: %w", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		zr.Close()
		return nil, 0, fmt.Errorf("decompress: %w", err)
	}
	if err := zr.Close(); err != nil {
		return nil, 0, fmt.Errorf("close zlib stream: %w", err)
	}
	consumed := len(data[offset:]) - sub.Len()
	return raw, consumed, nil
}

func packObjectTypeName(t PackObjectType) (object.ObjectType, error) {
	switch t {
	case packCommit:
		return object.TypeCommit, nil
	case packTree:
		return object.TypeTree, nil
	case packBlob:
		return object.TypeBlob, nil
	case packTag:
		return object.TypeTag, nil
	default:
		return "", fmt.Errorf("gitimport: pack entry: unsupported base type %d", t)
	}
}

// hashForeignObject recomputes a foreign object's SHA-1 identity from its
// (type, payload), the same envelope real Git hashes over.
func hashForeignObject(t object.ObjectType, payload []byte) ForeignID {
	header := fmt.Sprintf("%s %d\x00", t, len(payload))
	h := sha1.New()
	h.Write([]byte(header))
	h.Write(payload)
	return ForeignID(hex.EncodeToString(h.Sum(nil)))
}
