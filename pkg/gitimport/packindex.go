package gitimport

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// gitIdxMagic is the 4-byte marker at the start of a Git pack .idx v2 file
// ("\377tOc").
var gitIdxMagic = [4]byte{0xff, 0x74, 0x4f, 0x63}

const gitIdxVersion = 2
const gitIdxHeaderSize = 8 // magic(4) + version(4)

// PackIndexEntry is one resolved (id, crc32, offset) triple from a .idx v2
// file.
type PackIndexEntry struct {
	ID     ForeignID
	CRC32  uint32
	Offset uint64
}

// PackIndex is a fanout/binary-search view over a foreign repository's
// pack .idx v2 file — read-only, the mirror image of the teacher's own
// pack_index_reader.go adapted from that format's 32-byte (SHA-256)
// entries to the 20-byte SHA-1 width real Git indexes carry.
type PackIndex struct {
	fanout       [256]uint32
	entries      []PackIndexEntry
	PackChecksum string // hex SHA-1 of the paired .pack file, for pairing checks
}

// ReadIndex parses a complete .idx v2 file, validating its own trailing
// self-checksum (the last 20 bytes: SHA-1 of everything before it).
func ReadIndex(data []byte) (*PackIndex, error) {
	minLen := gitIdxHeaderSize + 256*4 + 2*gitIdxHashSize
	if len(data) < minLen {
		return nil, fmt.Errorf("gitimport: pack index: %w: too short (%d bytes)", ErrCorrupt, len(data))
	}
	if data[0] != gitIdxMagic[0] || data[1] != gitIdxMagic[1] || data[2] != gitIdxMagic[2] || data[3] != gitIdxMagic[3] {
		return nil, fmt.Errorf("gitimport: pack index: %w: bad magic", ErrCorrupt)
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != gitIdxVersion {
		return nil, fmt.Errorf("gitimport: pack index: unsupported version %d", version)
	}

	idxChecksum := data[len(data)-gitIdxHashSize:]
	sum := sha1.Sum(data[:len(data)-gitIdxHashSize])
	if !bytes.Equal(sum[:], idxChecksum) {
		return nil, fmt.Errorf("gitimport: pack index: %w: self-checksum mismatch", ErrCorrupt)
	}
	packChecksum := data[len(data)-2*gitIdxHashSize : len(data)-gitIdxHashSize]

	cursor := gitIdxHeaderSize
	var fanout [256]uint32
	for i := 0; i < 256; i++ {
		fanout[i] = binary.BigEndian.Uint32(data[cursor:])
		cursor += 4
	}
	n := int(fanout[255])

	namesLen := n * gitIdxHashSize
	crcLen := n * 4
	offsetLen := n * 4
	fixedTail := 2 * gitIdxHashSize
	if cursor+namesLen+crcLen+offsetLen+fixedTail > len(data) {
		return nil, fmt.Errorf("gitimport: pack index: %w: truncated fixed tables", ErrCorrupt)
	}
	namesStart := cursor
	cursor += namesLen
	crcStart := cursor
	cursor += crcLen
	offsetStart := cursor
	cursor += offsetLen

	offset32 := make([]uint32, n)
	var largeCount uint32
	for i := 0; i < n; i++ {
		v := binary.BigEndian.Uint32(data[offsetStart+i*4:])
		offset32[i] = v
		if v&0x80000000 != 0 {
			ref := v &^ 0x80000000
			if ref+1 > largeCount {
				largeCount = ref + 1
			}
		}
	}

	largeOffsets := make([]uint64, largeCount)
	for i := uint32(0); i < largeCount; i++ {
		if cursor+8 > len(data)-fixedTail {
			return nil, fmt.Errorf("gitimport: pack index: %w: large-offset table truncated", ErrCorrupt)
		}
		largeOffsets[i] = binary.BigEndian.Uint64(data[cursor:])
		cursor += 8
	}

	if cursor+fixedTail != len(data) {
		return nil, fmt.Errorf("gitimport: pack index: %w: %d trailing bytes", ErrCorrupt, len(data)-fixedTail-cursor)
	}

	entries := make([]PackIndexEntry, n)
	for i := 0; i < n; i++ {
		idRaw := data[namesStart+i*gitIdxHashSize : namesStart+(i+1)*gitIdxHashSize]
		offset := uint64(offset32[i])
		if offset32[i]&0x80000000 != 0 {
			ref := offset32[i] &^ 0x80000000
			if int(ref) >= len(largeOffsets) {
				return nil, fmt.Errorf("gitimport: pack index: %w: invalid large-offset reference %d", ErrCorrupt, ref)
			}
			offset = largeOffsets[ref]
		}
		entries[i] = PackIndexEntry{
			ID:     ForeignID(hex.EncodeToString(idRaw)),
			CRC32:  binary.BigEndian.Uint32(data[crcStart+i*4:]),
			Offset: offset,
		}
	}

	return &PackIndex{fanout: fanout, entries: entries, PackChecksum: hex.EncodeToString(packChecksum)}, nil
}

// Find looks up id via the fanout table and a binary search within its
// bucket, mirroring the structure of a real Git pack index lookup.
func (idx *PackIndex) Find(id ForeignID) (PackIndexEntry, bool) {
	raw, err := hex.DecodeString(string(id))
	if err != nil || len(raw) == 0 {
		return PackIndexEntry{}, false
	}
	bucket := int(raw[0])
	start := uint32(0)
	if bucket > 0 {
		start = idx.fanout[bucket-1]
	}
	end := idx.fanout[bucket]
	if end <= start {
		return PackIndexEntry{}, false
	}

	lo, hi := int(start), int(end)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if idx.entries[mid].ID < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < int(end) && idx.entries[lo].ID == id {
		return idx.entries[lo], true
	}
	return PackIndexEntry{}, false
}
