package gitimport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// PackObjectType is the pack entry type tag a foreign pack's variable-length
// object headers carry. Values match the canonical Git wire format.
type PackObjectType uint8

const (
	packCommit   PackObjectType = 1
	packTree     PackObjectType = 2
	packBlob     PackObjectType = 3
	packTag      PackObjectType = 4
	packOfsDelta PackObjectType = 6
	packRefDelta PackObjectType = 7
)

const (
	packHeaderSize   = 12
	packVersionMin   = 2
	packVersionMax   = 3
	gitIdxHashSize   = 20
)

var packFileMagic = [4]byte{'P', 'A', 'C', 'K'}

// decodePackEntryHeader decodes the variable-length object entry header at
// the start of data, returning the entry's type, uncompressed size, and the
// number of header bytes consumed.
func decodePackEntryHeader(data []byte) (PackObjectType, uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, 0, fmt.Errorf("gitimport: pack entry header: truncated")
	}
	b := data[0]
	objType := PackObjectType((b >> 4) & 0x7)
	size := uint64(b & 0x0f)
	shift := uint(4)
	consumed := 1

	for b&0x80 != 0 {
		if consumed >= len(data) {
			return 0, 0, 0, fmt.Errorf("gitimport: pack entry header: truncated")
		}
		b = data[consumed]
		size |= uint64(b&0x7f) << shift
		shift += 7
		consumed++
	}
	return objType, size, consumed, nil
}

// decodeOfsDeltaDistance decodes an OFS_DELTA entry's backward byte
// distance, MSB-continued with the +1 step Git's own varint encoding uses.
func decodeOfsDeltaDistance(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("gitimport: ofs-delta distance: truncated")
	}
	i := 0
	c := data[i]
	i++
	offset := uint64(c & 0x7f)
	for c&0x80 != 0 {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("gitimport: ofs-delta distance: truncated")
		}
		c = data[i]
		i++
		offset = ((offset + 1) << 7) | uint64(c&0x7f)
	}
	return offset, i, nil
}

func decodeDeltaVarint(r io.ByteReader) (uint64, error) {
	var value uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
		if shift > 63 {
			return 0, fmt.Errorf("gitimport: delta varint too large")
		}
	}
}

// applyDelta replays a Git delta instruction stream against base, producing
// the object it encodes.
func applyDelta(base, delta []byte) ([]byte, error) {
	dr := bytes.NewReader(delta)

	baseSize, err := decodeDeltaVarint(dr)
	if err != nil {
		return nil, fmt.Errorf("gitimport: delta: read base size: %w", err)
	}
	if int(baseSize) != len(base) {
		return nil, fmt.Errorf("gitimport: delta: base size mismatch: got %d want %d", baseSize, len(base))
	}
	resultSize, err := decodeDeltaVarint(dr)
	if err != nil {
		return nil, fmt.Errorf("gitimport: delta: read result size: %w", err)
	}

	out := make([]byte, 0, resultSize)
	for dr.Len() > 0 {
		cmd, err := dr.ReadByte()
		if err != nil {
			return nil, err
		}
		if cmd&0x80 != 0 {
			var offset, size int64
			for i, bit := range []byte{0x01, 0x02, 0x04, 0x08} {
				if cmd&bit != 0 {
					b, err := dr.ReadByte()
					if err != nil {
						return nil, fmt.Errorf("gitimport: delta: copy offset byte %d: %w", i, err)
					}
					offset |= int64(b) << (8 * i)
				}
			}
			for i, bit := range []byte{0x10, 0x20, 0x40} {
				if cmd&bit != 0 {
					b, err := dr.ReadByte()
					if err != nil {
						return nil, fmt.Errorf("gitimport: delta: copy size byte %d: %w", i, err)
					}
					size |= int64(b) << (8 * i)
				}
			}
			if size == 0 {
				size = 0x10000
			}
			if offset < 0 || size < 0 || offset+size > int64(len(base)) {
				return nil, fmt.Errorf("gitimport: delta: copy out of bounds")
			}
			out = append(out, base[offset:offset+size]...)
			continue
		}

		if cmd == 0 {
			return nil, fmt.Errorf("gitimport: delta: invalid command 0")
		}
		insert := make([]byte, int(cmd))
		if _, err := io.ReadFull(dr, insert); err != nil {
			return nil, fmt.Errorf("gitimport: delta: insert: %w", err)
		}
		out = append(out, insert...)
	}

	if uint64(len(out)) != resultSize {
		return nil, fmt.Errorf("gitimport: delta: result size mismatch: got %d want %d", len(out), resultSize)
	}
	return out, nil
}

func decodePackHeader(data []byte) (numObjects uint32, err error) {
	if len(data) < packHeaderSize {
		return 0, fmt.Errorf("gitimport: pack header: truncated")
	}
	if data[0] != packFileMagic[0] || data[1] != packFileMagic[1] || data[2] != packFileMagic[2] || data[3] != packFileMagic[3] {
		return 0, fmt.Errorf("gitimport: pack header: %w: bad magic %q", ErrCorrupt, data[0:4])
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version < packVersionMin || version > packVersionMax {
		return 0, fmt.Errorf("gitimport: pack header: unsupported version %d", version)
	}
	return binary.BigEndian.Uint32(data[8:12]), nil
}
