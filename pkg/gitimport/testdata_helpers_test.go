package gitimport

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// hashRaw computes the foreign SHA-1 id of a (type, payload) pair, the
// same envelope hashForeignObject hashes over, for use in tests that need
// to predict an id before building the object that produces it.
func hashRaw(typ, payload string) ForeignID {
	header := fmt.Sprintf("%s %d\x00", typ, len(payload))
	h := sha1.New()
	h.Write([]byte(header))
	h.Write([]byte(payload))
	return ForeignID(hex.EncodeToString(h.Sum(nil)))
}

// deflate zlib-compresses data, the wire form every loose object and pack
// entry payload uses.
func deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

// looseObjectBytes builds the zlib-compressed envelope a loose object file
// stores on disk: "<type> <len>\0<payload>".
func looseObjectBytes(typ, payload string) []byte {
	return deflate([]byte(fmt.Sprintf("%s %d\x00%s", typ, len(payload), payload)))
}

// treeEntryBytes encodes one tree record: "<mode> <name>\0<20-byte-id>".
func treeEntryBytes(mode, name string, id ForeignID) []byte {
	raw, _ := hex.DecodeString(string(id))
	var buf bytes.Buffer
	buf.WriteString(mode)
	buf.WriteByte(' ')
	buf.WriteString(name)
	buf.WriteByte(0)
	buf.Write(raw)
	return buf.Bytes()
}

// packEntryHeaderBytes encodes a non-delta pack entry's variable-length
// type+size header, mirroring the real Git wire encoding this package
// decodes in decodePackEntryHeader.
func packEntryHeaderBytes(typ PackObjectType, size uint64) []byte {
	b := byte(typ&0x7) << 4
	b |= byte(size & 0x0f)
	size >>= 4

	out := []byte{}
	if size > 0 {
		b |= 0x80
	}
	out = append(out, b)
	for size > 0 {
		next := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			next |= 0x80
		}
		out = append(out, next)
	}
	return out
}

// encodeOfsDeltaDistanceForTest is the inverse of decodeOfsDeltaDistance,
// needed only to construct OFS_DELTA fixtures — production code in this
// package only ever reads foreign packs, never writes them.
func encodeOfsDeltaDistanceForTest(distance uint64) []byte {
	if distance == 0 {
		return []byte{0}
	}
	b := []byte{byte(distance & 0x7f)}
	for distance >>= 7; distance > 0; distance >>= 7 {
		distance--
		b = append([]byte{byte((distance & 0x7f) | 0x80)}, b...)
	}
	return b
}

// buildPack assembles a minimal non-delta pack v2 file containing entries
// in the given (type, payload) order, with the real Git "PACK" header and
// a trailing SHA-1 checksum over everything before it.
func buildPack(entries [][2]string) []byte {
	var body bytes.Buffer
	body.WriteString("PACK")
	var numBuf [4]byte
	numBuf[3] = byte(len(entries))
	body.Write([]byte{0, 0, 0, 2}) // version 2
	body.Write(numBuf[:])

	typeCodes := map[string]PackObjectType{
		"commit": packCommit,
		"tree":   packTree,
		"blob":   packBlob,
		"tag":    packTag,
	}
	for _, e := range entries {
		typ, payload := e[0], e[1]
		body.Write(packEntryHeaderBytes(typeCodes[typ], uint64(len(payload))))
		body.Write(deflate([]byte(payload)))
	}

	sum := sha1.Sum(body.Bytes())
	body.Write(sum[:])
	return body.Bytes()
}

// buildPackWithOfsDelta assembles a two-entry pack: a base blob, then an
// OFS_DELTA entry carrying deltaInstructions (already in Git delta-opcode
// form) against the base's offset.
func buildPackWithOfsDelta(basePayload string, deltaInstructions []byte) []byte {
	var body bytes.Buffer
	body.WriteString("PACK")
	body.Write([]byte{0, 0, 0, 2})
	body.Write([]byte{0, 0, 0, 2}) // 2 objects

	baseOffset := uint64(body.Len())
	body.Write(packEntryHeaderBytes(packBlob, uint64(len(basePayload))))
	body.Write(deflate([]byte(basePayload)))

	deltaOffset := uint64(body.Len())
	body.Write(packEntryHeaderBytes(packOfsDelta, uint64(len(deltaInstructions))))
	body.Write(encodeOfsDeltaDistanceForTest(deltaOffset - baseOffset))
	body.Write(deflate(deltaInstructions))

	sum := sha1.Sum(body.Bytes())
	body.Write(sum[:])
	return body.Bytes()
}
