package gitimport

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"testing"
)

// buildIdx assembles a minimal real Git-format .idx v2 file (small-offset
// entries only) from already-known (id, crc32, offset) triples.
func buildIdx(entries []PackIndexEntry, packChecksum string) []byte {
	sorted := append([]PackIndexEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var fanout [256]uint32
	for _, e := range sorted {
		raw, _ := hex.DecodeString(string(e.ID))
		for b := int(raw[0]); b < 256; b++ {
			fanout[b]++
		}
	}

	var buf bytes.Buffer
	buf.Write(gitIdxMagic[:])
	var versionBuf [4]byte
	binary.BigEndian.PutUint32(versionBuf[:], gitIdxVersion)
	buf.Write(versionBuf[:])
	for _, v := range fanout {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		buf.Write(b[:])
	}
	for _, e := range sorted {
		raw, _ := hex.DecodeString(string(e.ID))
		buf.Write(raw)
	}
	for _, e := range sorted {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], e.CRC32)
		buf.Write(b[:])
	}
	for _, e := range sorted {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(e.Offset))
		buf.Write(b[:])
	}
	packSum, _ := hex.DecodeString(packChecksum)
	buf.Write(packSum)
	idxSum := sha1.Sum(buf.Bytes())
	buf.Write(idxSum[:])
	return buf.Bytes()
}

func TestReadIndexAndFind(t *testing.T) {
	entries := []PackIndexEntry{
		{ID: hashRaw("blob", "a"), CRC32: 111, Offset: 12},
		{ID: hashRaw("blob", "b"), CRC32: 222, Offset: 200},
		{ID: hashRaw("blob", "c"), CRC32: 333, Offset: 9000},
	}
	fakePackSum := sha1.Sum([]byte("fake pack bytes"))
	packChecksum := hex.EncodeToString(fakePackSum[:])
	data := buildIdx(entries, packChecksum)

	idx, err := ReadIndex(data)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if idx.PackChecksum != packChecksum {
		t.Fatalf("PackChecksum = %s, want %s", idx.PackChecksum, packChecksum)
	}
	for _, e := range entries {
		got, ok := idx.Find(e.ID)
		if !ok {
			t.Fatalf("Find(%s): not found", e.ID)
		}
		if got != e {
			t.Fatalf("Find(%s) = %+v, want %+v", e.ID, got, e)
		}
	}
	if _, ok := idx.Find(ForeignID("ffffffffffffffffffffffffffffffffffffff")); ok {
		t.Fatal("expected Find to report false for an absent id")
	}
}

func TestReadIndexRejectsTamperedChecksum(t *testing.T) {
	entries := []PackIndexEntry{{ID: hashRaw("blob", "a"), CRC32: 1, Offset: 12}}
	fakePackSum := sha1.Sum([]byte("pack"))
	data := buildIdx(entries, hex.EncodeToString(fakePackSum[:]))
	data[len(data)-1] ^= 0xff
	if _, err := ReadIndex(data); err == nil {
		t.Fatal("expected self-checksum mismatch error")
	}
}
