package pack

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/glyphvcs/glyph/pkg/codec"
	"github.com/glyphvcs/glyph/pkg/object"
)

// Reader is a random-access view over one pack file. It satisfies
// object.PackBackend, so an object.Store can register it as a fallback
// behind the loose store.
type Reader struct {
	ra       io.ReaderAt
	size     int64
	manifest *Manifest
	index    map[object.Hash]ManifestChunk
}

// Open parses the header and trailing manifest of a pack of size bytes
// readable through ra, and verifies the trailing checksum once up front.
// Per-chunk payload checks are deferred to Get/Verify.
func Open(ra io.ReaderAt, size int64) (*Reader, error) {
	if size < fixedPrefixLen+trailerLen {
		return nil, fmt.Errorf("pack: open: %w: file too short (%d bytes)", ErrCorrupt, size)
	}

	prefix := make([]byte, 12)
	if _, err := ra.ReadAt(prefix, 0); err != nil {
		return nil, fmt.Errorf("pack: open: read header: %w", err)
	}
	if !bytes.Equal(prefix[0:4], packMagic[:]) {
		return nil, fmt.Errorf("pack: open: %w: bad magic %q", ErrCorrupt, prefix[0:4])
	}
	version := binary.BigEndian.Uint32(prefix[4:8])
	if version != packVersion {
		return nil, fmt.Errorf("pack: open: unsupported version %d", version)
	}
	headerLen := binary.BigEndian.Uint32(prefix[8:12])
	if headerLen < headerBodyLen {
		return nil, fmt.Errorf("pack: open: %w: header too short (%d bytes)", ErrCorrupt, headerLen)
	}

	header := make([]byte, headerLen)
	if _, err := ra.ReadAt(header, 12); err != nil {
		return nil, fmt.Errorf("pack: open: read header body: %w", err)
	}
	chunkCount := binary.BigEndian.Uint32(header[0:4])
	manifestOffset := binary.BigEndian.Uint64(header[4:12])

	manifestLen := size - trailerLen - int64(manifestOffset)
	if manifestLen < 0 || int64(manifestOffset) > size {
		return nil, fmt.Errorf("pack: open: %w: manifest offset %d beyond file size %d", ErrCorrupt, manifestOffset, size)
	}
	manifestBytes := make([]byte, manifestLen)
	if _, err := ra.ReadAt(manifestBytes, int64(manifestOffset)); err != nil {
		return nil, fmt.Errorf("pack: open: read manifest: %w", err)
	}
	manifest, err := decodeManifest(manifestBytes)
	if err != nil {
		return nil, fmt.Errorf("pack: open: %w: %v", ErrCorrupt, err)
	}
	if uint32(len(manifest.Chunks)) != chunkCount {
		return nil, fmt.Errorf("pack: open: %w: header declares %d chunks, manifest has %d", ErrCorrupt, chunkCount, len(manifest.Chunks))
	}

	if err := verifyTrailer(ra, size); err != nil {
		return nil, err
	}

	index := make(map[object.Hash]ManifestChunk, len(manifest.Chunks))
	for _, c := range manifest.Chunks {
		index[object.Hash(c.Hash)] = c
	}
	return &Reader{ra: ra, size: size, manifest: manifest, index: index}, nil
}

func verifyTrailer(ra io.ReaderAt, size int64) error {
	trailer := make([]byte, trailerLen)
	if _, err := ra.ReadAt(trailer, size-trailerLen); err != nil {
		return fmt.Errorf("pack: read trailer: %w", err)
	}
	want := binary.BigEndian.Uint32(trailer)

	crc := crc32.NewIEEE()
	if _, err := io.Copy(crc, io.NewSectionReader(ra, 0, size-trailerLen)); err != nil {
		return fmt.Errorf("pack: checksum scan: %w", err)
	}
	if crc.Sum32() != want {
		return fmt.Errorf("pack: %w: trailer checksum mismatch", ErrCorrupt)
	}
	return nil
}

// Has reports whether hash has a manifest entry in this pack.
func (r *Reader) Has(hash object.Hash) bool {
	_, ok := r.index[hash]
	return ok
}

// Len returns the number of chunks in the pack.
func (r *Reader) Len() int {
	return len(r.manifest.Chunks)
}

// Get resolves hash by seeking straight to its manifest offset (O(1)),
// validating the stored hash, per-chunk CRC32, decompressed size, and
// content hash, then decoding the envelope into (type, content).
func (r *Reader) Get(hash object.Hash) (object.ObjectType, []byte, error) {
	entry, ok := r.index[hash]
	if !ok {
		return "", nil, fmt.Errorf("pack: get %s: %w", hash, ErrNotFound)
	}

	total := chunkEntryOverhead + int(entry.CompressedSize)
	raw := make([]byte, total)
	if _, err := r.ra.ReadAt(raw, int64(entry.Offset)); err != nil {
		return "", nil, fmt.Errorf("pack: get %s: read chunk: %w", hash, err)
	}

	storedHash := hex.EncodeToString(raw[:sha256Size])
	if storedHash != string(hash) {
		return "", nil, fmt.Errorf("pack: get %s: %w: chunk header hash is %s", hash, ErrCorrupt, storedHash)
	}
	codecID := codec.ID(raw[sha256Size])
	compressedSize := binary.BigEndian.Uint32(raw[sha256Size+1 : sha256Size+5])
	if compressedSize != entry.CompressedSize {
		return "", nil, fmt.Errorf("pack: get %s: %w: compressed size mismatch", hash, ErrCorrupt)
	}
	compressed := raw[sha256Size+5 : sha256Size+5+int(compressedSize)]
	storedCRC := binary.BigEndian.Uint32(raw[sha256Size+5+int(compressedSize):])
	if crc32.ChecksumIEEE(compressed) != storedCRC {
		return "", nil, fmt.Errorf("pack: get %s: %w: chunk CRC32 mismatch", hash, ErrCorrupt)
	}

	envelope, err := codec.Decompress(codecID, compressed)
	if err != nil {
		return "", nil, fmt.Errorf("pack: get %s: decompress: %w", hash, err)
	}
	if uint32(len(envelope)) != entry.UncompressedSize {
		return "", nil, fmt.Errorf("pack: get %s: %w: uncompressed size mismatch", hash, ErrCorrupt)
	}
	if object.HashBytes(envelope) != hash {
		return "", nil, fmt.Errorf("pack: get %s: %w: content hash mismatch", hash, ErrCorrupt)
	}
	return object.DecodeEnvelope(envelope)
}

// Verify recomputes the trailing checksum and walks every chunk in the
// manifest, fully validating it via Get. Per spec 4.I: "on verify
// mismatch, the pack is rejected as corrupt" — the first failure aborts
// and is returned.
func (r *Reader) Verify() error {
	if err := verifyTrailer(r.ra, r.size); err != nil {
		return err
	}
	for _, c := range r.manifest.Chunks {
		if _, _, err := r.Get(object.Hash(c.Hash)); err != nil {
			return fmt.Errorf("pack: verify: %w", err)
		}
	}
	return nil
}
