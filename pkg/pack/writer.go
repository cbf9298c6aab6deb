package pack

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/glyphvcs/glyph/pkg/codec"
	"github.com/glyphvcs/glyph/pkg/object"
)

type stagedChunk struct {
	hash             object.Hash
	codecID          codec.ID
	compressed       []byte
	uncompressedSize uint32
}

// Writer stages objects and assembles them into a single pack stream.
// Every chunk's compressed bytes sit in memory until WriteTo, mirroring
// how the object store buffers one object at a time — packs are built from
// a bounded working set (a commit range, a push), never the whole store at
// once.
type Writer struct {
	seen   map[object.Hash]bool
	chunks []stagedChunk
}

// NewWriter returns an empty pack builder.
func NewWriter() *Writer {
	return &Writer{seen: map[object.Hash]bool{}}
}

// AddObject stages one object's envelope for inclusion, compressed with
// codecID at level. added is false if the hash was already staged — spec
// 4.I's write contract: "a chunk is appended at most once per pack; dedup
// is by hash."
func (w *Writer) AddObject(t object.ObjectType, content []byte, codecID codec.ID, level codec.Level) (hash object.Hash, added bool, err error) {
	hash = object.HashObject(t, content)
	if w.seen[hash] {
		return hash, false, nil
	}
	envelope := object.EncodeEnvelope(t, content)
	compressed, err := codec.Compress(codecID, level, envelope)
	if err != nil {
		return "", false, fmt.Errorf("pack: compress %s: %w", hash, err)
	}
	w.seen[hash] = true
	w.chunks = append(w.chunks, stagedChunk{
		hash:             hash,
		codecID:          codecID,
		compressed:       compressed,
		uncompressedSize: uint32(len(envelope)),
	})
	return hash, true, nil
}

// Len returns the number of distinct chunks staged so far.
func (w *Writer) Len() int {
	return len(w.chunks)
}

// WriteTo assembles the full pack stream — header, chunks, manifest,
// trailing checksum — and writes it to out, returning the manifest that
// was written.
func (w *Writer) WriteTo(out io.Writer) (*Manifest, error) {
	offsets := make([]uint64, len(w.chunks))
	offset := uint64(fixedPrefixLen)
	for i, c := range w.chunks {
		offsets[i] = offset
		offset += uint64(chunkEntryOverhead + len(c.compressed))
	}
	manifestOffset := offset

	manifest := &Manifest{Chunks: make([]ManifestChunk, len(w.chunks))}
	for i, c := range w.chunks {
		manifest.Chunks[i] = ManifestChunk{
			Hash:             string(c.hash),
			UncompressedSize: c.uncompressedSize,
			CompressedSize:   uint32(len(c.compressed)),
			Codec:            uint8(c.codecID),
			Offset:           offsets[i],
		}
	}
	manifestBytes, err := encodeManifest(manifest)
	if err != nil {
		return nil, err
	}

	crc := crc32.NewIEEE()
	tee := io.MultiWriter(out, crc)

	prefix := make([]byte, fixedPrefixLen)
	copy(prefix[0:4], packMagic[:])
	binary.BigEndian.PutUint32(prefix[4:8], packVersion)
	binary.BigEndian.PutUint32(prefix[8:12], headerBodyLen)
	binary.BigEndian.PutUint32(prefix[12:16], uint32(len(w.chunks)))
	binary.BigEndian.PutUint64(prefix[16:24], manifestOffset)
	if _, err := tee.Write(prefix); err != nil {
		return nil, fmt.Errorf("pack: write header: %w", err)
	}

	for i, c := range w.chunks {
		if err := writeChunk(tee, c); err != nil {
			return nil, fmt.Errorf("pack: write chunk %d (%s): %w", i, c.hash, err)
		}
	}

	if _, err := tee.Write(manifestBytes); err != nil {
		return nil, fmt.Errorf("pack: write manifest: %w", err)
	}

	trailer := make([]byte, trailerLen)
	binary.BigEndian.PutUint32(trailer, crc.Sum32())
	if _, err := out.Write(trailer); err != nil {
		return nil, fmt.Errorf("pack: write trailer: %w", err)
	}
	return manifest, nil
}

func writeChunk(w io.Writer, c stagedChunk) error {
	rawHash, err := hex.DecodeString(string(c.hash))
	if err != nil || len(rawHash) != sha256Size {
		return fmt.Errorf("invalid hash %q", c.hash)
	}
	buf := make([]byte, 0, chunkEntryOverhead+len(c.compressed))
	buf = append(buf, rawHash...)
	buf = append(buf, byte(c.codecID))
	sizeField := make([]byte, 4)
	binary.BigEndian.PutUint32(sizeField, uint32(len(c.compressed)))
	buf = append(buf, sizeField...)
	buf = append(buf, c.compressed...)
	crcField := make([]byte, 4)
	binary.BigEndian.PutUint32(crcField, crc32.ChecksumIEEE(c.compressed))
	buf = append(buf, crcField...)
	_, err = w.Write(buf)
	return err
}
