package pack

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
)

// ManifestChunk is one chunk's entry in the manifest: enough to seek
// straight to it, verify it, and decompress it without touching any other
// part of the pack.
type ManifestChunk struct {
	Hash             string `toml:"hash"`
	UncompressedSize uint32 `toml:"uncompressed_size"`
	CompressedSize   uint32 `toml:"compressed_size"`
	Codec            uint8  `toml:"codec"`
	Offset           uint64 `toml:"offset"`
}

// Manifest is the pack trailer's index: one entry per chunk, in write
// order. Encoded as TOML (spec 4.I leaves the manifest encoding open; TOML
// keeps it human-diffable without losing the binary pack's random-access
// contract, since only the fixed-size chunk entries need O(1) seeking).
type Manifest struct {
	Chunks []ManifestChunk `toml:"chunk"`
}

func encodeManifest(m *Manifest) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("pack: encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("pack: decode manifest: %w", err)
	}
	return &m, nil
}
