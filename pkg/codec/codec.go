// Package codec implements the two compression codecs the object store and
// pack format round-trip payloads through: zstd and deflate.
package codec

import (
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// ID identifies a codec on the wire (object file header byte, pack chunk
// header byte).
type ID uint8

const (
	Deflate ID = 0
	Zstd    ID = 1
)

func (c ID) String() string {
	switch c {
	case Deflate:
		return "deflate"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// Level selects a compression/speed tradeoff. The zstd codec recognizes
// LevelFast and LevelDefault; deflate maps them onto its own 1..9 scale.
type Level int

const (
	LevelFast    Level = 3
	LevelDefault Level = 10
)

// ErrFraming is returned when a decompressor cannot parse the input as a
// valid frame for its codec (truncated stream, bad magic, checksum failure).
var ErrFraming = errors.New("codec: corrupt or truncated compressed frame")

// ErrUnknownCodec is returned for a codec ID this package does not implement.
var ErrUnknownCodec = errors.New("codec: unknown codec id")

// Compress encodes data with the given codec at the given level.
func Compress(c ID, level Level, data []byte) ([]byte, error) {
	switch c {
	case Zstd:
		return compressZstd(level, data)
	case Deflate:
		return compressDeflate(level, data)
	default:
		return nil, ErrUnknownCodec
	}
}

// Decompress decodes data previously produced by Compress with the same
// codec. It returns ErrFraming (wrapped) on any parse/checksum failure so
// callers can distinguish recoverable framing errors from other I/O errors.
func Decompress(c ID, data []byte) ([]byte, error) {
	switch c {
	case Zstd:
		return decompressZstd(data)
	case Deflate:
		return decompressDeflate(data)
	default:
		return nil, ErrUnknownCodec
	}
}

func compressZstd(level Level, data []byte) ([]byte, error) {
	opt := zstd.SpeedDefault
	if level <= LevelFast {
		opt = zstd.SpeedFastest
	} else if level >= LevelDefault {
		opt = zstd.SpeedBetterCompression
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(opt))
	if err != nil {
		return nil, fmt.Errorf("zstd: new encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: new decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFraming, err)
	}
	return out, nil
}

func compressDeflate(level Level, data []byte) ([]byte, error) {
	flateLevel := deflateLevel(level)
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flateLevel)
	if err != nil {
		return nil, fmt.Errorf("deflate: new writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("deflate: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate: close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressDeflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFraming, err)
	}
	return out, nil
}

func deflateLevel(level Level) int {
	if level <= LevelFast {
		return flate.BestSpeed
	}
	if level >= LevelDefault {
		return flate.BestCompression
	}
	return flate.DefaultCompression
}
