package codec

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	samples := [][]byte{
		nil,
		[]byte(""),
		[]byte("hello world"),
		bytes.Repeat([]byte("ab"), 10000),
	}
	for _, c := range []ID{Zstd, Deflate} {
		for _, level := range []Level{LevelFast, LevelDefault} {
			for i, sample := range samples {
				compressed, err := Compress(c, level, sample)
				if err != nil {
					t.Fatalf("%s level %d sample %d: compress: %v", c, level, i, err)
				}
				got, err := Decompress(c, compressed)
				if err != nil {
					t.Fatalf("%s level %d sample %d: decompress: %v", c, level, i, err)
				}
				if !bytes.Equal(got, sample) {
					t.Fatalf("%s level %d sample %d: round trip mismatch", c, level, i)
				}
			}
		}
	}
}

func TestDecompressFramingError(t *testing.T) {
	junk := []byte{0xff, 0x00, 0x11, 0x22}
	for _, c := range []ID{Zstd, Deflate} {
		if _, err := Decompress(c, junk); err == nil {
			t.Fatalf("%s: expected framing error on junk input", c)
		}
	}
}

func TestUnknownCodec(t *testing.T) {
	if _, err := Compress(ID(99), LevelDefault, []byte("x")); err != ErrUnknownCodec {
		t.Fatalf("expected ErrUnknownCodec, got %v", err)
	}
	if _, err := Decompress(ID(99), []byte("x")); err != ErrUnknownCodec {
		t.Fatalf("expected ErrUnknownCodec, got %v", err)
	}
}
