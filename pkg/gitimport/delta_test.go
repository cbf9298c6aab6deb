package gitimport

import (
	"bytes"
	"testing"
)

func TestDecodeOfsDeltaDistanceRoundTrip(t *testing.T) {
	// Hand-encoded using Git's own MSB-continuation-with-+1-step rule:
	// values chosen to exercise one- and two-byte encodings.
	cases := []struct {
		encoded []byte
		want    uint64
	}{
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 0x7f},
		{[]byte{0x80, 0x00}, 0x80},
		{[]byte{0xff, 0x7f}, 0x407f},
	}
	for _, c := range cases {
		got, n, err := decodeOfsDeltaDistance(c.encoded)
		if err != nil {
			t.Fatalf("decodeOfsDeltaDistance(%v): %v", c.encoded, err)
		}
		if got != c.want {
			t.Fatalf("decodeOfsDeltaDistance(%v) = %d, want %d", c.encoded, got, c.want)
		}
		if n != len(c.encoded) {
			t.Fatalf("consumed %d bytes, want %d", n, len(c.encoded))
		}
	}
}

func TestApplyDeltaInsertOnly(t *testing.T) {
	base := []byte("hello world\n")
	target := []byte("hello there world\n")

	var delta bytes.Buffer
	delta.WriteByte(byte(len(base))) // base size varint (fits in one byte)
	delta.WriteByte(byte(len(target)))
	delta.WriteByte(byte(len(target)))
	delta.Write(target)

	got, err := applyDelta(base, delta.Bytes())
	if err != nil {
		t.Fatalf("applyDelta: %v", err)
	}
	if !bytes.Equal(got, target) {
		t.Fatalf("applyDelta = %q, want %q", got, target)
	}
}

func TestApplyDeltaCopyAndInsert(t *testing.T) {
	base := []byte("hello world\n")
	// copy base[0:5] ("hello"), then insert " there", then copy base[5:12] (" world\n")
	var delta bytes.Buffer
	delta.WriteByte(byte(len(base)))
	target := "hello there world\n"
	delta.WriteByte(byte(len(target)))

	// copy cmd: 0x80 | offset-byte0(0x01) | size-byte0(0x10) -> offset=0, size=5
	delta.WriteByte(0x80 | 0x01 | 0x10)
	delta.WriteByte(0x00)
	delta.WriteByte(0x05)

	insert := []byte(" there")
	delta.WriteByte(byte(len(insert)))
	delta.Write(insert)

	// copy cmd: offset=5, size=7
	delta.WriteByte(0x80 | 0x01 | 0x10)
	delta.WriteByte(0x05)
	delta.WriteByte(0x07)

	got, err := applyDelta(base, delta.Bytes())
	if err != nil {
		t.Fatalf("applyDelta: %v", err)
	}
	if string(got) != target {
		t.Fatalf("applyDelta = %q, want %q", got, target)
	}
}

func TestApplyDeltaRejectsBaseSizeMismatch(t *testing.T) {
	base := []byte("short")
	var delta bytes.Buffer
	delta.WriteByte(99) // wrong base size
	delta.WriteByte(0)
	if _, err := applyDelta(base, delta.Bytes()); err == nil {
		t.Fatal("expected base size mismatch error")
	}
}

func TestDecodePackEntryHeaderRoundTrip(t *testing.T) {
	header := packEntryHeaderBytes(packBlob, 1000)
	typ, size, n, err := decodePackEntryHeader(header)
	if err != nil {
		t.Fatalf("decodePackEntryHeader: %v", err)
	}
	if typ != packBlob || size != 1000 || n != len(header) {
		t.Fatalf("decodePackEntryHeader = (%d, %d, %d), want (%d, 1000, %d)", typ, size, n, packBlob, len(header))
	}
}
