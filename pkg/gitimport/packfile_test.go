package gitimport

import (
	"bytes"
	"testing"

	"github.com/glyphvcs/glyph/pkg/object"
)

func TestDecodePackNonDelta(t *testing.T) {
	blobPayload := "hello world"
	data := buildPack([][2]string{{"blob", blobPayload}})

	pf, err := DecodePack(data, nil)
	if err != nil {
		t.Fatalf("DecodePack: %v", err)
	}
	id := hashRaw("blob", blobPayload)
	obj, err := pf.Get(id)
	if err != nil {
		t.Fatalf("Get(%s): %v", id, err)
	}
	if obj.Type != object.TypeBlob || string(obj.Payload) != blobPayload {
		t.Fatalf("Get = (%s, %q)", obj.Type, obj.Payload)
	}
}

func TestDecodePackRejectsBadTrailer(t *testing.T) {
	data := buildPack([][2]string{{"blob", "x"}})
	data[len(data)-1] ^= 0xff
	if _, err := DecodePack(data, nil); err == nil {
		t.Fatal("expected trailer checksum mismatch error")
	}
}

func TestDecodePackRejectsBadMagic(t *testing.T) {
	data := buildPack([][2]string{{"blob", "x"}})
	data[0] = 'X'
	if _, err := DecodePack(data, nil); err == nil {
		t.Fatal("expected bad magic error")
	}
}

func TestDecodePackResolvesOfsDelta(t *testing.T) {
	base := "hello world\n"
	target := "hello there world\n"

	var delta bytes.Buffer
	delta.WriteByte(byte(len(base)))
	delta.WriteByte(byte(len(target)))
	delta.WriteByte(0x80 | 0x01 | 0x10) // copy offset=0 size=5
	delta.WriteByte(0x00)
	delta.WriteByte(0x05)
	insert := []byte(" there")
	delta.WriteByte(byte(len(insert)))
	delta.Write(insert)
	delta.WriteByte(0x80 | 0x01 | 0x10) // copy offset=5 size=7
	delta.WriteByte(0x05)
	delta.WriteByte(0x07)

	data := buildPackWithOfsDelta(base, delta.Bytes())
	pf, err := DecodePack(data, nil)
	if err != nil {
		t.Fatalf("DecodePack: %v", err)
	}

	id := hashRaw("blob", target)
	obj, err := pf.Get(id)
	if err != nil {
		t.Fatalf("Get(%s): %v", id, err)
	}
	if obj.Type != object.TypeBlob || string(obj.Payload) != target {
		t.Fatalf("Get = (%s, %q), want blob %q", obj.Type, obj.Payload, target)
	}
}

func TestDecodePackResolvesUnknownID(t *testing.T) {
	data := buildPack([][2]string{{"blob", "x"}})
	pf, err := DecodePack(data, nil)
	if err != nil {
		t.Fatalf("DecodePack: %v", err)
	}
	if _, err := pf.Get("0000000000000000000000000000000000000000"); err == nil {
		t.Fatal("expected not-found error for unknown id")
	}
}
