package object

import "fmt"

// EncodeEnvelope wraps content in the canonical "<type> <len>\0<content>"
// header every object hashes and every on-disk/pack payload stores, so a
// decoder can recover (type, content) and re-derive the identity hash from
// the same bytes it read.
func EncodeEnvelope(t ObjectType, content []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", t, len(content))
	out := make([]byte, 0, len(header)+len(content))
	out = append(out, header...)
	out = append(out, content...)
	return out
}

// DecodeEnvelope reverses EncodeEnvelope, validating the declared length
// against the actual payload.
func DecodeEnvelope(data []byte) (ObjectType, []byte, error) {
	for i, b := range data {
		if b == 0 {
			header := string(data[:i])
			var typ string
			var size int
			if _, err := fmt.Sscanf(header, "%s %d", &typ, &size); err != nil {
				return "", nil, fmt.Errorf("malformed envelope header %q: %w", header, err)
			}
			content := data[i+1:]
			if len(content) != size {
				return "", nil, fmt.Errorf("envelope size mismatch: header says %d, got %d", size, len(content))
			}
			return ObjectType(typ), content, nil
		}
	}
	return "", nil, fmt.Errorf("malformed envelope: no NUL separator")
}
