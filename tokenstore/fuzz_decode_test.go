package tokenstore

import (
	"errors"
	"testing"
)

// FuzzPairDecode exercises the binary pair decoder with arbitrary inputs.
// Goal: no panics; anything that decodes must re-encode.
func FuzzPairDecode(f *testing.F) {
	encoded, err := Encode(testPair())
	if err == nil {
		f.Add(encoded)
	}
	if v1, err := encodeV1(testPair()); err == nil {
		f.Add(v1)
	}

	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{pairFormatVersionCurrent})
	f.Add([]byte{255, 255, 255})

	if len(encoded) > 10 {
		f.Add(encoded[:10])
	}
	if len(encoded) > 30 {
		f.Add(encoded[:30])
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		p, err := Decode(data)
		if err != nil {
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("decode error does not wrap ErrCorrupt: %v", err)
			}
			return
		}
		if _, err := Encode(p); err != nil {
			t.Fatalf("decoded pair does not re-encode: %v", err)
		}
	})
}
