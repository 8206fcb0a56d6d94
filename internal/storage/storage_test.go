package storage

import "testing"

func TestVectorEncoding(t *testing.T) {
	in := []float32{0, 1, -1.5, 3.25e-7}
	b := EncodeVector(in)
	if len(b) != 16 {
		t.Fatalf("EncodeVector() len = %d, want 16", len(b))
	}
	// 1.0 is 0x3f800000 little-endian.
	if b[4] != 0x00 || b[5] != 0x00 || b[6] != 0x80 || b[7] != 0x3f {
		t.Errorf("EncodeVector() not little-endian: % x", b[4:8])
	}

	out, err := DecodeVector(b)
	if err != nil {
		t.Fatalf("DecodeVector() error = %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("DecodeVector()[%d] = %v, want %v", i, out[i], in[i])
		}
	}

	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("DecodeVector(3 bytes) error = nil, want error")
	}
}
