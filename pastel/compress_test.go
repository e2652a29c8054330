package pastel

import (
	"bytes"
	"testing"
)

func Test_Compress_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty", payload: nil},
		{name: "short", payload: []byte("hi")},
		{name: "zeros", payload: make([]byte, 65535)},
		{name: "text", payload: bytes.Repeat([]byte("ticket storage "), 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := Compress(tt.payload)
			if err != nil {
				t.Fatalf("failed to compress : %s", err)
			}

			decompressed, err := Decompress(compressed)
			if err != nil {
				t.Fatalf("failed to decompress : %s", err)
			}

			if !bytes.Equal(decompressed, tt.payload) {
				t.Fatalf("round trip doesn't match : got %d bytes, want %d",
					len(decompressed), len(tt.payload))
			}
		})
	}
}

func Test_Compress_Ratio(t *testing.T) {
	payload := make([]byte, 65535)

	compressed, err := Compress(payload)
	if err != nil {
		t.Fatalf("failed to compress : %s", err)
	}

	if len(compressed) >= len(payload)/100 {
		t.Fatalf("zero run barely compressed : %d bytes", len(compressed))
	}
}

func Test_Decompress_Garbage(t *testing.T) {
	if _, err := Decompress([]byte("not a zstd frame")); err == nil {
		t.Fatalf("expected error decompressing garbage")
	}
}
