package ticket

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/pastelnetwork/ticket-storage/pastel"

	"github.com/pkg/errors"
)

// incompressible returns deterministic bytes with no structure for zstd to
// exploit.
func incompressible(size int, seed string) []byte {
	result := make([]byte, 0, size+pastel.HashSize)
	block := pastel.Sha3256([]byte(seed))
	for len(result) < size {
		result = append(result, block...)
		block = pastel.Sha3256(block)
	}
	return result[:size]
}

func Test_Frame_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "tiny", payload: []byte("hi")},
		{name: "empty", payload: nil},
		{name: "one chunk", payload: incompressible(2000, "one")},
		{name: "multi chunk", payload: incompressible(10000, "multi")},
		{name: "max zeros", payload: make([]byte, MaxPayloadSize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := buildFrame(tt.payload)
			if err != nil {
				t.Fatalf("failed to build frame : %s", err)
			}

			if got := int(binary.BigEndian.Uint16(frame)); got != len(tt.payload) {
				t.Fatalf("wrong length field : got %d, want %d", got,
					len(tt.payload))
			}
			if !bytes.Equal(frame[2:34], pastel.Sha3256(tt.payload)) {
				t.Fatalf("wrong payload digest")
			}

			payload, err := parseFrame(frame)
			if err != nil {
				t.Fatalf("failed to parse frame : %s", err)
			}
			if !bytes.Equal(payload, tt.payload) {
				t.Fatalf("round trip doesn't match")
			}
		})
	}
}

func Test_Frame_TooLarge(t *testing.T) {
	if _, err := buildFrame(make([]byte, MaxPayloadSize+1)); errors.Cause(err) != ErrPayloadTooLarge {
		t.Fatalf("expected payload too large : got %v", err)
	}
}

func Test_ParseFrame_Corruption(t *testing.T) {
	frame, err := buildFrame(incompressible(500, "corrupt"))
	if err != nil {
		t.Fatalf("failed to build frame : %s", err)
	}

	// Any flipped bit in the compressed region fails the compressed digest.
	corrupted := make([]byte, len(frame))
	copy(corrupted, frame)
	corrupted[len(corrupted)-1] ^= 0x01
	if _, err := parseFrame(corrupted); errors.Cause(err) != ErrHashMismatch {
		t.Fatalf("expected hash mismatch : got %v", err)
	}

	// A corrupted stored payload digest fails after decompression.
	copy(corrupted, frame)
	corrupted[2] ^= 0x01
	if _, err := parseFrame(corrupted); errors.Cause(err) != ErrHashMismatch {
		t.Fatalf("expected hash mismatch on payload digest : got %v", err)
	}

	if _, err := parseFrame(frame[:frameHeaderSize-1]); errors.Cause(err) != ErrInvalidFrame {
		t.Fatalf("expected invalid frame : got %v", err)
	}
}

func Test_SplitChunks(t *testing.T) {
	tests := []struct {
		size       int
		wantChunks int
	}{
		{size: 1, wantChunks: 1},
		{size: MaxChunkSize, wantChunks: 1},
		{size: MaxChunkSize + 1, wantChunks: 2},
		{size: 2 * MaxChunkSize, wantChunks: 2},
		{size: 10079, wantChunks: 4},
		{size: 3*MaxChunkSize + 1, wantChunks: 4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.size), func(t *testing.T) {
			frame := incompressible(tt.size, "split")
			chunks := splitChunks(frame)

			if len(chunks) != tt.wantChunks {
				t.Fatalf("wrong chunk count : got %d, want %d", len(chunks),
					tt.wantChunks)
			}

			var rejoined []byte
			for _, chunk := range chunks {
				if len(chunk) > MaxChunkSize {
					t.Fatalf("chunk over limit : %d bytes", len(chunk))
				}
				rejoined = append(rejoined, chunk...)
			}
			if !bytes.Equal(rejoined, frame) {
				t.Fatalf("chunks don't rejoin to the frame")
			}

			// Balanced sizes: all chunks within one byte of each other
			// except the tail.
			if len(chunks) > 1 {
				first := len(chunks[0])
				for _, chunk := range chunks[:len(chunks)-1] {
					if len(chunk) != first {
						t.Fatalf("uneven chunk sizes")
					}
				}
			}
		})
	}
}

func Test_ChunkBody(t *testing.T) {
	body := chunkBody(0x0102, []byte{0xaa, 0xbb})
	if !bytes.Equal(body, []byte{0x01, 0x02, 0xaa, 0xbb}) {
		t.Fatalf("wrong chunk body : %x", body)
	}
}

func Test_ParseIndexBody(t *testing.T) {
	txidOne := fmt.Sprintf("%064x", 1)
	txidTwo := fmt.Sprintf("%064x", 2)

	txids, isIndex := parseIndexBody([]byte(txidOne + txidTwo))
	if !isIndex {
		t.Fatalf("index body not recognized")
	}
	if len(txids) != 2 || txids[0] != txidOne || txids[1] != txidTwo {
		t.Fatalf("wrong txids : %v", txids)
	}

	// A chunk record starts with a binary index and never parses as hex.
	if _, isIndex := parseIndexBody(chunkBody(0, []byte(txidOne))); isIndex {
		t.Fatalf("chunk record recognized as index")
	}

	// Non hex characters and lengths that aren't a multiple of 64 are not
	// index records.
	if _, isIndex := parseIndexBody([]byte(txidOne[:63] + "G")); isIndex {
		t.Fatalf("non hex recognized as index")
	}
	if _, isIndex := parseIndexBody([]byte(txidOne + "ab")); isIndex {
		t.Fatalf("odd length recognized as index")
	}
}
