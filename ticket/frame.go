package ticket

import (
	"bytes"
	"encoding/binary"

	"github.com/pastelnetwork/ticket-storage/pastel"

	"github.com/pkg/errors"
)

// frameHeaderSize is the uncompressed length field plus both digests.
const frameHeaderSize = 2 + 2*pastel.HashSize

// buildFrame serializes a payload into the on chain frame layout:
// uncompressed length (2 bytes big endian), SHA3-256 of the payload,
// SHA3-256 of the compressed payload, compressed payload.
func buildFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "%d bytes", len(payload))
	}

	compressed, err := pastel.Compress(payload)
	if err != nil {
		return nil, errors.Wrap(err, "compress")
	}

	frame := make([]byte, 0, frameHeaderSize+len(compressed))
	frame = append(frame, byte(len(payload)>>8), byte(len(payload)))
	frame = append(frame, pastel.Sha3256(payload)...)
	frame = append(frame, pastel.Sha3256(compressed)...)
	return append(frame, compressed...), nil
}

// parseFrame verifies and unpacks a frame back into the payload. Both
// digests gate the result: a mismatch on either side means the chain data
// was reassembled wrong or corrupted.
func parseFrame(frame []byte) ([]byte, error) {
	if len(frame) < frameHeaderSize {
		return nil, errors.Wrapf(ErrInvalidFrame, "%d bytes", len(frame))
	}

	// The leading length field is informational; the digests decide.
	payloadHash := frame[2 : 2+pastel.HashSize]
	compressedHash := frame[2+pastel.HashSize : frameHeaderSize]
	compressed := frame[frameHeaderSize:]

	if !bytes.Equal(pastel.Sha3256(compressed), compressedHash) {
		return nil, errors.Wrap(ErrHashMismatch, "compressed data")
	}

	payload, err := pastel.Decompress(compressed)
	if err != nil {
		return nil, errors.Wrap(err, "decompress")
	}

	if !bytes.Equal(pastel.Sha3256(payload), payloadHash) {
		return nil, errors.Wrap(ErrHashMismatch, "uncompressed data")
	}

	return payload, nil
}

// splitChunks cuts a frame into near equal slices no larger than
// MaxChunkSize. The slice count is fixed first so sizes stay balanced
// instead of one small tail.
func splitChunks(frame []byte) [][]byte {
	numChunks := (len(frame) + MaxChunkSize - 1) / MaxChunkSize
	if numChunks <= 1 {
		return [][]byte{frame}
	}
	chunkSize := (len(frame) + numChunks - 1) / numChunks

	chunks := make([][]byte, 0, numChunks)
	for offset := 0; offset < len(frame); offset += chunkSize {
		end := offset + chunkSize
		if end > len(frame) {
			end = len(frame)
		}
		chunks = append(chunks, frame[offset:end])
	}
	return chunks
}

// chunkBody prefixes a frame slice with its big endian chunk index.
func chunkBody(index int, chunk []byte) []byte {
	body := make([]byte, chunkIndexSize, chunkIndexSize+len(chunk))
	binary.BigEndian.PutUint16(body, uint16(index))
	return append(body, chunk...)
}
