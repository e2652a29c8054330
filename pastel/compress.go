package pastel

import (
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Compress returns the zstd frame for the input at the highest compression
// level with the frame content size and checksum flags set.
func Compress(b []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithEncoderCRC(true))
	if err != nil {
		return nil, errors.Wrap(err, "create encoder")
	}

	result := encoder.EncodeAll(b, make([]byte, 0, len(b)/2+64))
	if err := encoder.Close(); err != nil {
		return nil, errors.Wrap(err, "close encoder")
	}

	return result, nil
}

// Decompress consumes a zstd frame and returns the original data. The frame
// checksum is verified.
func Decompress(b []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create decoder")
	}
	defer decoder.Close()

	result, err := decoder.DecodeAll(b, nil)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	return result, nil
}
