package pastel

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// HashSize is the length of a Sha3256 digest.
const HashSize = 32

// Sha3256 returns the SHA3-256 of the input.
//
// This is a wrapper for easy access to a chosen implementation.
//
// Note that this is the Keccak based SHA3-256, not SHA-256. All payload and
// frame digests on this chain use SHA3-256.
func Sha3256(b []byte) []byte {
	result := sha3.Sum256(b)
	return result[:]
}

// Sha3256Hex returns the SHA3-256 of the input as lower case hex.
func Sha3256Hex(b []byte) string {
	return hex.EncodeToString(Sha3256(b))
}
