package pastel

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	// CarrierKeySize is the size of the random pseudo key embedded in a
	// carrier script.
	CarrierKeySize = 33

	// CarrierHeaderSize is the size of the pseudo-multisig template that
	// precedes the push data in a carrier script.
	//   OP_1, push 33, 33 byte pseudo key, OP_1, OP_CHECKMULTISIG
	CarrierHeaderSize = 2 + CarrierKeySize + 2
)

var (
	// ErrNotCarrier means the script does not match the carrier template.
	ErrNotCarrier = errors.New("Not a carrier script")

	// ErrInvalidPushData means a push data header or its payload is malformed.
	ErrInvalidPushData = errors.New("Invalid push data")
)

// PushData returns the script encoding of a data push. The header depends on
// the length class of the data.
func PushData(b []byte) []byte {
	l := len(b)
	var result []byte
	switch {
	case l < int(OP_PUSHDATA1):
		result = make([]byte, 0, 1+l)
		result = append(result, byte(l))
	case l < 0x100:
		result = make([]byte, 0, 2+l)
		result = append(result, OP_PUSHDATA1, byte(l))
	case l < 0x10000:
		result = make([]byte, 0, 3+l)
		result = append(result, OP_PUSHDATA2, 0, 0)
		binary.LittleEndian.PutUint16(result[1:], uint16(l))
	default:
		result = make([]byte, 0, 5+l)
		result = append(result, OP_PUSHDATA4, 0, 0, 0, 0)
		binary.LittleEndian.PutUint32(result[1:], uint32(l))
	}
	return append(result, b...)
}

// ParsePushData decodes a data push at the front of the script. It returns
// the pushed data and the total number of script bytes consumed.
func ParsePushData(script []byte) ([]byte, int, error) {
	if len(script) == 0 {
		return nil, 0, errors.Wrap(ErrInvalidPushData, "empty")
	}

	var size, offset int
	switch op := script[0]; {
	case op < OP_PUSHDATA1:
		size = int(op)
		offset = 1
	case op == OP_PUSHDATA1:
		if len(script) < 2 {
			return nil, 0, errors.Wrap(ErrInvalidPushData, "short OP_PUSHDATA1")
		}
		size = int(script[1])
		offset = 2
	case op == OP_PUSHDATA2:
		if len(script) < 3 {
			return nil, 0, errors.Wrap(ErrInvalidPushData, "short OP_PUSHDATA2")
		}
		size = int(binary.LittleEndian.Uint16(script[1:3]))
		offset = 3
	case op == OP_PUSHDATA4:
		if len(script) < 5 {
			return nil, 0, errors.Wrap(ErrInvalidPushData, "short OP_PUSHDATA4")
		}
		size = int(binary.LittleEndian.Uint32(script[1:5]))
		offset = 5
	default:
		return nil, 0, errors.Wrapf(ErrInvalidPushData, "op code 0x%02x", script[0])
	}

	if len(script) < offset+size {
		return nil, 0, errors.Wrapf(ErrInvalidPushData, "payload %d of %d bytes",
			len(script)-offset, size)
	}

	return script[offset : offset+size], offset + size, nil
}

// P2PKHScript returns a pay to public key hash locking script for the
// provided hash. The hash is pushed with a plain length prefix, so hashes
// other than 20 bytes produce a script of the same shape.
func P2PKHScript(pubKeyHash []byte) []byte {
	script := make([]byte, 0, 4+len(pubKeyHash))
	script = append(script, OP_DUP, OP_HASH160, byte(len(pubKeyHash)))
	script = append(script, pubKeyHash...)
	return append(script, OP_EQUALVERIFY, OP_CHECKSIG)
}

// AddressLockingScript returns the P2PKH shaped locking script used for
// change outputs. The hash field is the 32 byte SHA3-256 of the address
// string itself, matching what this chain's storage wallet has always
// written.
func AddressLockingScript(address string) []byte {
	return P2PKHScript(Sha3256([]byte(address)))
}

// CarrierScript returns a carrier locking script holding body. The script is
// a 1-of-1 pseudo-multisig over a random 33 byte pseudo key followed by a
// push of the body. The output is intentionally unredeemable.
func CarrierScript(body []byte) ([]byte, error) {
	pseudoKey := make([]byte, CarrierKeySize)
	if _, err := rand.Read(pseudoKey); err != nil {
		return nil, errors.Wrap(err, "random pseudo key")
	}

	script := make([]byte, 0, CarrierHeaderSize+5+len(body))
	script = append(script, OP_1, byte(CarrierKeySize))
	script = append(script, pseudoKey...)
	script = append(script, OP_1, OP_CHECKMULTISIG)
	return append(script, PushData(body)...), nil
}

// IsCarrierScript returns true if the script matches the carrier template.
// The template is anchored at fixed offsets. The push data after the
// template is not validated here.
func IsCarrierScript(script []byte) bool {
	return len(script) > CarrierHeaderSize &&
		script[0] == OP_1 && script[1] == CarrierKeySize &&
		script[CarrierHeaderSize-2] == OP_1 &&
		script[CarrierHeaderSize-1] == OP_CHECKMULTISIG
}

// ParseCarrierScript extracts the body from a carrier locking script.
func ParseCarrierScript(script []byte) ([]byte, error) {
	if !IsCarrierScript(script) {
		return nil, ErrNotCarrier
	}

	body, consumed, err := ParsePushData(script[CarrierHeaderSize:])
	if err != nil {
		return nil, errors.Wrap(err, "carrier body")
	}
	if CarrierHeaderSize+consumed != len(script) {
		return nil, errors.Wrap(ErrInvalidPushData, "trailing script bytes")
	}

	return body, nil
}
