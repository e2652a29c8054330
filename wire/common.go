// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// ErrVarIntTooLarge means a value does not fit in the supported variable
// length integer encodings. Transactions in this system never carry counts
// or scripts past 0xffff, so the 5 and 9 byte encodings are not supported.
var ErrVarIntTooLarge = errors.New("Var int too large")

// WriteVarInt serializes val to w using a variable number of bytes depending
// on its value.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		_, err := w.Write([]byte{byte(val)})
		return err
	}

	if val <= 0xffff {
		buf := make([]byte, 3)
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(val))
		_, err := w.Write(buf)
		return err
	}

	return errors.Wrapf(ErrVarIntTooLarge, "%d", val)
}

// ReadVarInt reads a variable length integer from r.
func ReadVarInt(r io.Reader) (uint64, error) {
	var discriminant [1]byte
	if _, err := io.ReadFull(r, discriminant[:]); err != nil {
		return 0, err
	}

	switch discriminant[0] {
	case 0xfd:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(buf[:])), nil

	case 0xfe, 0xff:
		return 0, errors.Wrapf(ErrVarIntTooLarge, "discriminant 0x%02x",
			discriminant[0])

	default:
		return uint64(discriminant[0]), nil
	}
}

// VarIntSerializeSize returns the number of bytes it takes to serialize val.
func VarIntSerializeSize(val uint64) int {
	if val < 0xfd {
		return 1
	}
	return 3
}
