// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/pastelnetwork/ticket-storage/pastel"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

const (
	// TxVersion is the transaction version written by this package. Only the
	// transparent fields of this chain's transaction format are used, so
	// version 1 serialization applies.
	TxVersion = 1

	// MaxTxInSequenceNum is the maximum sequence number the sequence field
	// of a transaction input can be. Inputs are always serialized with this
	// value since lock times are unused.
	MaxTxInSequenceNum uint32 = 0xffffffff

	// baseTxSize is the serialized size of version plus lock time.
	baseTxSize = 8
)

// OutPoint defines a data type that is used to track previous transaction
// outputs.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// TxIn defines a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// NewTxIn returns a new transaction input for the outpoint with an empty
// signature script. The node wallet fills the script when signing.
func NewTxIn(prevOut OutPoint) *TxIn {
	return &TxIn{
		PreviousOutPoint: prevOut,
		Sequence:         MaxTxInSequenceNum,
	}
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction input.
func (t *TxIn) SerializeSize() int {
	return 40 + VarIntSerializeSize(uint64(len(t.SignatureScript))) +
		len(t.SignatureScript)
}

// TxOut defines a transaction output. Value is in atomic units.
type TxOut struct {
	Value         pastel.Amount
	LockingScript []byte
}

// NewTxOut returns a new transaction output.
func NewTxOut(value pastel.Amount, lockingScript []byte) *TxOut {
	return &TxOut{
		Value:         value,
		LockingScript: lockingScript,
	}
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction output.
func (t *TxOut) SerializeSize() int {
	return 8 + VarIntSerializeSize(uint64(len(t.LockingScript))) +
		len(t.LockingScript)
}

// MsgTx holds the transparent fields of a transaction.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// NewMsgTx returns an empty transaction with version 1 and no lock time.
func NewMsgTx() *MsgTx {
	return &MsgTx{Version: TxVersion}
}

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// TxHash generates the hash for the transaction.
func (msg *MsgTx) TxHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, msg.SerializeSize()))
	_ = msg.Serialize(buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction.
func (msg *MsgTx) SerializeSize() int {
	result := baseTxSize + VarIntSerializeSize(uint64(len(msg.TxIn))) +
		VarIntSerializeSize(uint64(len(msg.TxOut)))

	for _, txIn := range msg.TxIn {
		result += txIn.SerializeSize()
	}
	for _, txOut := range msg.TxOut {
		result += txOut.SerializeSize()
	}

	return result
}

// Serialize writes the transaction to w.
//
// The layout is version, input count, inputs, output count, outputs, lock
// time. Input previous output hashes are written in internal byte order,
// which is the reverse of the displayed txid. Output values are signed 64
// bit atomic unit counts.
func (msg *MsgTx) Serialize(w io.Writer) error {
	var scratch [8]byte

	binary.LittleEndian.PutUint32(scratch[:4], uint32(msg.Version))
	if _, err := w.Write(scratch[:4]); err != nil {
		return errors.Wrap(err, "version")
	}

	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return errors.Wrap(err, "input count")
	}
	for i, txIn := range msg.TxIn {
		if _, err := w.Write(txIn.PreviousOutPoint.Hash[:]); err != nil {
			return errors.Wrapf(err, "input %d hash", i)
		}
		binary.LittleEndian.PutUint32(scratch[:4], txIn.PreviousOutPoint.Index)
		if _, err := w.Write(scratch[:4]); err != nil {
			return errors.Wrapf(err, "input %d index", i)
		}
		if err := WriteVarInt(w, uint64(len(txIn.SignatureScript))); err != nil {
			return errors.Wrapf(err, "input %d script size", i)
		}
		if _, err := w.Write(txIn.SignatureScript); err != nil {
			return errors.Wrapf(err, "input %d script", i)
		}
		binary.LittleEndian.PutUint32(scratch[:4], txIn.Sequence)
		if _, err := w.Write(scratch[:4]); err != nil {
			return errors.Wrapf(err, "input %d sequence", i)
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return errors.Wrap(err, "output count")
	}
	for i, txOut := range msg.TxOut {
		binary.LittleEndian.PutUint64(scratch[:], uint64(txOut.Value))
		if _, err := w.Write(scratch[:]); err != nil {
			return errors.Wrapf(err, "output %d value", i)
		}
		if err := WriteVarInt(w, uint64(len(txOut.LockingScript))); err != nil {
			return errors.Wrapf(err, "output %d script size", i)
		}
		if _, err := w.Write(txOut.LockingScript); err != nil {
			return errors.Wrapf(err, "output %d script", i)
		}
	}

	binary.LittleEndian.PutUint32(scratch[:4], msg.LockTime)
	if _, err := w.Write(scratch[:4]); err != nil {
		return errors.Wrap(err, "lock time")
	}

	return nil
}

// Deserialize reads a transaction from r.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	var scratch [8]byte

	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return errors.Wrap(err, "version")
	}
	msg.Version = int32(binary.LittleEndian.Uint32(scratch[:4]))

	inputCount, err := ReadVarInt(r)
	if err != nil {
		return errors.Wrap(err, "input count")
	}
	msg.TxIn = make([]*TxIn, 0, inputCount)
	for i := uint64(0); i < inputCount; i++ {
		txIn := &TxIn{}
		if _, err := io.ReadFull(r, txIn.PreviousOutPoint.Hash[:]); err != nil {
			return errors.Wrapf(err, "input %d hash", i)
		}
		if _, err := io.ReadFull(r, scratch[:4]); err != nil {
			return errors.Wrapf(err, "input %d index", i)
		}
		txIn.PreviousOutPoint.Index = binary.LittleEndian.Uint32(scratch[:4])

		scriptSize, err := ReadVarInt(r)
		if err != nil {
			return errors.Wrapf(err, "input %d script size", i)
		}
		txIn.SignatureScript = make([]byte, scriptSize)
		if _, err := io.ReadFull(r, txIn.SignatureScript); err != nil {
			return errors.Wrapf(err, "input %d script", i)
		}

		if _, err := io.ReadFull(r, scratch[:4]); err != nil {
			return errors.Wrapf(err, "input %d sequence", i)
		}
		txIn.Sequence = binary.LittleEndian.Uint32(scratch[:4])
		msg.TxIn = append(msg.TxIn, txIn)
	}

	outputCount, err := ReadVarInt(r)
	if err != nil {
		return errors.Wrap(err, "output count")
	}
	msg.TxOut = make([]*TxOut, 0, outputCount)
	for i := uint64(0); i < outputCount; i++ {
		txOut := &TxOut{}
		if _, err := io.ReadFull(r, scratch[:]); err != nil {
			return errors.Wrapf(err, "output %d value", i)
		}
		txOut.Value = pastel.Amount(binary.LittleEndian.Uint64(scratch[:]))

		scriptSize, err := ReadVarInt(r)
		if err != nil {
			return errors.Wrapf(err, "output %d script size", i)
		}
		txOut.LockingScript = make([]byte, scriptSize)
		if _, err := io.ReadFull(r, txOut.LockingScript); err != nil {
			return errors.Wrapf(err, "output %d script", i)
		}
		msg.TxOut = append(msg.TxOut, txOut)
	}

	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return errors.Wrap(err, "lock time")
	}
	msg.LockTime = binary.LittleEndian.Uint32(scratch[:4])

	return nil
}

// MarshalHex returns the serialized transaction as a hex string, the form
// the node RPC accepts.
func (msg *MsgTx) MarshalHex() (string, error) {
	buf := bytes.NewBuffer(make([]byte, 0, msg.SerializeSize()))
	if err := msg.Serialize(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

// UnmarshalHex parses a serialized transaction from a hex string.
func UnmarshalHex(s string) (*MsgTx, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "decode hex")
	}

	msg := &MsgTx{}
	if err := msg.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return msg, nil
}
