package rpcnode

import (
	"github.com/btcsuite/btcd/btcjson"
	"github.com/pkg/errors"
)

var (
	// ErrNotSeen means the tx is not known to the node and can't be
	// returned. This can happen if the tx was just sent and hasn't
	// propagated yet, or if it didn't propagate at all.
	ErrNotSeen = errors.New("No such mempool or blockchain transaction")

	// ErrMissingInputs means that an input's outpoint has already been spent
	// (double spend) or is not known yet.
	ErrMissingInputs = errors.New("Inputs not in UTXO set")

	// ErrInsufficientFunds means the node rejected the transaction because
	// its inputs do not cover the outputs plus fee.
	ErrInsufficientFunds = errors.New("Insufficient funds")

	// ErrMaxRetries means every attempt at a call failed at the transport
	// level.
	ErrMaxRetries = errors.New("Max retries exceeded")
)

// ErrRPCMissingResult is returned when a response carries neither a result
// nor an error.
var ErrRPCMissingResult = &btcjson.RPCError{
	Code:    -343,
	Message: "missing JSON-RPC result",
}

// ConvertError determines if the error is a known RPC type and converts it
// to the local error type, keeping the original text.
func ConvertError(err error) error {
	rpcErr, ok := errors.Cause(err).(*btcjson.RPCError)
	if !ok {
		return err
	}

	switch rpcErr.Code {
	case btcjson.ErrRPCInvalidAddressOrKey: // -5
		return errors.Wrap(ErrNotSeen, err.Error())
	case btcjson.ErrRPCVerify: // -25
		return errors.Wrap(ErrMissingInputs, err.Error())
	case btcjson.ErrRPCVerifyRejected: // -26
		return errors.Wrap(ErrInsufficientFunds, err.Error())
	}

	return err
}

// IsRecoverableSendError returns true for the node errors that mean "not
// this attempt" on broadcast rather than a hard fault.
func IsRecoverableSendError(err error) bool {
	cause := errors.Cause(err)
	return cause == ErrMissingInputs || cause == ErrInsufficientFunds
}
