package txbuilder

import (
	"github.com/pkg/errors"
)

var (
	// ErrInsufficientValue means that there is not enough coin input to
	// complete the tx.
	ErrInsufficientValue = errors.New("Insufficient Value")

	// ErrSignIncomplete means the node wallet did not fully sign the tx or
	// reported signing errors.
	ErrSignIncomplete = errors.New("Sign Incomplete")
)
