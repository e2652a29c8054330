package pastel

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// UTXO is an unspent transaction output owned by the node wallet.
type UTXO struct {
	Hash          chainhash.Hash `json:"hash"`
	Index         uint32         `json:"index"`
	Address       string         `json:"address"`
	Amount        Amount         `json:"amount"`
	Spendable     bool           `json:"spendable"`
	Generated     bool           `json:"generated"`
	Confirmations int64          `json:"confirmations"`
}

// ID returns a unique identifier for the output.
func (u UTXO) ID() string {
	return fmt.Sprintf("%s:%d", u.Hash.String(), u.Index)
}

func (u UTXO) Equal(other UTXO) bool {
	return u.Hash == other.Hash && u.Index == other.Index
}
