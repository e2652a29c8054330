package rpcnode

import (
	"context"
	"encoding/json"

	"github.com/pastelnetwork/ticket-storage/pastel"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

// ListUnspentResult is one entry of a listunspent response. The shape is the
// standard wallet result plus the "generated" coinbase marker this chain
// adds.
type ListUnspentResult struct {
	TxID          string        `json:"txid"`
	Vout          uint32        `json:"vout"`
	Address       string        `json:"address"`
	Account       string        `json:"account"`
	ScriptPubKey  string        `json:"scriptPubKey"`
	Amount        pastel.Amount `json:"amount"`
	Confirmations int64         `json:"confirmations"`
	Spendable     bool          `json:"spendable"`
	Generated     bool          `json:"generated"`
}

// UTXO converts the RPC entry into a pastel.UTXO.
func (l ListUnspentResult) UTXO() (pastel.UTXO, error) {
	hash, err := chainhash.NewHashFromStr(l.TxID)
	if err != nil {
		return pastel.UTXO{}, errors.Wrapf(err, "txid %q", l.TxID)
	}

	return pastel.UTXO{
		Hash:          *hash,
		Index:         l.Vout,
		Address:       l.Address,
		Amount:        l.Amount,
		Spendable:     l.Spendable,
		Generated:     l.Generated,
		Confirmations: l.Confirmations,
	}, nil
}

// ListUnspent returns the wallet's unspent outputs.
func (r *RPCNode) ListUnspent(ctx context.Context) ([]ListUnspentResult, error) {
	raw, err := r.Call(ctx, "listunspent")
	if err != nil {
		return nil, err
	}

	var result []ListUnspentResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Wrap(err, "unmarshal listunspent")
	}
	return result, nil
}

// ValidateAddress returns the node's view of an address, including whether
// the wallet holds its key.
func (r *RPCNode) ValidateAddress(ctx context.Context,
	address string) (*btcjson.ValidateAddressWalletResult, error) {

	raw, err := r.Call(ctx, "validateaddress", address)
	if err != nil {
		return nil, err
	}

	result := &btcjson.ValidateAddressWalletResult{}
	if err := json.Unmarshal(raw, result); err != nil {
		return nil, errors.Wrap(err, "unmarshal validateaddress")
	}
	return result, nil
}

// GetNewAddress requests a fresh receive address from the node wallet.
func (r *RPCNode) GetNewAddress(ctx context.Context) (string, error) {
	raw, err := r.Call(ctx, "getnewaddress")
	if err != nil {
		return "", err
	}

	var result string
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", errors.Wrap(err, "unmarshal getnewaddress")
	}
	return result, nil
}

// UnlockAllUnspent releases every output lock the wallet holds. Callers run
// this before selecting inputs so stale locks from aborted operations don't
// starve the selector.
func (r *RPCNode) UnlockAllUnspent(ctx context.Context) error {
	_, err := r.Call(ctx, "lockunspent", true, []interface{}{})
	return err
}

// SignRawTransaction asks the node wallet to sign the serialized tx.
func (r *RPCNode) SignRawTransaction(ctx context.Context,
	txHex string) (*btcjson.SignRawTransactionResult, error) {

	raw, err := r.Call(ctx, "signrawtransaction", txHex)
	if err != nil {
		return nil, err
	}

	result := &btcjson.SignRawTransactionResult{}
	if err := json.Unmarshal(raw, result); err != nil {
		return nil, errors.Wrap(err, "unmarshal signrawtransaction")
	}
	return result, nil
}

// SendRawTransaction broadcasts the signed tx and returns the new txid.
// Node rejections are converted to the local error types.
func (r *RPCNode) SendRawTransaction(ctx context.Context,
	txHex string) (string, error) {

	raw, err := r.Call(ctx, "sendrawtransaction", txHex)
	if err != nil {
		return "", ConvertError(err)
	}

	var txid string
	if err := json.Unmarshal(raw, &txid); err != nil {
		return "", errors.Wrap(err, "unmarshal sendrawtransaction")
	}
	return txid, nil
}

// GetRawTransaction returns the serialized tx hex for a txid.
func (r *RPCNode) GetRawTransaction(ctx context.Context,
	txid string) (string, error) {

	raw, err := r.Call(ctx, "getrawtransaction", txid)
	if err != nil {
		return "", ConvertError(err)
	}

	var txHex string
	if err := json.Unmarshal(raw, &txHex); err != nil {
		return "", errors.Wrap(err, "unmarshal getrawtransaction")
	}
	return txHex, nil
}

// DecodeRawTransaction asks the node to decode serialized tx hex.
func (r *RPCNode) DecodeRawTransaction(ctx context.Context,
	txHex string) (*btcjson.TxRawDecodeResult, error) {

	raw, err := r.Call(ctx, "decoderawtransaction", txHex)
	if err != nil {
		return nil, err
	}

	result := &btcjson.TxRawDecodeResult{}
	if err := json.Unmarshal(raw, result); err != nil {
		return nil, errors.Wrap(err, "unmarshal decoderawtransaction")
	}
	return result, nil
}
