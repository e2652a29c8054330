package ticket

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/pastelnetwork/ticket-storage/pastel"
	"github.com/pastelnetwork/ticket-storage/rpcnode"
	"github.com/pastelnetwork/ticket-storage/wire"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

// MockNode can be used in tests. It keeps an in memory wallet and chain:
// signing stamps a fixed signature script on every input, sending records
// the tx and consumes the spent outputs.
type MockNode struct {
	utxos     map[string]rpcnode.ListUnspentResult
	txs       map[string]string
	notMine   map[string]bool
	addresses int
	unlocks   int
	sends     int

	// SendErr, when set, is returned by the next SendRawTransaction call.
	SendErr error

	// SignIncomplete makes SignRawTransaction report an unsigned result.
	SignIncomplete bool

	lock sync.Mutex
}

// NewMockNode returns a mock node with an empty wallet.
func NewMockNode() *MockNode {
	return &MockNode{
		utxos:   make(map[string]rpcnode.ListUnspentResult),
		txs:     make(map[string]string),
		notMine: make(map[string]bool),
	}
}

// FundWallet adds count spendable outputs of the given value each.
func (m *MockNode) FundWallet(count int, value pastel.Amount) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for i := 0; i < count; i++ {
		hash := chainhash.DoubleHashH([]byte(fmt.Sprintf("funding %d %d",
			len(m.utxos), i)))
		entry := rpcnode.ListUnspentResult{
			TxID:          hash.String(),
			Vout:          0,
			Address:       fmt.Sprintf("mock_funding_address_%d", len(m.utxos)),
			Amount:        value,
			Confirmations: int64(10 + len(m.utxos)),
			Spendable:     true,
		}
		m.utxos[fmt.Sprintf("%s:%d", entry.TxID, entry.Vout)] = entry
	}
}

// AddUTXO adds one wallet entry verbatim.
func (m *MockNode) AddUTXO(entry rpcnode.ListUnspentResult) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.utxos[fmt.Sprintf("%s:%d", entry.TxID, entry.Vout)] = entry
}

// MarkNotMine makes validateaddress report the address as not owned.
func (m *MockNode) MarkNotMine(address string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.notMine[address] = true
}

// SendCount returns how many transactions were broadcast.
func (m *MockNode) SendCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.sends
}

// UnlockCount returns how many lockunspent unlock-all calls were made.
func (m *MockNode) UnlockCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.unlocks
}

// TxIDs returns the txids of every broadcast transaction.
func (m *MockNode) TxIDs() []string {
	m.lock.Lock()
	defer m.lock.Unlock()

	result := make([]string, 0, len(m.txs))
	for txid := range m.txs {
		result = append(result, txid)
	}
	return result
}

// RawTx returns the recorded raw hex of a broadcast transaction.
func (m *MockNode) RawTx(txid string) (string, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	raw, exists := m.txs[txid]
	return raw, exists
}

// CorruptTx rewrites the recorded raw hex of a broadcast transaction.
func (m *MockNode) CorruptTx(txid, raw string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.txs[txid] = raw
}

func (m *MockNode) ListUnspent(ctx context.Context) ([]rpcnode.ListUnspentResult, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	result := make([]rpcnode.ListUnspentResult, 0, len(m.utxos))
	for _, entry := range m.utxos {
		result = append(result, entry)
	}
	return result, nil
}

func (m *MockNode) ValidateAddress(ctx context.Context,
	address string) (*btcjson.ValidateAddressWalletResult, error) {

	m.lock.Lock()
	defer m.lock.Unlock()

	return &btcjson.ValidateAddressWalletResult{
		IsValid: true,
		Address: address,
		IsMine:  !m.notMine[address],
	}, nil
}

func (m *MockNode) GetNewAddress(ctx context.Context) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.addresses++
	return fmt.Sprintf("mock_change_address_%d", m.addresses), nil
}

func (m *MockNode) UnlockAllUnspent(ctx context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.unlocks++
	return nil
}

// SignRawTransaction stamps a fixed size signature script on every input so
// size based fees behave like the real wallet's.
func (m *MockNode) SignRawTransaction(ctx context.Context,
	txHex string) (*btcjson.SignRawTransactionResult, error) {

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.SignIncomplete {
		return &btcjson.SignRawTransactionResult{Hex: txHex}, nil
	}

	tx, err := wire.UnmarshalHex(txHex)
	if err != nil {
		return nil, errors.Wrap(err, "parse tx")
	}

	signatureScript := make([]byte, 107)
	for _, txIn := range tx.TxIn {
		txIn.SignatureScript = signatureScript
	}

	signedHex, err := tx.MarshalHex()
	if err != nil {
		return nil, errors.Wrap(err, "serialize signed tx")
	}

	return &btcjson.SignRawTransactionResult{
		Hex:      signedHex,
		Complete: true,
	}, nil
}

func (m *MockNode) SendRawTransaction(ctx context.Context,
	txHex string) (string, error) {

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.SendErr != nil {
		err := m.SendErr
		m.SendErr = nil
		return "", err
	}

	tx, err := wire.UnmarshalHex(txHex)
	if err != nil {
		return "", errors.Wrap(err, "parse tx")
	}

	for _, txIn := range tx.TxIn {
		key := fmt.Sprintf("%s:%d", txIn.PreviousOutPoint.Hash.String(),
			txIn.PreviousOutPoint.Index)
		if _, exists := m.utxos[key]; !exists {
			return "", errors.Wrap(rpcnode.ErrMissingInputs, key)
		}
		delete(m.utxos, key)
	}

	txid := tx.TxHash().String()
	m.txs[txid] = txHex
	m.sends++
	return txid, nil
}

func (m *MockNode) GetRawTransaction(ctx context.Context,
	txid string) (string, error) {

	m.lock.Lock()
	defer m.lock.Unlock()

	raw, exists := m.txs[txid]
	if !exists {
		return "", errors.Wrap(rpcnode.ErrNotSeen, txid)
	}
	return raw, nil
}

// DecodeRawTransaction decodes locally instead of asking a node, returning
// only the fields retrieval relies on.
func (m *MockNode) DecodeRawTransaction(ctx context.Context,
	txHex string) (*btcjson.TxRawDecodeResult, error) {

	tx, err := wire.UnmarshalHex(txHex)
	if err != nil {
		return nil, errors.Wrap(err, "parse tx")
	}

	result := &btcjson.TxRawDecodeResult{
		Txid:     tx.TxHash().String(),
		Version:  tx.Version,
		Locktime: tx.LockTime,
		Vout:     make([]btcjson.Vout, 0, len(tx.TxOut)),
	}
	for i, txOut := range tx.TxOut {
		result.Vout = append(result.Vout, btcjson.Vout{
			Value: txOut.Value.PSL(),
			N:     uint32(i),
			ScriptPubKey: btcjson.ScriptPubKeyResult{
				Hex: hex.EncodeToString(txOut.LockingScript),
			},
		})
	}
	return result, nil
}
