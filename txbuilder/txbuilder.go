package txbuilder

import (
	"context"
	"sync"

	"github.com/pastelnetwork/ticket-storage/pastel"
	"github.com/pastelnetwork/ticket-storage/rpcnode"
	"github.com/pastelnetwork/ticket-storage/wire"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/pkg/errors"
	"github.com/tokenized/logger"
)

const (
	SubSystem = "TxBuilder" // For logger
)

// Node is the subset of node RPC the builder needs. Selection and signing
// both belong to the wallet; the builder only assembles bytes between them.
type Node interface {
	ListUnspent(ctx context.Context) ([]rpcnode.ListUnspentResult, error)
	ValidateAddress(ctx context.Context, address string) (*btcjson.ValidateAddressWalletResult, error)
	GetNewAddress(ctx context.Context) (string, error)
	SignRawTransaction(ctx context.Context, txHex string) (*btcjson.SignRawTransactionResult, error)
}

// Builder funds, assembles and signs data carrying transactions.
//
// Selection is serialized and selected outpoints are reserved in process, so
// concurrent builds never fund themselves with the same outputs. The wallet
// only learns an output is spent at broadcast.
type Builder struct {
	node        Node
	feePerKB    pastel.Amount
	burnAddress string
	reviewLimit int

	reserved   map[string]bool
	selectLock sync.Mutex
}

// NewBuilder returns a Builder using the given node wallet.
func NewBuilder(node Node) *Builder {
	return &Builder{
		node:        node,
		feePerKB:    DefaultFeePerKB,
		burnAddress: DefaultBurnAddress,
		reviewLimit: ReviewLimit,
		reserved:    make(map[string]bool),
	}
}

// SetFeeRate overrides the fee rate in atomic units per kilobyte.
func (b *Builder) SetFeeRate(feePerKB pastel.Amount) {
	b.feePerKB = feePerKB
}

// SetBurnAddress overrides the address excluded from selection.
func (b *Builder) SetBurnAddress(address string) {
	b.burnAddress = address
}

// FeeRate returns the fee rate in atomic units per kilobyte.
func (b *Builder) FeeRate() pastel.Amount {
	return b.feePerKB
}

func (b *Builder) isReserved(utxo pastel.UTXO) bool {
	return b.reserved[utxo.ID()]
}

func (b *Builder) reserve(utxos []pastel.UTXO) {
	for _, utxo := range utxos {
		b.reserved[utxo.ID()] = true
	}
}

// Release returns reserved outpoints to the selectable pool. Called when a
// build fails before broadcast; spent outpoints stay reserved forever since
// the wallet stops listing them.
func (b *Builder) Release(utxos []pastel.UTXO) {
	b.selectLock.Lock()
	defer b.selectLock.Unlock()
	for _, utxo := range utxos {
		delete(b.reserved, utxo.ID())
	}
}

// FundAndSign builds a signed transaction carrying dataOut, funded to the
// target value. It returns the signed hex ready for broadcast, the inputs
// consumed, and the total fee the transaction pays.
//
// The tx has exactly two outputs: the data output first, then change to a
// fresh wallet address. Change starts at inputs minus target; after the
// first signing pass the true size fee is recomputed and also taken from
// change, then the tx is signed again.
func (b *Builder) FundAndSign(ctx context.Context, dataOut *wire.TxOut,
	target pastel.Amount) (string, []pastel.UTXO, pastel.Amount, error) {

	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)

	b.selectLock.Lock()
	utxos, total, err := b.SelectInputs(ctx, target)
	if err != nil {
		b.selectLock.Unlock()
		return "", nil, 0, errors.Wrap(err, "select inputs")
	}
	b.reserve(utxos)
	b.selectLock.Unlock()

	signedHex, fee, err := b.fundAndSign(ctx, dataOut, utxos, total, target)
	if err != nil {
		b.Release(utxos)
		return "", nil, 0, err
	}

	return signedHex, utxos, fee, nil
}

func (b *Builder) fundAndSign(ctx context.Context, dataOut *wire.TxOut,
	utxos []pastel.UTXO, total, target pastel.Amount) (string, pastel.Amount, error) {

	changeAddress, err := b.node.GetNewAddress(ctx)
	if err != nil {
		return "", 0, errors.Wrap(err, "getnewaddress")
	}

	tx := wire.NewMsgTx()
	for _, utxo := range utxos {
		tx.AddTxIn(wire.NewTxIn(wire.OutPoint{
			Hash:  utxo.Hash,
			Index: utxo.Index,
		}))
	}
	tx.AddTxOut(dataOut)

	change := total - target
	changeOut := wire.NewTxOut(change, pastel.AddressLockingScript(changeAddress))
	tx.AddTxOut(changeOut)

	txHex, err := tx.MarshalHex()
	if err != nil {
		return "", 0, errors.Wrap(err, "serialize")
	}

	signed, err := b.node.SignRawTransaction(ctx, txHex)
	if err != nil {
		return "", 0, errors.Wrap(err, "signrawtransaction")
	}
	if !signed.Complete || len(signed.Errors) > 0 {
		return "", 0, errors.Wrapf(ErrSignIncomplete, "%+v", signed.Errors)
	}

	// The first pass fee comes from the true signed size.
	sizeFee := FeeForSize(len(signed.Hex)/2, b.feePerKB)
	changeOut.Value = change - sizeFee
	if changeOut.Value < 0 {
		return "", 0, errors.Wrapf(ErrInsufficientValue,
			"change %s below size fee %s", change, sizeFee)
	}

	txHex, err = tx.MarshalHex()
	if err != nil {
		return "", 0, errors.Wrap(err, "serialize final")
	}

	signed, err = b.node.SignRawTransaction(ctx, txHex)
	if err != nil {
		return "", 0, errors.Wrap(err, "sign final")
	}
	if !signed.Complete || len(signed.Errors) > 0 {
		return "", 0, errors.Wrapf(ErrSignIncomplete, "final : %+v", signed.Errors)
	}

	fee := total - dataOut.Value - changeOut.Value
	logger.VerboseWithFields(ctx, []logger.Field{
		logger.Int("inputs", len(tx.TxIn)),
		logger.String("fee", fee.String()),
		logger.String("change", changeOut.Value.String()),
	}, "Funded transaction")

	return signed.Hex, fee, nil
}
