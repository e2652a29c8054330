package txbuilder

import (
	"context"
	"sort"

	"github.com/pastelnetwork/ticket-storage/pastel"

	"github.com/pkg/errors"
	"github.com/tokenized/logger"
)

const (
	// ReviewLimit caps how many eligible outputs one selection collects.
	// Each collected output costs a validateaddress round trip, so the scan
	// stops once this many have been reviewed.
	ReviewLimit = 100

	// DefaultBurnAddress holds outputs that must never be spent from.
	DefaultBurnAddress = "44oUgmZSL997veFEQDq569wv5tsT6KXf9QY7"
)

// SelectInputs picks wallet outputs totaling at least value.
//
// Eligible outputs are spendable, not coinbase, not on the burn address,
// not reserved by a concurrent build, and confirmed owned by the wallet.
// The eligible set is ordered by ascending confirmations so fresher outputs
// are consumed first, then appended greedily until the target is reached.
func (b *Builder) SelectInputs(ctx context.Context,
	value pastel.Amount) ([]pastel.UTXO, pastel.Amount, error) {

	unspent, err := b.node.ListUnspent(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listunspent")
	}

	var eligible []pastel.UTXO
	reviewed := 0
	for _, entry := range unspent {
		if !entry.Spendable || entry.Generated || entry.Address == b.burnAddress {
			continue
		}

		utxo, err := entry.UTXO()
		if err != nil {
			logger.Warn(ctx, "Skipping malformed unspent entry : %s", err)
			continue
		}
		if b.isReserved(utxo) {
			continue
		}

		addressInfo, err := b.node.ValidateAddress(ctx, entry.Address)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "validateaddress %s", entry.Address)
		}
		if !addressInfo.IsMine {
			continue
		}

		eligible = append(eligible, utxo)
		reviewed++
		if reviewed >= b.reviewLimit {
			break
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Confirmations < eligible[j].Confirmations
	})

	var selected []pastel.UTXO
	var total pastel.Amount
	for _, utxo := range eligible {
		selected = append(selected, utxo)
		total += utxo.Amount
		if total >= value {
			return selected, total, nil
		}
	}

	return nil, 0, errors.Wrapf(ErrInsufficientValue, "%s of %s",
		total, value)
}
