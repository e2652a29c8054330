package ticket

import (
	"context"

	"github.com/pastelnetwork/ticket-storage/pastel"
	"github.com/pastelnetwork/ticket-storage/txbuilder"
	"github.com/pastelnetwork/ticket-storage/wire"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tokenized/logger"
)

// Store compresses and frames the payload, embeds it across chunk
// transactions, then records the chunk txids in an index transaction. The
// returned txid is the only handle needed to retrieve the payload.
//
// A payload whose frame fits one chunk is stored in a single transaction
// and that transaction's txid is returned directly.
//
// Chunks are submitted sequentially in index order; the index transaction
// is submitted only after every chunk txid is known. There is no rollback:
// a failure partway leaves the already submitted chunks orphaned on chain.
func (c *Client) Store(ctx context.Context, payload []byte) (string, error) {
	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)
	ctx = logger.ContextWithLogTrace(ctx, uuid.New().String())

	// Stale locks from an aborted run would starve the selector.
	if err := c.node.UnlockAllUnspent(ctx); err != nil {
		return "", errors.Wrap(err, "lockunspent")
	}

	frame, err := buildFrame(payload)
	if err != nil {
		return "", err
	}

	chunks := splitChunks(frame)
	logger.InfoWithFields(ctx, []logger.Field{
		logger.Int("payload_size", len(payload)),
		logger.Int("frame_size", len(frame)),
		logger.Int("chunks", len(chunks)),
	}, "Storing payload")

	txids := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		txid, err := c.submitChunkTx(ctx, chunkBody(i, chunk))
		if err != nil {
			return "", errors.Wrapf(err, "chunk %d", i)
		}
		txids = append(txids, txid)
	}

	indexTxID := txids[0]
	if len(txids) > 1 {
		indexBody := make([]byte, 0, len(txids)*txidHexSize)
		for _, txid := range txids {
			if len(txid) != txidHexSize {
				return "", errors.Errorf("unexpected txid length %d : %s",
					len(txid), txid)
			}
			indexBody = append(indexBody, txid...)
		}

		indexTxID, err = c.submitChunkTx(ctx, indexBody)
		if err != nil {
			return "", errors.Wrap(err, "index")
		}
	}

	if c.cache != nil {
		if err := c.cache.Write(ctx, cacheKey(indexTxID), payload); err != nil {
			logger.Warn(ctx, "Failed to cache stored payload : %s", err)
		}
	}

	logger.InfoWithFields(ctx, []logger.Field{
		logger.String("txid", indexTxID),
		logger.Int("transactions", len(chunks)+boolToInt(len(txids) > 1)),
	}, "Stored payload")

	return indexTxID, nil
}

// submitChunkTx embeds one body in a fresh carrier transaction and
// broadcasts it. The broadcast gate is held only around the send itself.
func (c *Client) submitChunkTx(ctx context.Context, body []byte) (string, error) {
	if err := c.storageTasks.Acquire(ctx, 1); err != nil {
		return "", errors.Wrap(err, "storage permit")
	}
	defer c.storageTasks.Release(1)

	script, err := pastel.CarrierScript(body)
	if err != nil {
		return "", errors.Wrap(err, "carrier script")
	}

	target := txbuilder.EstimateDataFee(len(body), c.builder.FeeRate())
	signedHex, utxos, fee, err := c.builder.FundAndSign(ctx,
		wire.NewTxOut(0, script), target)
	if err != nil {
		return "", err
	}

	if err := c.broadcasts.Acquire(ctx, 1); err != nil {
		c.builder.Release(utxos)
		return "", errors.Wrap(err, "broadcast permit")
	}
	txid, err := c.node.SendRawTransaction(ctx, signedHex)
	c.broadcasts.Release(1)
	if err != nil {
		// The wallet may still list these if the send never landed.
		c.builder.Release(utxos)
		return "", errors.Wrap(err, "sendrawtransaction")
	}

	logger.VerboseWithFields(ctx, []logger.Field{
		logger.String("txid", txid),
		logger.Int("body_size", len(body)),
		logger.String("fee", fee.String()),
	}, "Submitted carrier transaction")

	return txid, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
