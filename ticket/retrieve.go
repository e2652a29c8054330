package ticket

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/pastelnetwork/ticket-storage/pastel"
	"github.com/pastelnetwork/ticket-storage/storage"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tokenized/logger"
	"golang.org/x/sync/errgroup"
)

// Retrieve fetches a stored payload by its index txid, reassembles the
// frame and verifies both digests before returning the payload.
//
// The txid of a single chunk transaction works too; the carrier body tells
// the two apart. Chunk fetch order doesn't matter, the embedded chunk
// indexes restore it.
func (c *Client) Retrieve(ctx context.Context, txid string) ([]byte, error) {
	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)
	ctx = logger.ContextWithLogTrace(ctx, uuid.New().String())

	if c.cache != nil {
		payload, err := c.cache.Read(ctx, cacheKey(txid))
		if err == nil {
			logger.VerboseWithFields(ctx, []logger.Field{
				logger.String("txid", txid),
			}, "Retrieved payload from cache")
			return payload, nil
		}
		if errors.Cause(err) != storage.ErrNotFound {
			logger.Warn(ctx, "Payload cache read failed : %s", err)
		}
	}

	body, err := c.carrierBody(ctx, txid)
	if err != nil {
		return nil, err
	}

	frame, err := c.reassemble(ctx, body)
	if err != nil {
		return nil, err
	}

	payload, err := parseFrame(frame)
	if err != nil {
		logger.Error(ctx, "Payload verification failed %s : %s", txid, err)
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Write(ctx, cacheKey(txid), payload); err != nil {
			logger.Warn(ctx, "Failed to cache retrieved payload : %s", err)
		}
	}

	logger.InfoWithFields(ctx, []logger.Field{
		logger.String("txid", txid),
		logger.Int("payload_size", len(payload)),
	}, "Retrieved payload")

	return payload, nil
}

// reassemble turns a carrier body into a frame. An index body is fanned
// out into parallel chunk fetches; anything else is a single chunk record.
func (c *Client) reassemble(ctx context.Context, body []byte) ([]byte, error) {
	txids, isIndex := parseIndexBody(body)
	if !isIndex {
		if len(body) < chunkIndexSize {
			return nil, errors.Wrapf(ErrInvalidFrame, "chunk record %d bytes",
				len(body))
		}
		return body[chunkIndexSize:], nil
	}

	parts := make([][]byte, len(txids))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, chunkTxID := range txids {
		i, chunkTxID := i, chunkTxID
		group.Go(func() error {
			part, err := c.carrierBody(groupCtx, chunkTxID)
			if err != nil {
				return errors.Wrapf(err, "chunk %s", chunkTxID)
			}
			parts[i] = part
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	for _, part := range parts {
		if len(part) < chunkIndexSize {
			return nil, errors.Wrap(ErrInvalidFrame, "short chunk")
		}
	}
	sort.SliceStable(parts, func(i, j int) bool {
		return binary.BigEndian.Uint16(parts[i]) < binary.BigEndian.Uint16(parts[j])
	})

	// Every index 0..n-1 exactly once, or the frame can't be trusted.
	frame := make([]byte, 0, len(parts)*MaxChunkSize)
	for i, part := range parts {
		if int(binary.BigEndian.Uint16(part)) != i {
			return nil, errors.Wrapf(ErrChunkIndexes, "%d at position %d",
				binary.BigEndian.Uint16(part), i)
		}
		frame = append(frame, part[chunkIndexSize:]...)
	}

	return frame, nil
}

// carrierBody fetches a transaction and extracts the body of its first
// carrier output. Raw tx hex is cached per client; stored transactions
// never change.
func (c *Client) carrierBody(ctx context.Context, txid string) ([]byte, error) {
	c.txLock.Lock()
	raw, cached := c.txCache[txid]
	c.txLock.Unlock()

	if !cached {
		if err := c.retrievalTasks.Acquire(ctx, 1); err != nil {
			return nil, errors.Wrap(err, "retrieval permit")
		}
		var err error
		raw, err = c.node.GetRawTransaction(ctx, txid)
		c.retrievalTasks.Release(1)
		if err != nil {
			return nil, errors.Wrapf(err, "getrawtransaction %s", txid)
		}

		c.txLock.Lock()
		c.txCache[txid] = raw
		c.txLock.Unlock()
	}

	decoded, err := c.node.DecodeRawTransaction(ctx, raw)
	if err != nil {
		return nil, errors.Wrapf(err, "decoderawtransaction %s", txid)
	}

	for _, out := range decoded.Vout {
		script, err := hex.DecodeString(out.ScriptPubKey.Hex)
		if err != nil {
			continue
		}

		body, err := pastel.ParseCarrierScript(script)
		if err != nil {
			// Not a carrier output, or a malformed push. Try the next one.
			continue
		}
		return body, nil
	}

	return nil, errors.Wrap(ErrNoCarrierOutput, txid)
}

// parseIndexBody reports whether a carrier body is an index record and
// splits it into txids. Index records are pure lowercase hex with a whole
// number of 64 character txids; chunk records always start with a binary
// chunk counter so they can't satisfy that.
func parseIndexBody(body []byte) ([]string, bool) {
	if len(body) < txidHexSize || len(body)%txidHexSize != 0 {
		return nil, false
	}

	for _, b := range body {
		if (b < '0' || b > '9') && (b < 'a' || b > 'f') {
			return nil, false
		}
	}

	txids := make([]string, 0, len(body)/txidHexSize)
	for offset := 0; offset < len(body); offset += txidHexSize {
		txids = append(txids, string(body[offset:offset+txidHexSize]))
	}
	return txids, true
}
