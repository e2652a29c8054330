package ticket

import (
	"bytes"
	"context"
	"testing"

	"github.com/pastelnetwork/ticket-storage/pastel"
	"github.com/pastelnetwork/ticket-storage/storage"
	"github.com/pastelnetwork/ticket-storage/txbuilder"
	"github.com/pastelnetwork/ticket-storage/wire"

	"github.com/pkg/errors"
)

func testClient(node *MockNode) *Client {
	return NewClient(node, txbuilder.NewBuilder(node), DefaultConfig())
}

func Test_StoreRetrieve_Tiny(t *testing.T) {
	ctx := context.Background()
	node := NewMockNode()
	node.FundWallet(5, pastel.Amount(pastel.Coin))
	client := testClient(node)

	payload := []byte("hi")
	txid, err := client.Store(ctx, payload)
	if err != nil {
		t.Fatalf("failed to store : %s", err)
	}

	// One chunk fits the whole frame: a single transaction, no index.
	if node.SendCount() != 1 {
		t.Fatalf("wrong tx count : %d", node.SendCount())
	}
	if node.UnlockCount() != 1 {
		t.Fatalf("stale locks not released")
	}

	retrieved, err := client.Retrieve(ctx, txid)
	if err != nil {
		t.Fatalf("failed to retrieve : %s", err)
	}
	if !bytes.Equal(retrieved, payload) {
		t.Fatalf("round trip doesn't match : got %q", retrieved)
	}
}

func Test_StoreRetrieve_MultiChunk(t *testing.T) {
	ctx := context.Background()
	node := NewMockNode()
	node.FundWallet(20, pastel.Amount(pastel.Coin))
	client := testClient(node)

	payload := incompressible(10000, "multi chunk payload")

	frame, err := buildFrame(payload)
	if err != nil {
		t.Fatalf("failed to build frame : %s", err)
	}
	chunks := splitChunks(frame)
	if len(chunks) < 2 {
		t.Fatalf("payload not multi chunk : %d chunks", len(chunks))
	}

	txid, err := client.Store(ctx, payload)
	if err != nil {
		t.Fatalf("failed to store : %s", err)
	}

	// One tx per chunk plus the index tx.
	if node.SendCount() != len(chunks)+1 {
		t.Fatalf("wrong tx count : got %d, want %d", node.SendCount(),
			len(chunks)+1)
	}

	// Retrieval through a fresh client so nothing is cached.
	fresh := testClient(node)
	retrieved, err := fresh.Retrieve(ctx, txid)
	if err != nil {
		t.Fatalf("failed to retrieve : %s", err)
	}
	if !bytes.Equal(retrieved, payload) {
		t.Fatalf("round trip doesn't match")
	}
}

func Test_StoreRetrieve_MaxSizeZeros(t *testing.T) {
	ctx := context.Background()
	node := NewMockNode()
	node.FundWallet(5, pastel.Amount(pastel.Coin))
	client := testClient(node)

	payload := make([]byte, MaxPayloadSize)
	txid, err := client.Store(ctx, payload)
	if err != nil {
		t.Fatalf("failed to store : %s", err)
	}

	// A zero run compresses to a handful of bytes: one transaction.
	if node.SendCount() != 1 {
		t.Fatalf("wrong tx count : %d", node.SendCount())
	}

	retrieved, err := client.Retrieve(ctx, txid)
	if err != nil {
		t.Fatalf("failed to retrieve : %s", err)
	}
	if !bytes.Equal(retrieved, payload) {
		t.Fatalf("round trip doesn't match")
	}
}

func Test_Store_PayloadTooLarge(t *testing.T) {
	ctx := context.Background()
	node := NewMockNode()
	node.FundWallet(5, pastel.Amount(pastel.Coin))
	client := testClient(node)

	_, err := client.Store(ctx, make([]byte, MaxPayloadSize+1))
	if errors.Cause(err) != ErrPayloadTooLarge {
		t.Fatalf("expected payload too large : got %v", err)
	}
	if node.SendCount() != 0 {
		t.Fatalf("transactions emitted for oversized payload")
	}
}

func Test_Store_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	node := NewMockNode()
	// A dust wallet far below the selection estimate.
	node.FundWallet(1, 5)
	client := testClient(node)

	_, err := client.Store(ctx, incompressible(5000, "unfunded"))
	if errors.Cause(err) != txbuilder.ErrInsufficientValue {
		t.Fatalf("expected insufficient value : got %v", err)
	}

	// Nothing was broadcast.
	if node.SendCount() != 0 {
		t.Fatalf("transactions emitted without funds : %d", node.SendCount())
	}
}

func Test_Store_CarrierSentinel(t *testing.T) {
	ctx := context.Background()
	node := NewMockNode()
	node.FundWallet(20, pastel.Amount(pastel.Coin))
	client := testClient(node)

	if _, err := client.Store(ctx, incompressible(10000, "sentinel")); err != nil {
		t.Fatalf("failed to store : %s", err)
	}

	for _, txid := range node.TxIDs() {
		raw, _ := node.RawTx(txid)
		tx, err := wire.UnmarshalHex(raw)
		if err != nil {
			t.Fatalf("failed to parse stored tx : %s", err)
		}

		// Exactly one data output and one trailing change output.
		if len(tx.TxOut) != 2 {
			t.Fatalf("wrong output count : %d", len(tx.TxOut))
		}

		script := tx.TxOut[0].LockingScript
		if tx.TxOut[0].Value != 0 {
			t.Fatalf("carrier output carries value : %d", tx.TxOut[0].Value)
		}
		if script[0] != pastel.OP_1 || script[1] != pastel.CarrierKeySize {
			t.Fatalf("wrong carrier prefix : 0x%02x 0x%02x", script[0], script[1])
		}
		if script[35] != pastel.OP_1 || script[36] != pastel.OP_CHECKMULTISIG {
			t.Fatalf("wrong carrier template tail")
		}

		if tx.TxOut[1].Value < 0 {
			t.Fatalf("negative change broadcast : %d", tx.TxOut[1].Value)
		}
	}
}

func Test_Retrieve_CorruptedChunk(t *testing.T) {
	ctx := context.Background()
	node := NewMockNode()
	node.FundWallet(20, pastel.Amount(pastel.Coin))
	client := testClient(node)

	indexTxID, err := client.Store(ctx, incompressible(10000, "to corrupt"))
	if err != nil {
		t.Fatalf("failed to store : %s", err)
	}

	// Flip one bit inside the compressed region of the highest indexed
	// chunk. Its slice is the frame tail, which is always compressed data.
	var highest uint16
	var target string
	for _, txid := range node.TxIDs() {
		if txid == indexTxID {
			continue
		}
		raw, _ := node.RawTx(txid)
		tx, err := wire.UnmarshalHex(raw)
		if err != nil {
			t.Fatalf("failed to parse stored tx : %s", err)
		}
		body, err := pastel.ParseCarrierScript(tx.TxOut[0].LockingScript)
		if err != nil {
			t.Fatalf("failed to parse carrier : %s", err)
		}
		index := uint16(body[0])<<8 | uint16(body[1])
		if target == "" || index >= highest {
			highest = index
			target = txid
		}
	}

	raw, _ := node.RawTx(target)
	tx, _ := wire.UnmarshalHex(raw)
	script := tx.TxOut[0].LockingScript
	script[len(script)-1] ^= 0x01
	rawHex, err := tx.MarshalHex()
	if err != nil {
		t.Fatalf("failed to reserialize : %s", err)
	}
	node.CorruptTx(target, rawHex)

	fresh := testClient(node)
	if _, err := fresh.Retrieve(ctx, indexTxID); errors.Cause(err) != ErrHashMismatch {
		t.Fatalf("expected hash mismatch : got %v", err)
	}
}

func Test_Retrieve_UnknownTxID(t *testing.T) {
	ctx := context.Background()
	node := NewMockNode()
	client := testClient(node)

	if _, err := client.Retrieve(ctx, "0000000000000000000000000000000000000000000000000000000000000000"); err == nil {
		t.Fatalf("expected error for unknown txid")
	}
}

func Test_Retrieve_ChunkTxIDDirectly(t *testing.T) {
	ctx := context.Background()
	node := NewMockNode()
	node.FundWallet(5, pastel.Amount(pastel.Coin))
	client := testClient(node)

	payload := []byte("single chunk, retrieved by its own txid")
	txid, err := client.Store(ctx, payload)
	if err != nil {
		t.Fatalf("failed to store : %s", err)
	}

	retrieved, err := testClient(node).Retrieve(ctx, txid)
	if err != nil {
		t.Fatalf("failed to retrieve : %s", err)
	}
	if !bytes.Equal(retrieved, payload) {
		t.Fatalf("round trip doesn't match")
	}
}

func Test_Retrieve_PayloadCache(t *testing.T) {
	ctx := context.Background()
	node := NewMockNode()
	node.FundWallet(20, pastel.Amount(pastel.Coin))

	client := testClient(node)
	cache := storage.NewMockStorage()
	client.SetCache(cache)

	payload := incompressible(8000, "cached payload")
	txid, err := client.Store(ctx, payload)
	if err != nil {
		t.Fatalf("failed to store : %s", err)
	}

	// Wipe the chain. The cache alone must serve the payload.
	for _, storedTxID := range node.TxIDs() {
		node.CorruptTx(storedTxID, "")
	}

	fresh := testClient(node)
	fresh.SetCache(cache)
	retrieved, err := fresh.Retrieve(ctx, txid)
	if err != nil {
		t.Fatalf("failed to retrieve from cache : %s", err)
	}
	if !bytes.Equal(retrieved, payload) {
		t.Fatalf("cached payload doesn't match")
	}
}

func Test_Store_SendError(t *testing.T) {
	ctx := context.Background()
	node := NewMockNode()
	node.FundWallet(5, pastel.Amount(pastel.Coin))
	node.SendErr = errors.New("connection refused")
	client := testClient(node)

	if _, err := client.Store(ctx, []byte("will not land")); err == nil {
		t.Fatalf("expected send error")
	}
	if node.SendCount() != 0 {
		t.Fatalf("failed send counted as broadcast")
	}
}
