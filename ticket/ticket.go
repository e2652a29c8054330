package ticket

import (
	"context"
	"sync"

	"github.com/pastelnetwork/ticket-storage/storage"
	"github.com/pastelnetwork/ticket-storage/txbuilder"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

const (
	// SubSystem is used by the logger package
	SubSystem = "Ticket"

	// MaxChunkSize is the largest frame slice embedded in one transaction.
	// The chain relays carrier scripts of roughly triple this; 3000 leaves
	// comfortable headroom.
	MaxChunkSize = 3000

	// MaxPayloadSize is bounded by the 2 byte length field in the frame.
	MaxPayloadSize = 0xffff

	// DefaultStorageTasks caps concurrent chunk submissions.
	DefaultStorageTasks = 20

	// DefaultRetrievalTasks caps concurrent chunk fetches.
	DefaultRetrievalTasks = 20

	// DefaultBroadcasts caps concurrent sendrawtransaction calls.
	DefaultBroadcasts = 5

	// txidHexSize is the length of a hex encoded txid in an index record.
	txidHexSize = 64

	// chunkIndexSize is the big endian chunk counter prefixed to each slice.
	chunkIndexSize = 2
)

var (
	// ErrPayloadTooLarge means the payload exceeds the frame length field.
	ErrPayloadTooLarge = errors.New("Payload too large")

	// ErrHashMismatch means a frame digest did not match its data on
	// retrieval. The payload cannot be trusted.
	ErrHashMismatch = errors.New("Hash mismatch")

	// ErrInvalidFrame means a recovered frame is too short to hold its
	// header.
	ErrInvalidFrame = errors.New("Invalid frame")

	// ErrNoCarrierOutput means no output of the transaction matches the
	// carrier template.
	ErrNoCarrierOutput = errors.New("No carrier output")

	// ErrChunkIndexes means the recovered chunk indexes are not a
	// contiguous zero based set.
	ErrChunkIndexes = errors.New("Invalid chunk indexes")
)

// Node is the node RPC surface the ticket client consumes. *rpcnode.RPCNode
// implements it.
type Node interface {
	txbuilder.Node

	UnlockAllUnspent(ctx context.Context) error
	SendRawTransaction(ctx context.Context, txHex string) (string, error)
	GetRawTransaction(ctx context.Context, txid string) (string, error)
	DecodeRawTransaction(ctx context.Context, txHex string) (*btcjson.TxRawDecodeResult, error)
}

// Config holds the concurrency caps for one client.
type Config struct {
	MaxStorageTasks   int `default:"20" envconfig:"TICKET_MAX_STORAGE_TASKS" json:"max_storage_tasks"`
	MaxRetrievalTasks int `default:"20" envconfig:"TICKET_MAX_RETRIEVAL_TASKS" json:"max_retrieval_tasks"`
	MaxBroadcasts     int `default:"5" envconfig:"TICKET_MAX_BROADCASTS" json:"max_broadcasts"`
}

// DefaultConfig returns the default concurrency caps.
func DefaultConfig() Config {
	return Config{
		MaxStorageTasks:   DefaultStorageTasks,
		MaxRetrievalTasks: DefaultRetrievalTasks,
		MaxBroadcasts:     DefaultBroadcasts,
	}
}

// Client stores payloads in carrier outputs on chain and retrieves them by
// index txid.
type Client struct {
	node    Node
	builder *txbuilder.Builder

	// cache, when set, holds retrieved payloads keyed by index txid.
	// Stored payloads are immutable so entries never invalidate.
	cache storage.ReadWriter

	storageTasks   *semaphore.Weighted
	retrievalTasks *semaphore.Weighted
	broadcasts     *semaphore.Weighted

	// txCache holds raw tx hex fetched during a retrieve so an index and
	// its chunks are not fetched twice.
	txCache map[string]string
	txLock  sync.Mutex
}

// NewClient returns a ticket client over the given node.
func NewClient(node Node, builder *txbuilder.Builder, config Config) *Client {
	if config.MaxStorageTasks == 0 {
		config.MaxStorageTasks = DefaultStorageTasks
	}
	if config.MaxRetrievalTasks == 0 {
		config.MaxRetrievalTasks = DefaultRetrievalTasks
	}
	if config.MaxBroadcasts == 0 {
		config.MaxBroadcasts = DefaultBroadcasts
	}

	return &Client{
		node:           node,
		builder:        builder,
		storageTasks:   semaphore.NewWeighted(int64(config.MaxStorageTasks)),
		retrievalTasks: semaphore.NewWeighted(int64(config.MaxRetrievalTasks)),
		broadcasts:     semaphore.NewWeighted(int64(config.MaxBroadcasts)),
		txCache:        make(map[string]string),
	}
}

// SetCache attaches a payload cache.
func (c *Client) SetCache(cache storage.ReadWriter) {
	c.cache = cache
}

func cacheKey(txid string) string {
	return "payloads/" + txid
}
