package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/pastelnetwork/ticket-storage/rpcnode"
	"github.com/pastelnetwork/ticket-storage/storage"
	"github.com/pastelnetwork/ticket-storage/ticket"
	"github.com/pastelnetwork/ticket-storage/txbuilder"

	"github.com/tokenized/config"
	"github.com/tokenized/logger"
	"github.com/tokenized/threads"
)

type Config struct {
	// NodeConfigPath points at the node's config file holding the RPC
	// credentials. Host is always local.
	NodeConfigPath string `default:"~/.pastel/pastel.conf" envconfig:"NODE_CONFIG_PATH" json:"node_config_path"`

	// CacheBucket selects the payload cache backend. Empty disables the
	// cache; "standalone" is the filesystem under CacheRoot.
	CacheBucket string `envconfig:"CACHE_BUCKET" json:"cache_bucket"`
	CacheRoot   string `envconfig:"CACHE_ROOT" json:"cache_root"`

	Ticket ticket.Config `json:"ticket"`
}

func main() {
	ctx := logger.ContextWithLogger(context.Background(), true, true, "")

	cfg := &Config{}
	if err := config.LoadConfig(ctx, cfg); err != nil {
		logger.Fatal(ctx, "Failed to load config : %s", err)
	}

	maskedConfig, err := config.MarshalJSONMaskedRaw(cfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to marshal config : %s", err)
	}

	logger.InfoWithFields(ctx, []logger.Field{
		logger.JSON("config", maskedConfig),
	}, "Config")

	if len(os.Args) < 2 {
		logger.Fatal(ctx, "Not enough arguments. Need command (store, retrieve)")
	}

	client, err := buildClient(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to create client : %s", err)
	}

	switch os.Args[1] {
	case "store":
		Store(ctx, client, os.Args[2:])

	case "retrieve":
		Retrieve(ctx, client, os.Args[2:])

	default:
		logger.Fatal(ctx, "Unknown command : %s", os.Args[1])
	}
}

func buildClient(ctx context.Context, cfg *Config) (*ticket.Client, error) {
	path := cfg.NodeConfigPath
	if len(path) > 1 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	nodeConfig, _, err := rpcnode.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	node := rpcnode.NewNode(nodeConfig)
	client := ticket.NewClient(node, txbuilder.NewBuilder(node), cfg.Ticket)

	if len(cfg.CacheBucket) > 0 {
		cache, err := storage.CreateStorage(cfg.CacheBucket, cfg.CacheRoot)
		if err != nil {
			return nil, err
		}
		client.SetCache(cache)
	}

	return client, nil
}

// Store embeds a file's contents on chain and prints the index txid.
// Parameters: <file path>
func Store(ctx context.Context, client *ticket.Client, args []string) {
	if len(args) < 1 {
		logger.Fatal(ctx, "Wrong argument count: store [File Path]")
	}

	payload, err := os.ReadFile(args[0])
	if err != nil {
		logger.Fatal(ctx, "Failed to read payload file : %s", err)
	}

	var wait sync.WaitGroup
	var storeErr error
	storeThread, storeComplete := threads.NewInterruptableThreadComplete("Store",
		func(ctx context.Context, interrupt <-chan interface{}) error {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				select {
				case <-interrupt:
					cancel()
				case <-ctx.Done():
				}
			}()

			txid, err := client.Store(ctx, payload)
			if err != nil {
				storeErr = err
				return err
			}

			fmt.Printf("%s\n", txid)
			return nil
		}, &wait)

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)

	storeThread.Start(ctx)

	select {
	case <-storeComplete:
	case <-osSignals:
		logger.Info(ctx, "Interrupt received. Aborting store")
		storeThread.Stop(ctx)
	}

	wait.Wait()
	if storeErr != nil {
		logger.Fatal(ctx, "Store failed : %s", storeErr)
	}
}

// Retrieve fetches a stored payload by index txid and writes it to the
// output file, or stdout when none is given.
// Parameters: <txid> [output path]
func Retrieve(ctx context.Context, client *ticket.Client, args []string) {
	if len(args) < 1 {
		logger.Fatal(ctx, "Wrong argument count: retrieve [TxID] [Output Path]")
	}

	payload, err := client.Retrieve(ctx, args[0])
	if err != nil {
		logger.Fatal(ctx, "Retrieve failed : %s", err)
	}

	if len(args) > 1 {
		if err := os.WriteFile(args[1], payload, 0644); err != nil {
			logger.Fatal(ctx, "Failed to write output file : %s", err)
		}
		return
	}

	os.Stdout.Write(payload)
}
