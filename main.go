package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/eselkin/plutus-apps/core"
	"github.com/eselkin/plutus-apps/db"

	"github.com/hashicorp/go-hclog"
)

func main() {
	networkMagic := uint32(42)
	address := "localhost:3000"   // "/tmp/cardano-133064331/node-spo1/node.sock"
	startBlockHash := []byte(nil) // from genesis
	startSlot := uint64(0)
	startBlockNum := uint64(math.MaxUint64)
	addressesOfInterest := []string{}

	// for test net
	address = "preprod-node.play.dev.cardano.org:3001"
	networkMagic = 1

	// for main net
	// address = "backbone.cardano-mainnet.iohk.io:3001"
	// networkMagic = uint32(764824073)

	logger, err := core.NewLogger(core.LoggerConfig{
		LogLevel:            hclog.Info,
		JSONLogFormat:       false,
		OpenOrCreateNewFile: false,
		LogsDirectory:       "logs",
		LogFile:             "tx_status_indexer",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	indexerDb, err := db.NewDatabaseInit("boltdb", "txstatus.db")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		logger.Error("error: ", err)
		os.Exit(1)
	}

	defer indexerDb.Close()

	var indexer *core.BlockIndexer

	blockAppliedHandler := func(block *core.FullBlock) error {
		for _, tx := range block.Txs {
			status, err := indexer.TransactionStatus(tx.Hash)
			if err != nil {
				return err
			}

			logger.Info("transaction indexed", "hash", tx.Hash, "status", status)
		}

		return nil
	}

	syncer := core.NewBlockSyncer(logger.Named("block_syncer"))
	indexer = core.NewBlockIndexer(&core.BlockIndexerConfig{
		NetworkMagic: networkMagic,
		NodeAddress:  address,
		StartingBlockPoint: &core.BlockPoint{
			BlockSlot:   startSlot,
			BlockHash:   startBlockHash,
			BlockNumber: startBlockNum,
		},
		ConfirmationDepth:   core.DefaultConfirmationDepth,
		RetainBlockCount:    100,
		AddressesOfInterest: addressesOfInterest,
	}, blockAppliedHandler, syncer, indexerDb, logger.Named("block_indexer"))

	defer indexer.Close()

	err = indexer.StartSyncing()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		logger.Error("error: ", err)
		os.Exit(1)
	}

	signalChannel := make(chan os.Signal, 1)
	// Notify the signalChannel when the interrupt signal is received (Ctrl+C)
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)

	<-signalChannel
}
