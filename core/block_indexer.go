package core

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/blinklabs-io/gouroboros/protocol/chainsync"
	"github.com/blinklabs-io/gouroboros/protocol/common"
	"github.com/hashicorp/go-hclog"
)

var errBlockIndexerFatal = errors.New("block indexer fatal error")

type BlockIndexerConfig struct {
	NetworkMagic uint32 `json:"networkMagic"`
	NodeAddress  string `json:"nodeAddress"`

	StartingBlockPoint *BlockPoint `json:"startingBlockPoint"`

	// how many descendant blocks are needed for a transaction to be
	// considered committed (no longer at rollback risk)
	ConfirmationDepth Depth `json:"confirmationDepth"`

	// how many newest index entries to keep individually addressable for
	// rollbacks; older entries are collapsed. 0 keeps the full history
	RetainBlockCount int `json:"retainBlockCount"`

	AddressesOfInterest []string `json:"addressesOfInterest"`
}

// BlockAppliedHandler is called after a block has been applied to the status
// index and persisted.
type BlockAppliedHandler func(*FullBlock) error

// BlockIndexer follows the chain through a BlockSyncer and maintains the
// transaction status index: every rolled forward block is folded into a
// UtxoIndex, every roll backward truncates it through the rollback engine.
// Status queries are served concurrently against the index under a
// readers-writer lock; the chainsync goroutine is the only writer.
type BlockIndexer struct {
	blockSyncer BlockSyncer
	config      *BlockIndexerConfig

	blockAppliedHandler BlockAppliedHandler

	lock             sync.RWMutex
	index            *UtxoIndex
	latestBlockPoint *BlockPoint

	db                  BlockIndexerDb
	addressesOfInterest map[string]bool

	logger hclog.Logger
}

var _ BlockSyncerHandler = (*BlockIndexer)(nil)

func NewBlockIndexer(
	config *BlockIndexerConfig, blockAppliedHandler BlockAppliedHandler,
	blockSyncer BlockSyncer, db BlockIndexerDb, logger hclog.Logger,
) *BlockIndexer {
	if config.ConfirmationDepth == 0 {
		config.ConfirmationDepth = DefaultConfirmationDepth
	}

	addressesOfInterest := make(map[string]bool, len(config.AddressesOfInterest))
	for _, x := range config.AddressesOfInterest {
		addressesOfInterest[x] = true
	}

	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &BlockIndexer{
		blockSyncer: blockSyncer,
		config:      config,

		blockAppliedHandler: blockAppliedHandler,

		index:            NewUtxoIndex(),
		latestBlockPoint: nil,

		db:                  db,
		addressesOfInterest: addressesOfInterest,

		logger: logger,
	}
}

// TransactionStatus answers "is this transaction confirmed, and how deep" as
// of the current tip. Transactions the indexer never observed, or whose
// confirmations were all rolled back, are unknown.
func (bi *BlockIndexer) TransactionStatus(txHash string) (TxStatus, error) {
	bi.lock.RLock()
	defer bi.lock.RUnlock()

	measure := bi.index.Measure()
	if measure.Tip.IsGenesis() {
		return UnknownTxStatus(), nil
	}

	return TransactionStatus(measure.Tip.BlockNumber, bi.config.ConfirmationDepth, measure.State, txHash)
}

// IsConfirmed reports whether the transaction has at least minDepth
// confirmations as of the current tip.
func (bi *BlockIndexer) IsConfirmed(txHash string, minDepth Depth) (bool, error) {
	status, err := bi.TransactionStatus(txHash)
	if err != nil {
		return false, err
	}

	return status.IsConfirmed(minDepth), nil
}

func (bi *BlockIndexer) RollBackwardFunc(point common.Point, tip chainsync.Tip) error {
	target := BlockPoint{BlockSlot: point.Slot, BlockHash: point.Hash}

	bi.lock.RLock()
	currentTip := bi.index.Tip()
	indexEmpty := bi.index.Len() == 0
	latestBlockPoint := bi.latestBlockPoint
	bi.lock.RUnlock()

	if target.PointsTo(currentTip) {
		// chainsync always opens with a rollback to the intersect point
		bi.logger.Debug("roll backward to current tip", "point", target)

		return nil
	}

	if indexEmpty && latestBlockPoint != nil && target.PointsTo(*latestBlockPoint) {
		// nothing indexed yet and we are reverting to the point syncing started from
		bi.logger.Debug("roll backward to starting point", "point", target)

		return nil
	}

	newTip, newIndex, err := bi.index.Rollback(target)
	if err != nil {
		// a rollback target we cannot honor means our retained history
		// diverged from the chain; the caller has to resync
		return errors.Join(errBlockIndexerFatal, err)
	}

	seq := uint64(newIndex.Len() - 1)
	entries := newIndex.Entries()

	dbTx := bi.db.OpenTx()
	dbTx.PruneIndexEntriesFrom(seq)
	dbTx.AddIndexEntry(seq, &entries[seq])
	dbTx.SetLatestBlockPoint(&newTip)

	if err := dbTx.Execute(); err != nil {
		return err
	}

	bi.lock.Lock()
	bi.index = newIndex
	bi.latestBlockPoint = &newTip
	bi.lock.Unlock()

	bi.logger.Info("rolled back", "tip", newTip)

	return nil
}

func (bi *BlockIndexer) RollForwardFunc(blockType uint, blockInfo interface{}, tip chainsync.Tip) error {
	blockHeader, err := GetBlockHeaderFromBlockInfo(blockType, blockInfo, bi.nextBlockNumber())
	if err != nil {
		return errors.Join(errBlockIndexerFatal, err)
	}

	block, err := bi.blockSyncer.GetFullBlock(blockHeader.BlockSlot, blockHeader.BlockHash)
	if err != nil {
		return err
	}

	fullBlock := GetFullBlock(blockHeader, block.Transactions())

	bi.logger.Debug("roll forward",
		"number", blockHeader.BlockNumber, "slot", blockHeader.BlockSlot,
		"txs", len(fullBlock.Txs), "tip", tip.BlockNumber)

	txs, err := bi.getTxsOfInterest(fullBlock.Txs)
	if err != nil {
		return err
	}

	if err := bi.applyBlock(fullBlock, txs); err != nil {
		return err
	}

	if bi.blockAppliedHandler != nil {
		if err := bi.blockAppliedHandler(fullBlock); err != nil {
			bi.logger.Error("block applied handler failed", "err", err)
		}
	}

	return nil
}

func (bi *BlockIndexer) ErrorHandler(err error) {
	bi.logger.Error("syncer error", "err", err)

	// retry syncing again if not fatal
	if !errors.Is(err, errBlockIndexerFatal) {
		if err := bi.StartSyncing(); err != nil {
			bi.logger.Error("failed to retry syncing", "err", err)
		}
	}
}

func (bi *BlockIndexer) StartSyncing() error {
	if bi.latestBlockPoint == nil {
		// restore state from database
		latestBlockPoint, err := bi.db.GetLatestBlockPoint()
		if err != nil {
			return err
		}

		entries, err := bi.db.GetIndexEntries()
		if err != nil {
			return err
		}

		bi.lock.Lock()

		if len(entries) > 0 {
			bi.index = NewUtxoIndexFromEntries(entries)
		}

		bi.latestBlockPoint = latestBlockPoint
		// if there is nothing in database start from default config
		if bi.latestBlockPoint == nil {
			bi.latestBlockPoint = bi.config.StartingBlockPoint
		}

		if bi.latestBlockPoint == nil {
			bi.latestBlockPoint = &BlockPoint{
				BlockSlot:   0,
				BlockNumber: math.MaxUint64,
				BlockHash:   nil,
			}
		}

		bi.lock.Unlock()
	}

	return bi.blockSyncer.Sync(
		bi.config.NetworkMagic, bi.config.NodeAddress,
		bi.latestBlockPoint.BlockSlot, bi.latestBlockPoint.BlockHash, bi)
}

func (bi *BlockIndexer) Close() error {
	return bi.blockSyncer.Close()
}

func (bi *BlockIndexer) nextBlockNumber() uint64 {
	bi.lock.RLock()
	defer bi.lock.RUnlock()

	if bi.index.Len() > 0 {
		return bi.index.Tip().BlockNumber + 1
	}

	// MaxUint64 wraps to 0 for the very first block
	return bi.latestBlockPoint.BlockNumber + 1
}

// applyBlock validates the block's ordering first, then persists the index
// entry and only after that mutates the in-memory index, so neither a failed
// write nor a rejected block leaves the two out of sync.
func (bi *BlockIndexer) applyBlock(fullBlock *FullBlock, txs []*Tx) error {
	point := fullBlock.Point()
	entry := IndexEntryFromBlock(point, txs)

	bi.lock.RLock()
	canAppend := bi.index.CanAppend(point)
	currentTip := bi.index.Tip()
	bi.lock.RUnlock()

	if !canAppend {
		return errors.Join(errBlockIndexerFatal,
			fmt.Errorf("out of order append: entry %s does not follow tip %s", point, currentTip))
	}

	dbTx := bi.db.OpenTx()
	dbTx.AddIndexEntry(uint64(bi.index.Len()), &entry)
	dbTx.SetLatestBlockPoint(&point)
	bi.addTxOutputs(dbTx, txs)

	if err := dbTx.Execute(); err != nil {
		return err
	}

	bi.lock.Lock()
	err := bi.index.Append(entry)
	if err == nil {
		bi.latestBlockPoint = &point
	}
	bi.lock.Unlock()

	if err != nil {
		return errors.Join(errBlockIndexerFatal, err)
	}

	return bi.reduceBlockCount()
}

func (bi *BlockIndexer) reduceBlockCount() error {
	bi.lock.Lock()

	reduced := bi.index.ReduceBlockCount(bi.config.RetainBlockCount)
	if reduced == bi.index {
		bi.lock.Unlock()

		return nil
	}

	bi.index = reduced
	entries := reduced.Entries()

	bi.lock.Unlock()

	dbTx := bi.db.OpenTx()
	dbTx.PruneIndexEntriesFrom(0)

	for i := range entries {
		dbTx.AddIndexEntry(uint64(i), &entries[i])
	}

	return dbTx.Execute()
}

func (bi *BlockIndexer) getTxsOfInterest(txs []*Tx) (result []*Tx, err error) {
	if len(bi.addressesOfInterest) == 0 {
		return txs, nil
	}

	for _, tx := range txs {
		if bi.isTxOutputOfInterest(tx) {
			result = append(result, tx)
		} else {
			txIsGood, err := bi.isTxInputOfInterest(tx)
			if err != nil {
				return nil, err
			} else if txIsGood {
				result = append(result, tx)
			}
		}
	}

	return result, nil
}

func (bi *BlockIndexer) isTxOutputOfInterest(tx *Tx) bool {
	for _, out := range tx.Outputs {
		if bi.addressesOfInterest[out.Address] {
			return true
		}
	}

	return false
}

func (bi *BlockIndexer) isTxInputOfInterest(tx *Tx) (bool, error) {
	for _, inp := range tx.Inputs {
		txOutput, err := bi.db.GetTxOutput(*inp)
		if err != nil {
			return false, err
		} else if txOutput != nil && bi.addressesOfInterest[txOutput.Address] {
			return true, nil
		}
	}

	return false, nil
}

func (bi *BlockIndexer) addTxOutputs(dbTx DbTransactionWriter, txs []*Tx) {
	for _, tx := range txs {
		for ind, txOut := range tx.Outputs {
			if bi.addressesOfInterest[txOut.Address] {
				dbTx.AddTxOutput(TxInput{
					Hash:  tx.Hash,
					Index: uint32(ind),
				}, txOut)
			}
		}
	}
}
