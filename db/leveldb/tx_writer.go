package leveldb

import (
	"encoding/json"
	"fmt"

	"github.com/eselkin/plutus-apps/core"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDbTransactionWriter queues mutations and applies all of them through a
// single write batch on Execute. Prune operations resolve the doomed keys at
// Execute time, before the batch is written.
type LevelDbTransactionWriter struct {
	db         *leveldb.DB
	operations []func(batch *leveldb.Batch) error
}

var _ core.DbTransactionWriter = (*LevelDbTransactionWriter)(nil)

func (tw *LevelDbTransactionWriter) SetLatestBlockPoint(point *core.BlockPoint) core.DbTransactionWriter {
	tw.operations = append(tw.operations, func(batch *leveldb.Batch) error {
		bytes, err := json.Marshal(point)
		if err != nil {
			return fmt.Errorf("could not marshal latest block point: %w", err)
		}

		batch.Put(latestBlockPointKey, bytes)

		return nil
	})

	return tw
}

func (tw *LevelDbTransactionWriter) AddIndexEntry(seq uint64, entry *core.IndexEntry) core.DbTransactionWriter {
	tw.operations = append(tw.operations, func(batch *leveldb.Batch) error {
		bytes, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("could not marshal index entry: %w", err)
		}

		batch.Put(indexEntryKey(seq), bytes)

		return nil
	})

	return tw
}

func (tw *LevelDbTransactionWriter) PruneIndexEntriesFrom(seq uint64) core.DbTransactionWriter {
	tw.operations = append(tw.operations, func(batch *leveldb.Batch) error {
		iter := tw.db.NewIterator(&util.Range{
			Start: indexEntryKey(seq),
			Limit: util.BytesPrefix(indexEntriesPrefix).Limit,
		}, nil)
		defer iter.Release()

		for iter.Next() {
			batch.Delete(append([]byte(nil), iter.Key()...))
		}

		return iter.Error()
	})

	return tw
}

func (tw *LevelDbTransactionWriter) AddTxOutput(txInput core.TxInput, txOutput *core.TxOutput) core.DbTransactionWriter {
	tw.operations = append(tw.operations, func(batch *leveldb.Batch) error {
		bytes, err := json.Marshal(txOutput)
		if err != nil {
			return fmt.Errorf("could not marshal tx output: %w", err)
		}

		batch.Put(txOutputKey(txInput), bytes)

		return nil
	})

	return tw
}

func (tw *LevelDbTransactionWriter) Execute() error {
	defer func() {
		tw.operations = nil
	}()

	batch := &leveldb.Batch{}

	for _, op := range tw.operations {
		if err := op(batch); err != nil {
			return err
		}
	}

	return tw.db.Write(batch, nil)
}
