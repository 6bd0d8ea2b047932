package boltdb

import (
	"encoding/json"
	"fmt"

	"github.com/eselkin/plutus-apps/core"

	bolt "go.etcd.io/bbolt"
)

// BoltDbTransactionWriter queues mutations and applies all of them inside a
// single bolt update transaction on Execute.
type BoltDbTransactionWriter struct {
	db         *bolt.DB
	operations []func(tx *bolt.Tx) error
}

var _ core.DbTransactionWriter = (*BoltDbTransactionWriter)(nil)

func (tw *BoltDbTransactionWriter) SetLatestBlockPoint(point *core.BlockPoint) core.DbTransactionWriter {
	tw.operations = append(tw.operations, func(tx *bolt.Tx) error {
		bytes, err := json.Marshal(point)
		if err != nil {
			return fmt.Errorf("could not marshal latest block point: %w", err)
		}

		return tx.Bucket(latestBlockPointBucket).Put(defaultKey, bytes)
	})

	return tw
}

func (tw *BoltDbTransactionWriter) AddIndexEntry(seq uint64, entry *core.IndexEntry) core.DbTransactionWriter {
	tw.operations = append(tw.operations, func(tx *bolt.Tx) error {
		bytes, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("could not marshal index entry: %w", err)
		}

		return tx.Bucket(indexEntriesBucket).Put(core.EncodeUint64ToBytes(seq), bytes)
	})

	return tw
}

func (tw *BoltDbTransactionWriter) PruneIndexEntriesFrom(seq uint64) core.DbTransactionWriter {
	tw.operations = append(tw.operations, func(tx *bolt.Tx) error {
		cursor := tx.Bucket(indexEntriesBucket).Cursor()

		for k, _ := cursor.Seek(core.EncodeUint64ToBytes(seq)); k != nil; k, _ = cursor.Next() {
			if err := cursor.Delete(); err != nil {
				return err
			}
		}

		return nil
	})

	return tw
}

func (tw *BoltDbTransactionWriter) AddTxOutput(txInput core.TxInput, txOutput *core.TxOutput) core.DbTransactionWriter {
	tw.operations = append(tw.operations, func(tx *bolt.Tx) error {
		bytes, err := json.Marshal(txOutput)
		if err != nil {
			return fmt.Errorf("could not marshal tx output: %w", err)
		}

		return tx.Bucket(txOutputsBucket).Put(txInput.Key(), bytes)
	})

	return tw
}

func (tw *BoltDbTransactionWriter) Execute() error {
	defer func() {
		tw.operations = nil
	}()

	return tw.db.Update(func(tx *bolt.Tx) error {
		for _, op := range tw.operations {
			if err := op(tx); err != nil {
				return err
			}
		}

		return nil
	})
}
