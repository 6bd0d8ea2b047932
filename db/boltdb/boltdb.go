package boltdb

import (
	"encoding/json"
	"fmt"

	"github.com/eselkin/plutus-apps/core"

	bolt "go.etcd.io/bbolt"
)

type BoltDatabase struct {
	db *bolt.DB
}

var (
	txOutputsBucket        = []byte("TXOuts")
	latestBlockPointBucket = []byte("LatestBlockPoint")
	indexEntriesBucket     = []byte("IndexEntries")

	defaultKey = []byte("default")
)

var _ core.Database = (*BoltDatabase)(nil)

func (bd *BoltDatabase) Init(filePath string) error {
	db, err := bolt.Open(filePath, 0600, nil)
	if err != nil {
		return fmt.Errorf("could not open db: %w", err)
	}

	bd.db = db

	return db.Update(func(tx *bolt.Tx) error {
		for _, bn := range [][]byte{txOutputsBucket, latestBlockPointBucket, indexEntriesBucket} {
			_, err := tx.CreateBucketIfNotExists(bn)
			if err != nil {
				return fmt.Errorf("could not create bucket: %s, err: %w", string(bn), err)
			}
		}

		return nil
	})
}

func (bd *BoltDatabase) Close() error {
	return bd.db.Close()
}

func (bd *BoltDatabase) GetLatestBlockPoint() (*core.BlockPoint, error) {
	var result *core.BlockPoint

	if err := bd.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(latestBlockPointBucket).Get(defaultKey); len(data) > 0 {
			return json.Unmarshal(data, &result)
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (bd *BoltDatabase) GetIndexEntries() ([]core.IndexEntry, error) {
	var result []core.IndexEntry

	// keys are big endian sequence numbers, ForEach walks them in order
	if err := bd.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(indexEntriesBucket).ForEach(func(k, v []byte) error {
			var entry core.IndexEntry

			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}

			result = append(result, entry)

			return nil
		})
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (bd *BoltDatabase) GetTxOutput(txInput core.TxInput) (*core.TxOutput, error) {
	var result *core.TxOutput

	if err := bd.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(txOutputsBucket).Get(txInput.Key()); len(data) > 0 {
			return json.Unmarshal(data, &result)
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

func (bd *BoltDatabase) OpenTx() core.DbTransactionWriter {
	return &BoltDbTransactionWriter{
		db: bd.db,
	}
}
