package leveldb

import (
	"encoding/json"
	"fmt"

	"github.com/eselkin/plutus-apps/core"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

type LevelDbDatabase struct {
	db *leveldb.DB
}

var (
	txOutputsPrefix     = []byte("txOutput_")
	latestBlockPointKey = []byte("latestBlockPoint")
	indexEntriesPrefix  = []byte("indexEntry_")
)

var _ core.Database = (*LevelDbDatabase)(nil)

func (ld *LevelDbDatabase) Init(filePath string) error {
	db, err := leveldb.OpenFile(filePath, nil)
	if err != nil {
		return fmt.Errorf("could not open db: %w", err)
	}

	ld.db = db

	return nil
}

func (ld *LevelDbDatabase) Close() error {
	return ld.db.Close()
}

func (ld *LevelDbDatabase) GetLatestBlockPoint() (*core.BlockPoint, error) {
	var result *core.BlockPoint

	data, err := ld.db.Get(latestBlockPointKey, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}

		return nil, err
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return result, nil
}

func (ld *LevelDbDatabase) GetIndexEntries() ([]core.IndexEntry, error) {
	var result []core.IndexEntry

	// keys carry big endian sequence numbers, iteration order is sequence order
	iter := ld.db.NewIterator(util.BytesPrefix(indexEntriesPrefix), nil)
	defer iter.Release()

	for iter.Next() {
		var entry core.IndexEntry

		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			return nil, err
		}

		result = append(result, entry)
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}

	return result, nil
}

func (ld *LevelDbDatabase) GetTxOutput(txInput core.TxInput) (*core.TxOutput, error) {
	var result *core.TxOutput

	data, err := ld.db.Get(txOutputKey(txInput), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}

		return nil, err
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return result, nil
}

func (ld *LevelDbDatabase) OpenTx() core.DbTransactionWriter {
	return &LevelDbTransactionWriter{
		db: ld.db,
	}
}

func txOutputKey(txInput core.TxInput) []byte {
	return append(append([]byte(nil), txOutputsPrefix...), txInput.Key()...)
}

func indexEntryKey(seq uint64) []byte {
	return append(append([]byte(nil), indexEntriesPrefix...), core.EncodeUint64ToBytes(seq)...)
}
