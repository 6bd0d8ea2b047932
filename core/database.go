package core

// DbTransactionWriter batches database mutations; nothing is written until
// Execute, which applies everything atomically.
type DbTransactionWriter interface {
	SetLatestBlockPoint(point *BlockPoint) DbTransactionWriter
	AddIndexEntry(seq uint64, entry *IndexEntry) DbTransactionWriter
	PruneIndexEntriesFrom(seq uint64) DbTransactionWriter
	AddTxOutput(txInput TxInput, txOutput *TxOutput) DbTransactionWriter
	Execute() error
}

type BlockIndexerDb interface {
	OpenTx() DbTransactionWriter
	GetLatestBlockPoint() (*BlockPoint, error)
	// GetIndexEntries returns persisted index entries in sequence order
	GetIndexEntries() ([]IndexEntry, error)
	GetTxOutput(txInput TxInput) (*TxOutput, error)
}

type Database interface {
	BlockIndexerDb
	Init(filePath string) error
	Close() error
}
