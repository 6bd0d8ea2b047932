package db

import (
	"path/filepath"
	"testing"

	"github.com/eselkin/plutus-apps/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initDatabase(t *testing.T, name string) core.Database {
	t.Helper()

	database, err := NewDatabaseInit(name, filepath.Join(t.TempDir(), "test_"+name))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, database.Close())
	})

	return database
}

func dummyIndexEntry(blockNumber uint64, txHash string) core.IndexEntry {
	point := core.BlockPoint{
		BlockSlot:   blockNumber * 10,
		BlockHash:   []byte{byte(blockNumber)},
		BlockNumber: blockNumber,
	}

	return core.IndexEntryFromBlock(point, []*core.Tx{{Hash: txHash, Valid: true}})
}

func TestDatabaseFactory(t *testing.T) {
	assert.IsType(t, NewDatabase("leveldb"), NewDatabase("LevelDB"))
	assert.NotEqual(t, NewDatabase("leveldb"), NewDatabase("boltdb"))
}

func TestDatabases(t *testing.T) {
	for _, name := range []string{"boltdb", "leveldb"} {
		t.Run(name, func(t *testing.T) {
			database := initDatabase(t, name)

			t.Run("empty database", func(t *testing.T) {
				point, err := database.GetLatestBlockPoint()
				require.NoError(t, err)
				assert.Nil(t, point)

				entries, err := database.GetIndexEntries()
				require.NoError(t, err)
				assert.Empty(t, entries)

				output, err := database.GetTxOutput(core.TxInput{Hash: "missing", Index: 0})
				require.NoError(t, err)
				assert.Nil(t, output)
			})

			t.Run("write and read back", func(t *testing.T) {
				first := dummyIndexEntry(1, "t1")
				second := dummyIndexEntry(2, "t2")
				point := core.BlockPoint{BlockSlot: 20, BlockHash: []byte{2}, BlockNumber: 2}
				output := core.TxOutput{Address: "addr1", Amount: 100}

				err := database.OpenTx().
					AddIndexEntry(0, &first).
					AddIndexEntry(1, &second).
					SetLatestBlockPoint(&point).
					AddTxOutput(core.TxInput{Hash: "t1", Index: 0}, &output).
					Execute()
				require.NoError(t, err)

				storedPoint, err := database.GetLatestBlockPoint()
				require.NoError(t, err)
				assert.Equal(t, point, *storedPoint)

				entries, err := database.GetIndexEntries()
				require.NoError(t, err)
				require.Len(t, entries, 2)
				assert.Equal(t, first.Point, entries[0].Point)
				assert.Equal(t, second.Point, entries[1].Point)
				assert.Equal(t, uint64(1), entries[0].State.Confirmed["t1"].TimesConfirmed)

				storedOutput, err := database.GetTxOutput(core.TxInput{Hash: "t1", Index: 0})
				require.NoError(t, err)
				assert.Equal(t, output, *storedOutput)
			})

			t.Run("prune and replace", func(t *testing.T) {
				synthetic := core.IndexEntry{
					Point: core.BlockPoint{BlockSlot: 10, BlockHash: []byte{1}, BlockNumber: 1},
					State: core.NewTxIdState(),
				}
				synthetic.State.Deleted["t2"] = 1

				err := database.OpenTx().
					PruneIndexEntriesFrom(1).
					AddIndexEntry(1, &synthetic).
					Execute()
				require.NoError(t, err)

				entries, err := database.GetIndexEntries()
				require.NoError(t, err)
				require.Len(t, entries, 2)
				assert.Equal(t, uint64(1), entries[1].State.Deleted["t2"])
				assert.Empty(t, entries[1].State.Confirmed)
			})

			t.Run("prune everything", func(t *testing.T) {
				err := database.OpenTx().PruneIndexEntriesFrom(0).Execute()
				require.NoError(t, err)

				entries, err := database.GetIndexEntries()
				require.NoError(t, err)
				assert.Empty(t, entries)
			})
		})
	}
}
