package core

import (
	"testing"

	ouroboros "github.com/blinklabs-io/gouroboros"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

const (
	NetworkMagic = 1
)

func TestNewBlockSyncerWithUninitializedLogger(t *testing.T) {
	var logger hclog.Logger

	syncer := NewBlockSyncer(logger)
	require.NotNil(t, syncer)
	require.NotNil(t, syncer.logger)
}

func TestNewBlockSyncerWithInitializedLogger(t *testing.T) {
	logger := hclog.Default()

	syncer := NewBlockSyncer(logger)
	require.NotNil(t, syncer)
}

func TestCloseWithConnectionNil(t *testing.T) {
	syncer := NewBlockSyncer(nil)

	err := syncer.Close()
	require.Nil(t, err)
}

func TestCloseWithConnectionNotNil(t *testing.T) {
	syncer := NewBlockSyncer(nil)
	connection, _ := ouroboros.NewConnection(
		ouroboros.WithNetworkMagic(NetworkMagic),
		ouroboros.WithNodeToNode(true),
		ouroboros.WithKeepAlive(true),
	)
	syncer.connection = connection

	err := syncer.Close()
	require.Nil(t, err)
}

func TestGetFullBlockWithConnectionNil(t *testing.T) {
	syncer := NewBlockSyncer(hclog.Default())

	var slot uint64
	var hash []byte

	_, err := syncer.GetFullBlock(slot, hash)
	require.NotNil(t, err)
}
