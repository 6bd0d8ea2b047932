package core

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/blinklabs-io/gouroboros/ledger"
)

// BlockPoint is a chain position. It doubles as the tip of the index and as a
// rollback target; an empty hash is the genesis sentinel that precedes every
// block.
type BlockPoint struct {
	BlockSlot   uint64 `json:"slot"`
	BlockHash   []byte `json:"hash"`
	BlockNumber uint64 `json:"num"`
}

func (bp BlockPoint) IsGenesis() bool {
	return len(bp.BlockHash) == 0
}

// Precedes reports whether the point is strictly before the given tip.
// Genesis precedes everything; nothing precedes a genesis tip.
func (bp BlockPoint) Precedes(tip BlockPoint) bool {
	switch {
	case bp.IsGenesis():
		return true
	case tip.IsGenesis():
		return false
	default:
		return bp.BlockSlot < tip.BlockSlot
	}
}

// PointsTo reports whether the point denotes exactly the given tip:
// both genesis, or same slot and hash.
func (bp BlockPoint) PointsTo(tip BlockPoint) bool {
	if bp.IsGenesis() || tip.IsGenesis() {
		return bp.IsGenesis() && tip.IsGenesis()
	}

	return bp.BlockSlot == tip.BlockSlot && bytes.Equal(bp.BlockHash, tip.BlockHash)
}

func (bp BlockPoint) String() string {
	if bp.IsGenesis() {
		return "genesis"
	}

	return fmt.Sprintf("(%d, %s, %d)", bp.BlockSlot, hex.EncodeToString(bp.BlockHash), bp.BlockNumber)
}

type BlockHeader struct {
	BlockSlot   uint64 `json:"slot"`
	BlockHash   []byte `json:"hash"`
	BlockNumber uint64 `json:"num"`
	EraID       uint8  `json:"era"`
	EraName     string `json:"-"`
}

func (bh BlockHeader) Point() BlockPoint {
	return BlockPoint{
		BlockSlot:   bh.BlockSlot,
		BlockHash:   bh.BlockHash,
		BlockNumber: bh.BlockNumber,
	}
}

type FullBlock struct {
	BlockSlot   uint64 `json:"slot"`
	BlockHash   []byte `json:"hash"`
	BlockNumber uint64 `json:"num"`
	EraID       uint8  `json:"era"`
	EraName     string `json:"-"`
	Txs         []*Tx  `json:"txs"`
}

type Tx struct {
	Hash     string      `json:"hash"`
	Metadata []byte      `json:"metadata,omitempty"`
	Inputs   []*TxInput  `json:"inputs"`
	Outputs  []*TxOutput `json:"outputs"`
	Fee      uint64      `json:"fee"`
	// Valid is whether the transaction actually executed on chain or was
	// added as a failed, collateral consuming transaction
	Valid bool `json:"valid"`
}

type TxInput struct {
	Hash  string `json:"id"`
	Index uint32 `json:"index"`
}

type TxOutput struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

func GetBlockHeaderFromBlockInfo(blockType uint, blockInfo interface{}, nextBlockNumber uint64) (*BlockHeader, error) {
	var blockHeaderFull ledger.BlockHeader

	switch blockType {
	case ledger.BlockTypeByronEbb:
		blockHeaderFull = blockInfo.(*ledger.ByronEpochBoundaryBlockHeader)
	case ledger.BlockTypeByronMain:
		blockHeaderFull = blockInfo.(*ledger.ByronMainBlockHeader)
	case ledger.BlockTypeShelley, ledger.BlockTypeAllegra, ledger.BlockTypeMary, ledger.BlockTypeAlonzo:
		blockHeaderFull = blockInfo.(*ledger.ShelleyBlockHeader)
	case ledger.BlockTypeBabbage, ledger.BlockTypeConway:
		blockHeaderFull = blockInfo.(*ledger.BabbageBlockHeader)
	default:
		return nil, fmt.Errorf("unsupported block type: %d", blockType)
	}

	blockHash, err := hex.DecodeString(blockHeaderFull.Hash())
	if err != nil {
		return nil, fmt.Errorf("could not decode block hash: %w", err)
	}

	blockNumber := blockHeaderFull.BlockNumber()
	if blockNumber == 0 {
		blockNumber = nextBlockNumber
	} else if blockNumber != nextBlockNumber {
		return nil, fmt.Errorf("invalid number of block: expected %d vs %d", nextBlockNumber, blockNumber)
	}

	return &BlockHeader{
		BlockSlot:   blockHeaderFull.SlotNumber(),
		BlockHash:   blockHash,
		BlockNumber: blockNumber,
		EraID:       blockHeaderFull.Era().Id,
		EraName:     blockHeaderFull.Era().Name,
	}, nil
}

func GetFullBlock(bh *BlockHeader, blockTxs []ledger.Transaction) *FullBlock {
	var txs []*Tx

	if len(blockTxs) > 0 {
		txs = make([]*Tx, len(blockTxs))
	}

	for i, x := range blockTxs {
		txs[i] = &Tx{
			Hash:    x.Hash(),
			Fee:     x.Fee(),
			Valid:   x.IsValid(),
			Inputs:  make([]*TxInput, len(x.Inputs())),
			Outputs: make([]*TxOutput, len(x.Outputs())),
		}

		if x.Metadata() != nil && x.Metadata().Cbor() != nil {
			txs[i].Metadata = x.Metadata().Cbor()
		}

		for j, y := range x.Inputs() {
			txs[i].Inputs[j] = &TxInput{
				Hash:  y.Id().String(),
				Index: y.Index(),
			}
		}

		for j, y := range x.Outputs() {
			txs[i].Outputs[j] = &TxOutput{
				Address: y.Address().String(),
				Amount:  y.Amount(),
			}
		}
	}

	return &FullBlock{
		BlockSlot:   bh.BlockSlot,
		BlockHash:   bh.BlockHash,
		BlockNumber: bh.BlockNumber,
		EraID:       bh.EraID,
		EraName:     bh.EraName,
		Txs:         txs,
	}
}

func (fb FullBlock) Point() BlockPoint {
	return BlockPoint{
		BlockSlot:   fb.BlockSlot,
		BlockHash:   fb.BlockHash,
		BlockNumber: fb.BlockNumber,
	}
}

func (fb FullBlock) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("number = %d, hash = %s, tx count = %d\n",
		fb.BlockNumber, hex.EncodeToString(fb.BlockHash), len(fb.Txs)))

	for _, tx := range fb.Txs {
		sb.WriteString(fmt.Sprintf("  tx hash = %s, fee = %d, valid = %s\n",
			tx.Hash, tx.Fee, strconv.FormatBool(tx.Valid)))
	}

	return sb.String()
}

func (ti TxInput) Key() []byte {
	return []byte(fmt.Sprintf("%s_%d", ti.Hash, ti.Index))
}

func EncodeUint64ToBytes(value uint64) []byte {
	result := make([]byte, 8)
	binary.BigEndian.PutUint64(result, value)

	return result
}
