package core

import (
	"errors"
	"fmt"
	"sort"
)

var ErrNoTipToRollbackFrom = errors.New("no tip to rollback from")

// TipMismatchError is returned when the rollback target does not align with
// any retained tip: either it is not in the past of the current tip, or the
// split landed between entries instead of exactly on the target.
type TipMismatchError struct {
	Found  BlockPoint
	Target BlockPoint
}

func (e *TipMismatchError) Error() string {
	return fmt.Sprintf("tip mismatch: found %s, rollback target %s", e.Found, e.Target)
}

// PointNotFoundError is returned when the rollback target precedes all
// retained history. The index has to be rebuilt from an older checkpoint.
type PointNotFoundError struct {
	Point BlockPoint
}

func (e *PointNotFoundError) Error() string {
	return fmt.Sprintf("rollback point not found: %s", e.Point)
}

// IndexEntry pairs a chain position with the state delta its block produced.
type IndexEntry struct {
	Point BlockPoint `json:"point"`
	State TxIdState  `json:"state"`
}

// IndexEntryFromBlock folds the deltas of every transaction in the block, in
// block order, into the entry for that block.
func IndexEntryFromBlock(point BlockPoint, txs []*Tx) IndexEntry {
	state := NewTxIdState()
	for _, tx := range txs {
		state.accumulate(TxIdStateFromTx(point.BlockNumber, tx))
	}

	return IndexEntry{Point: point, State: state}
}

// UtxoState is the measure of a UtxoIndex: the fold of all entry payloads
// plus the tip of the rightmost entry.
type UtxoState struct {
	State TxIdState
	Tip   BlockPoint
}

// UtxoIndex is an ordered sequence of per-block index entries. Tips are
// strictly increasing across block appends; a rollback replaces a suffix with
// one synthetic entry that reuses the retained tip. The folded measure is
// maintained incrementally so queries never walk the sequence, and the split
// boundary is located by binary search over the tips.
type UtxoIndex struct {
	entries []IndexEntry
	state   TxIdState
}

func NewUtxoIndex() *UtxoIndex {
	return &UtxoIndex{state: NewTxIdState()}
}

// NewUtxoIndexFromEntries rebuilds an index from previously persisted
// entries, in their original order.
func NewUtxoIndexFromEntries(entries []IndexEntry) *UtxoIndex {
	return &UtxoIndex{entries: entries, state: foldEntries(entries)}
}

func foldEntries(entries []IndexEntry) TxIdState {
	state := NewTxIdState()
	for _, entry := range entries {
		state.accumulate(entry.State)
	}

	return state
}

func (ui *UtxoIndex) Len() int {
	return len(ui.entries)
}

// Tip is the chain position of the rightmost entry, or the genesis sentinel
// for an empty index.
func (ui *UtxoIndex) Tip() BlockPoint {
	if len(ui.entries) == 0 {
		return BlockPoint{}
	}

	return ui.entries[len(ui.entries)-1].Point
}

func (ui *UtxoIndex) Measure() UtxoState {
	return UtxoState{State: ui.state, Tip: ui.Tip()}
}

// CanAppend reports whether a block at the given point may be appended. The
// point's slot must be strictly greater than the current tip's.
func (ui *UtxoIndex) CanAppend(point BlockPoint) bool {
	tip := ui.Tip()

	return tip.IsGenesis() || point.BlockSlot > tip.BlockSlot
}

// Append adds the entry for a newly processed block. The entry's slot must be
// strictly greater than the current tip's.
func (ui *UtxoIndex) Append(entry IndexEntry) error {
	if !ui.CanAppend(entry.Point) {
		return fmt.Errorf("out of order append: entry %s does not follow tip %s", entry.Point, ui.Tip())
	}

	ui.entries = append(ui.entries, entry)
	ui.state.accumulate(entry.State)

	return nil
}

// Split partitions the index at the given point: before holds every entry
// whose tip does not follow the point, discarded the remainder. The boundary
// is found in O(log n); the tips are ordered, so the predicate is monotone.
func (ui *UtxoIndex) Split(point BlockPoint) (before *UtxoIndex, discarded *UtxoIndex) {
	i := sort.Search(len(ui.entries), func(i int) bool {
		return point.Precedes(ui.entries[i].Point)
	})

	return NewUtxoIndexFromEntries(ui.entries[:i]), NewUtxoIndexFromEntries(ui.entries[i:])
}

// Rollback truncates the index back to the given point. On success it returns
// the new tip and a new index whose last entry converts every transaction
// confirmed in the discarded suffix into one deletion credit, so that a
// re-included transaction regains confirmed status only once its new
// confirmations catch up. The receiver is never modified; on error it is
// returned untouched semantics-wise and the error describes why the target
// was rejected.
func (ui *UtxoIndex) Rollback(point BlockPoint) (BlockPoint, *UtxoIndex, error) {
	tip := ui.Tip()
	if tip.IsGenesis() {
		return BlockPoint{}, nil, ErrNoTipToRollbackFrom
	}

	if !point.Precedes(tip) {
		return BlockPoint{}, nil, &TipMismatchError{Found: tip, Target: point}
	}

	before, discarded := ui.Split(point)

	oldTip := before.Tip()
	if oldTip.IsGenesis() {
		return BlockPoint{}, nil, &PointNotFoundError{Point: point}
	}

	if !point.PointsTo(oldTip) {
		return BlockPoint{}, nil, &TipMismatchError{Found: oldTip, Target: point}
	}

	// one deletion credit per transaction id, no matter how many times it
	// was confirmed in the discarded suffix
	deletions := NewTxIdState()
	for hash := range discarded.state.Confirmed {
		deletions.Deleted[hash] = 1
	}

	entries := make([]IndexEntry, before.Len(), before.Len()+1)
	copy(entries, before.entries)
	entries = append(entries, IndexEntry{Point: oldTip, State: deletions})

	return oldTip, NewUtxoIndexFromEntries(entries), nil
}

// ReduceBlockCount collapses the oldest entries into a single combined entry
// once the index holds at least twice minCount entries, keeping the newest
// minCount entries individually addressable. Rollback targets inside the
// collapsed range are reported as not found afterwards. minCount <= 0 keeps
// the full history.
func (ui *UtxoIndex) ReduceBlockCount(minCount int) *UtxoIndex {
	if minCount <= 0 || len(ui.entries) < 2*minCount {
		return ui
	}

	cut := len(ui.entries) - minCount
	combined := IndexEntry{
		Point: ui.entries[cut-1].Point,
		State: foldEntries(ui.entries[:cut]),
	}

	entries := make([]IndexEntry, 0, minCount+1)
	entries = append(entries, combined)
	entries = append(entries, ui.entries[cut:]...)

	return NewUtxoIndexFromEntries(entries)
}

// Entries returns the entries in sequence order. The caller must not modify
// the returned slice or its payloads.
func (ui *UtxoIndex) Entries() []IndexEntry {
	return ui.entries
}
