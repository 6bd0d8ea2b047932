package core

import (
	"fmt"
)

// TxConfirmation is the mergeable per-transaction aggregate: how many times
// the transaction was confirmed, the block that last added it and the validity
// observed there. Only TxIdStateFromTx builds populated aggregates, so a
// well-formed state never holds an aggregate with missing fields.
type TxConfirmation struct {
	TimesConfirmed uint64     `json:"timesConfirmed"`
	BlockAdded     uint64     `json:"blockAdded"`
	Validity       TxValidity `json:"validity"`
}

// Merge sums confirmation counts; block number and validity are last write
// wins. The zero value is the identity.
func (tc TxConfirmation) Merge(other TxConfirmation) TxConfirmation {
	switch {
	case other == (TxConfirmation{}):
		return tc
	case tc == (TxConfirmation{}):
		return other
	}

	return TxConfirmation{
		TimesConfirmed: tc.TimesConfirmed + other.TimesConfirmed,
		BlockAdded:     other.BlockAdded,
		Validity:       other.Validity,
	}
}

// TxIdState is the per-block index payload: confirmation aggregates and
// deletion credits keyed by transaction hash. It forms a monoid under
// pointwise map union, merging aggregates and summing deletion counts.
type TxIdState struct {
	Confirmed map[string]TxConfirmation `json:"confirmed"`
	Deleted   map[string]uint64         `json:"deleted"`
}

func NewTxIdState() TxIdState {
	return TxIdState{
		Confirmed: map[string]TxConfirmation{},
		Deleted:   map[string]uint64{},
	}
}

// Merge returns the combination of both states without touching either
// operand. Aggregates for transactions present on both sides merge left to
// right, so the right operand's block/validity win.
func (s TxIdState) Merge(other TxIdState) TxIdState {
	result := NewTxIdState()
	result.accumulate(s)
	result.accumulate(other)

	return result
}

// accumulate merges other into s in place. Callers must only ever apply
// deltas left to right in block order, which pins the last-write-wins fields.
func (s TxIdState) accumulate(other TxIdState) {
	for hash, confirmation := range other.Confirmed {
		if existing, exists := s.Confirmed[hash]; exists {
			confirmation = existing.Merge(confirmation)
		}

		s.Confirmed[hash] = confirmation
	}

	for hash, count := range other.Deleted {
		s.Deleted[hash] += count
	}
}

// TxIdStateFromTx is the singleton delta produced by observing one
// transaction in the block with the given number.
func TxIdStateFromTx(blockNumber uint64, tx *Tx) TxIdState {
	state := NewTxIdState()
	state.Confirmed[tx.Hash] = TxConfirmation{
		TimesConfirmed: 1,
		BlockAdded:     blockNumber,
		Validity:       NewTxValidity(tx.Valid),
	}

	return state
}

// InvalidStateError signals a confirmation aggregate that could not have been
// produced by TxIdStateFromTx. It indicates corrupted persisted state or a
// programming fault, never a recoverable runtime condition.
type InvalidStateError struct {
	TxHash string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid confirmation state for transaction %s", e.TxHash)
}

// TransactionStatus computes the live status of a transaction from the
// accumulated state as of currentBlock. A transaction inside the rollback
// window of confirmationDepth blocks is tentatively confirmed; older than
// that it is committed. Deletion credits recorded by rollbacks offset
// confirmations, so a transaction whose deletions outnumber its confirmations
// reads as unknown until it is confirmed again.
func TransactionStatus(
	currentBlock uint64, confirmationDepth Depth, state TxIdState, txHash string,
) (TxStatus, error) {
	confirmation, exists := state.Confirmed[txHash]
	if !exists {
		return UnknownTxStatus(), nil
	}

	if confirmation.TimesConfirmed == 0 || confirmation.Validity == TxValidityUnknown {
		return TxStatus{}, &InvalidStateError{TxHash: txHash}
	}

	if deleted, exists := state.Deleted[txHash]; exists && confirmation.TimesConfirmed < deleted {
		return UnknownTxStatus(), nil
	}

	if currentBlock < confirmation.BlockAdded {
		// the confirming block is ahead of the queried block, depth saturates at zero
		return TentativelyConfirmed(0, confirmation.Validity), nil
	}

	if confirmation.BlockAdded+uint64(confirmationDepth) >= currentBlock {
		return TentativelyConfirmed(Depth(currentBlock-confirmation.BlockAdded), confirmation.Validity), nil
	}

	return Committed(confirmation.Validity), nil
}
