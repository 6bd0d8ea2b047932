package core

import (
	"fmt"
)

// DefaultConfirmationDepth is the number of descendant blocks after which a
// transaction can no longer be rolled back.
const DefaultConfirmationDepth = Depth(8)

type TxValidity int

const (
	TxValidityUnknown TxValidity = iota
	TxValidityValid
	TxValidityInvalid
)

func NewTxValidity(isValid bool) TxValidity {
	if isValid {
		return TxValidityValid
	}

	return TxValidityInvalid
}

// Meet combines two validity observations: equal known values agree,
// any disagreement collapses to unknown.
func (v TxValidity) Meet(other TxValidity) TxValidity {
	if v == other {
		return v
	}

	return TxValidityUnknown
}

func (v TxValidity) String() string {
	switch v {
	case TxValidityValid:
		return "valid"
	case TxValidityInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Depth is a confirmation depth: the number of blocks mined on top of the
// block containing a transaction.
type Depth uint64

// Meet keeps the more confirmed of two observations.
func (d Depth) Meet(other Depth) Depth {
	if other > d {
		return other
	}

	return d
}

type TxStatusKind int

const (
	TxStatusUnknown TxStatusKind = iota
	TxStatusTentativelyConfirmed
	TxStatusCommitted
)

// TxStatus is the confirmation status of a single transaction:
// unknown -> tentatively confirmed (depth grows) -> committed.
// A committed transaction never leaves that state.
type TxStatus struct {
	Kind     TxStatusKind `json:"kind"`
	Depth    Depth        `json:"depth,omitempty"`
	Validity TxValidity   `json:"validity,omitempty"`
}

func UnknownTxStatus() TxStatus {
	return TxStatus{Kind: TxStatusUnknown}
}

func TentativelyConfirmed(depth Depth, validity TxValidity) TxStatus {
	return TxStatus{Kind: TxStatusTentativelyConfirmed, Depth: depth, Validity: validity}
}

func Committed(validity TxValidity) TxStatus {
	return TxStatus{Kind: TxStatusCommitted, Validity: validity}
}

// InitialStatus is the status of a transaction right after its block was
// observed: tentatively confirmed at depth zero.
func InitialStatus(tx *Tx) TxStatus {
	return TentativelyConfirmed(0, NewTxValidity(tx.Valid))
}

// Meet reconciles two independently derived statuses for the same transaction.
// Unknown yields the other operand, committed absorbs everything else.
func (s TxStatus) Meet(other TxStatus) TxStatus {
	switch {
	case s.Kind == TxStatusUnknown:
		return other
	case other.Kind == TxStatusUnknown:
		return s
	case s.Kind == TxStatusCommitted || other.Kind == TxStatusCommitted:
		return Committed(s.Validity.Meet(other.Validity))
	default:
		return TentativelyConfirmed(s.Depth.Meet(other.Depth), s.Validity.Meet(other.Validity))
	}
}

// IncreaseDepth advances a tentatively confirmed status by one block,
// promoting it to committed once the depth has reached confirmationDepth.
// Unknown and committed statuses are left untouched.
func (s TxStatus) IncreaseDepth(confirmationDepth Depth) TxStatus {
	if s.Kind != TxStatusTentativelyConfirmed {
		return s
	}

	if s.Depth < confirmationDepth {
		return TentativelyConfirmed(s.Depth+1, s.Validity)
	}

	return Committed(s.Validity)
}

// IsConfirmed reports whether the status has at least minDepth confirmations.
func (s TxStatus) IsConfirmed(minDepth Depth) bool {
	switch s.Kind {
	case TxStatusCommitted:
		return true
	case TxStatusTentativelyConfirmed:
		return s.Depth >= minDepth
	default:
		return false
	}
}

func (s TxStatus) String() string {
	switch s.Kind {
	case TxStatusTentativelyConfirmed:
		return fmt.Sprintf("tentatively confirmed (depth = %d, %s)", s.Depth, s.Validity)
	case TxStatusCommitted:
		return fmt.Sprintf("committed (%s)", s.Validity)
	default:
		return "unknown"
	}
}
