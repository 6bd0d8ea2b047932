package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxValidityMeet(t *testing.T) {
	values := []TxValidity{TxValidityUnknown, TxValidityValid, TxValidityInvalid}

	for _, a := range values {
		// idempotent
		assert.Equal(t, a, a.Meet(a))

		for _, b := range values {
			// commutative
			assert.Equal(t, a.Meet(b), b.Meet(a))

			if a != b {
				assert.Equal(t, TxValidityUnknown, a.Meet(b))
			}

			for _, c := range values {
				// associative
				assert.Equal(t, a.Meet(b).Meet(c), a.Meet(b.Meet(c)))
			}
		}
	}
}

func TestDepthMeet(t *testing.T) {
	assert.Equal(t, Depth(7), Depth(3).Meet(7))
	assert.Equal(t, Depth(7), Depth(7).Meet(3))
	assert.Equal(t, Depth(4), Depth(4).Meet(4))
}

func TestTxStatusMeetUnknownIsIdentity(t *testing.T) {
	statuses := []TxStatus{
		UnknownTxStatus(),
		TentativelyConfirmed(3, TxValidityValid),
		TentativelyConfirmed(5, TxValidityInvalid),
		Committed(TxValidityValid),
	}

	for _, s := range statuses {
		assert.Equal(t, s, UnknownTxStatus().Meet(s))
		assert.Equal(t, s, s.Meet(UnknownTxStatus()))
	}
}

func TestTxStatusMeetLaws(t *testing.T) {
	statuses := []TxStatus{
		UnknownTxStatus(),
		TentativelyConfirmed(0, TxValidityValid),
		TentativelyConfirmed(3, TxValidityValid),
		TentativelyConfirmed(5, TxValidityInvalid),
		Committed(TxValidityValid),
		Committed(TxValidityInvalid),
	}

	for _, a := range statuses {
		assert.Equal(t, a, a.Meet(a))

		for _, b := range statuses {
			assert.Equal(t, a.Meet(b), b.Meet(a))

			for _, c := range statuses {
				assert.Equal(t, a.Meet(b).Meet(c), a.Meet(b.Meet(c)))
			}
		}
	}
}

func TestTxStatusMeetCommittedIsAbsorbing(t *testing.T) {
	tentative := TentativelyConfirmed(3, TxValidityValid)
	committed := Committed(TxValidityValid)

	result := tentative.Meet(committed)
	assert.Equal(t, TxStatusCommitted, result.Kind)
	assert.Equal(t, TxValidityValid, result.Validity)

	// disagreeing validities collapse to unknown
	result = Committed(TxValidityInvalid).Meet(committed)
	assert.Equal(t, TxStatusCommitted, result.Kind)
	assert.Equal(t, TxValidityUnknown, result.Validity)
}

func TestTxStatusMeetTentativePointwise(t *testing.T) {
	a := TentativelyConfirmed(2, TxValidityValid)
	b := TentativelyConfirmed(5, TxValidityValid)

	result := a.Meet(b)
	assert.Equal(t, TxStatusTentativelyConfirmed, result.Kind)
	assert.Equal(t, Depth(5), result.Depth)
	assert.Equal(t, TxValidityValid, result.Validity)
}

func TestIncreaseDepthMonotonicity(t *testing.T) {
	const confirmationDepth = DefaultConfirmationDepth

	status := TentativelyConfirmed(0, TxValidityValid)

	for expected := Depth(1); expected <= confirmationDepth; expected++ {
		status = status.IncreaseDepth(confirmationDepth)
		require.Equal(t, TxStatusTentativelyConfirmed, status.Kind)
		require.Equal(t, expected, status.Depth)
		require.Equal(t, TxValidityValid, status.Validity)
	}

	// the next call promotes, every one after that is a no-op
	status = status.IncreaseDepth(confirmationDepth)
	require.Equal(t, Committed(TxValidityValid), status)

	status = status.IncreaseDepth(confirmationDepth)
	require.Equal(t, Committed(TxValidityValid), status)
}

func TestIncreaseDepthNoOpOnUnknown(t *testing.T) {
	assert.Equal(t, UnknownTxStatus(), UnknownTxStatus().IncreaseDepth(DefaultConfirmationDepth))
}

func TestIsConfirmedBoundary(t *testing.T) {
	const d = Depth(4)

	assert.True(t, TentativelyConfirmed(d, TxValidityValid).IsConfirmed(d))
	assert.False(t, TentativelyConfirmed(d, TxValidityValid).IsConfirmed(d+1))
	assert.True(t, Committed(TxValidityInvalid).IsConfirmed(1000))
	assert.False(t, UnknownTxStatus().IsConfirmed(0))
}

func TestInitialStatus(t *testing.T) {
	status := InitialStatus(&Tx{Hash: "aa", Valid: true})
	assert.Equal(t, TentativelyConfirmed(0, TxValidityValid), status)

	status = InitialStatus(&Tx{Hash: "bb", Valid: false})
	assert.Equal(t, TentativelyConfirmed(0, TxValidityInvalid), status)
}
