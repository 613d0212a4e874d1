package memcalc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveAutoWithinSegment(t *testing.T) {
	budget, err := Derive(Params{
		SegmentSize:     2 * NumBuffersForTest * NonceSize,
		NumBuffers:      2,
		AvailableMemory: 100 * NonceSize * NumBuffersForTest,
	})
	require.NoError(t, err)
	require.Zero(t, budget%(2*NonceSize))
	require.LessOrEqual(t, budget, uint64(2*NumBuffersForTest*NonceSize))
}

func TestDeriveCapsAt75PercentAvailable(t *testing.T) {
	budget, err := Derive(Params{
		SegmentSize:     1 << 40, // enormous, far beyond available memory
		NumBuffers:      2,
		AvailableMemory: 1000 * NonceSize,
	})
	require.NoError(t, err)
	require.LessOrEqual(t, budget, uint64(750*NonceSize))
}

func TestDeriveErrorsWhenBelowOneBuffer(t *testing.T) {
	_, err := Derive(Params{
		SegmentSize:     1 << 40,
		NumBuffers:      2,
		AvailableMemory: 1, // far below even one buffer's worth
	})
	require.ErrorIs(t, err, ErrInsufficientMemory)
}

func TestDeriveRejectsRequestBelowAcceleratorReservation(t *testing.T) {
	_, err := Derive(Params{
		UserRequest:            100,
		AcceleratorReservation: 200,
		SegmentSize:            1 << 20,
		NumBuffers:             2,
		AvailableMemory:        1 << 30,
	})
	require.Error(t, err)
}

func TestBufferNonces(t *testing.T) {
	require.Equal(t, uint64(10), BufferNonces(20*NonceSize, 2))
}

// NumBuffersForTest keeps the fixtures above readable.
const NumBuffersForTest = 4
