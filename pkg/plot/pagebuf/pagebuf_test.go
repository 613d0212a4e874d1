package pagebuf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewZeroedAndSized(t *testing.T) {
	b, err := New(4096)
	require.NoError(t, err)
	defer b.Close()

	require.Equal(t, 4096, b.Len())
	for _, v := range b.Bytes() {
		require.Zero(t, v)
	}
}

func TestCloseIdempotent(t *testing.T) {
	b, err := New(4096)
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestRejectsNonPositiveSize(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
}
