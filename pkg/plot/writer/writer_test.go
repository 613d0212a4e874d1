package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"plotgen/pkg/plot/kernel"
	"plotgen/pkg/plot/pagebuf"
)

type fakeStopper struct{ stopped bool }

func (f *fakeStopper) Stopped() bool { return f.stopped }

func TestWriterWritesScoopTransposedLayout(t *testing.T) {
	const nonceCount = 4

	dir := t.TempDir()
	path := filepath.Join(dir, "plot")

	buf, err := pagebuf.New(nonceCount * kernel.NonceSize)
	require.NoError(t, err)
	defer buf.Close()

	kernel.ComputeBatch(1, 0, nonceCount, buf.Bytes(), nonceCount, 0)

	full := make(chan *pagebuf.Buffer, 1)
	empty := make(chan *pagebuf.Buffer, 1)
	full <- buf

	w := &Writer{
		NonceCount:   nonceCount,
		BufferNonces: nonceCount,
		OutputPath:   path,
		FullBuffers:  full,
		EmptyBuffers: empty,
		Stop:         &fakeStopper{},
	}

	require.NoError(t, w.Open())
	require.NoError(t, w.Run())

	<-empty // buffer returned

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, nonceCount*kernel.NonceSize+TrailerSize)

	var scratch [kernel.NonceSize]byte
	kernel.Compute(1, 2, scratch[:])
	wantScoop0Low := scratch[0:32]

	gotScoop0Nonce2 := data[2*64 : 2*64+32]
	require.Equal(t, wantScoop0Low, gotScoop0Nonce2)

	nonces, ok, err := ReadResumeInfo(func() *os.File {
		f, err := os.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { f.Close() })
		return f
	}())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(nonceCount), nonces)
}

func TestWriterBenchmarkModeCreatesNoFile(t *testing.T) {
	const nonceCount = 1

	dir := t.TempDir()
	path := filepath.Join(dir, "plot")

	buf, err := pagebuf.New(nonceCount * kernel.NonceSize)
	require.NoError(t, err)
	defer buf.Close()

	full := make(chan *pagebuf.Buffer, 1)
	empty := make(chan *pagebuf.Buffer, 1)
	full <- buf

	w := &Writer{
		NonceCount:    nonceCount,
		BufferNonces:  nonceCount,
		OutputPath:    path,
		BenchmarkMode: true,
		FullBuffers:   full,
		EmptyBuffers:  empty,
		Stop:          &fakeStopper{},
	}

	require.NoError(t, w.Open())
	require.NoError(t, w.Run())
	<-empty

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestWriterStopsEarlyWithoutWritingResumeMarker(t *testing.T) {
	const nonceCount = 4

	dir := t.TempDir()
	path := filepath.Join(dir, "plot")

	full := make(chan *pagebuf.Buffer)
	empty := make(chan *pagebuf.Buffer, 1)

	w := &Writer{
		NonceCount:   nonceCount,
		BufferNonces: nonceCount,
		OutputPath:   path,
		FullBuffers:  full,
		EmptyBuffers: empty,
		Stop:         &fakeStopper{stopped: true},
	}

	require.NoError(t, w.Open())
	require.NoError(t, w.Run())
	require.Zero(t, w.NoncesWritten)
}
