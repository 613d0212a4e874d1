package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"plotgen/pkg/plot/kernel"
	"plotgen/pkg/plot/pagebuf"
)

type fakeStopper struct{ stopped bool }

func (f *fakeStopper) Stopped() bool { return f.stopped }

func TestSchedulerFillsBufferAcrossSubRanges(t *testing.T) {
	const nonceCount = 256

	buf, err := pagebuf.New(nonceCount * NonceSize)
	require.NoError(t, err)
	defer buf.Close()

	completions := make(chan Completion, 8)
	cpu := NewCPUWorker(-1, -1, kernel.Width1, completions)
	defer cpu.Close()

	empty := make(chan *pagebuf.Buffer, 1)
	full := make(chan *pagebuf.Buffer, 1)
	empty <- buf

	var lastProgress Progress
	s := &Scheduler{
		AccountID:    1,
		StartNonce:   0,
		NonceCount:   nonceCount,
		BufferNonces: nonceCount,
		CPUWorkers:   []*CPUWorker{cpu},
		Completions:  completions,
		EmptyBuffers: empty,
		FullBuffers:  full,
		Stop:         &fakeStopper{},
		OnProgress:   func(p Progress) { lastProgress = p },
	}

	hashed, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(nonceCount), hashed)
	require.InDelta(t, 1.0, lastProgress.Fraction, 0.001)

	filled := <-full
	require.Same(t, buf, filled)

	var allZero = true
	for _, v := range filled.Bytes() {
		if v != 0 {
			allZero = false
			break
		}
	}
	require.False(t, allZero, "scheduler should have written hashed nonce data into the buffer")
}

func TestSchedulerStopsEarly(t *testing.T) {
	const nonceCount = 1 << 20

	buf, err := pagebuf.New(nonceCount * NonceSize)
	require.NoError(t, err)
	defer buf.Close()

	completions := make(chan Completion, 8)
	cpu := NewCPUWorker(-1, -1, kernel.Width1, completions)
	defer cpu.Close()

	empty := make(chan *pagebuf.Buffer, 1)
	full := make(chan *pagebuf.Buffer, 1)
	empty <- buf

	stop := &fakeStopper{stopped: true}
	s := &Scheduler{
		AccountID:    1,
		NonceCount:   nonceCount,
		BufferNonces: nonceCount,
		CPUWorkers:   []*CPUWorker{cpu},
		Completions:  completions,
		EmptyBuffers: empty,
		FullBuffers:  full,
		Stop:         stop,
	}

	hashed, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, hashed)
}

// failingAccelerator reports Failed on its first dispatch, modelling a
// connected accelerator whose compute call errors mid-run.
type failingAccelerator struct {
	id          int
	worksize    uint64
	completions chan<- Completion
}

func (f *failingAccelerator) ID() int          { return f.id }
func (f *failingAccelerator) Worksize() uint64 { return f.worksize }
func (f *failingAccelerator) Close() error     { return nil }

func (f *failingAccelerator) Submit(_ context.Context, _ SubRange) {
	f.completions <- Completion{WorkerID: f.id, Kind: Failed, Err: errAcceleratorStub}
}

var errAcceleratorStub = &stubError{"accelerator stub failure"}

type stubError struct{ s string }

func (e *stubError) Error() string { return e.s }

func TestSchedulerSurfacesAcceleratorFailure(t *testing.T) {
	const nonceCount = 256

	buf, err := pagebuf.New(nonceCount * NonceSize)
	require.NoError(t, err)
	defer buf.Close()

	completions := make(chan Completion, 8)
	acc := &failingAccelerator{id: 1, worksize: nonceCount, completions: completions}

	empty := make(chan *pagebuf.Buffer, 1)
	full := make(chan *pagebuf.Buffer, 1)
	empty <- buf

	s := &Scheduler{
		AccountID:    1,
		NonceCount:   nonceCount,
		BufferNonces: nonceCount,
		Accelerators: []Worker{acc},
		Completions:  completions,
		EmptyBuffers: empty,
		FullBuffers:  full,
		Stop:         &fakeStopper{},
	}

	hashed, err := s.Run(context.Background())
	require.ErrorIs(t, err, errAcceleratorStub)
	require.Zero(t, hashed)
}

// TestSchedulerDistributesAcrossMultipleCPUWorkers guards against every CPU
// worker reporting completions under a shared ID: if the scheduler cannot
// tell which concrete worker went idle, every ReadyForMore after the initial
// pre-fill round gets redispatched to a single worker and the rest sit idle
// forever.
func TestSchedulerDistributesAcrossMultipleCPUWorkers(t *testing.T) {
	const nonceCount = 256 // 4 CPUTaskSize(64) sub-ranges

	buf, err := pagebuf.New(nonceCount * NonceSize)
	require.NoError(t, err)
	defer buf.Close()

	completions := make(chan Completion, 8)
	cpu1 := NewCPUWorker(-1, -1, kernel.Width1, completions)
	defer cpu1.Close()
	cpu2 := NewCPUWorker(-2, -1, kernel.Width1, completions)
	defer cpu2.Close()

	empty := make(chan *pagebuf.Buffer, 1)
	full := make(chan *pagebuf.Buffer, 1)
	empty <- buf

	s := &Scheduler{
		AccountID:    1,
		NonceCount:   nonceCount,
		BufferNonces: nonceCount,
		CPUWorkers:   []*CPUWorker{cpu1, cpu2},
		Completions:  completions,
		EmptyBuffers: empty,
		FullBuffers:  full,
		Stop:         &fakeStopper{},
	}

	done := make(chan struct{})
	var hashed uint64
	var runErr error
	go func() {
		hashed, runErr = s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not finish: a starved worker never sent its remaining ReadyForMore dispatches")
	}

	require.NoError(t, runErr)
	require.Equal(t, uint64(nonceCount), hashed)
	<-full

	require.Greater(t, cpu1.TasksHandled(), int64(1), "worker 1 should have been redispatched at least once")
	require.Greater(t, cpu2.TasksHandled(), int64(1), "worker 2 should have been redispatched at least once, not starved after the pre-fill round")
}
