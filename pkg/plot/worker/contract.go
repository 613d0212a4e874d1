// Package worker implements the CPU and accelerator worker contract of
// spec §4.C/§4.D/§4.E: a common "submit a sub-range, report completion"
// interface the scheduler dispatches across without caring whether the
// concrete worker is a pinned CPU goroutine or a remote accelerator.
package worker

import (
	"context"

	"plotgen/pkg/plot/kernel"
)

// CPUTaskSize is the fixed CPU sub-range length of spec §4.C.
const CPUTaskSize = 64

// NonceSize mirrors kernel.NonceSize so the scheduler can turn a cache
// buffer's byte length into a nonce capacity without importing plot.
const NonceSize = kernel.NonceSize

// Stopper is the minimal view of the cancellation token the scheduler
// needs (spec §5/§9): many readers, one writer, checked cooperatively.
// plot.StopSignal satisfies this without either package importing the
// other.
type Stopper interface {
	Stopped() bool
}

// Progress is the subset of the spec §6.3 progress sink the scheduler
// produces directly; the plot package's Run adapts these into the full
// ProgressMessage variant it exposes to callers.
type Progress struct {
	Log      string
	Fraction float32 // hashing progress, 0..1
	SpeedNPM float64 // nonces per minute, 0 = not yet available
}

// CompletionKind distinguishes the two message kinds of spec §4.E step 4.
type CompletionKind int

const (
	// Completed reports that Count nonces finished; WorkerID identifies
	// which worker produced them.
	Completed CompletionKind = 0
	// ReadyForMore signals the worker identified by WorkerID is idle and
	// can accept another sub-range.
	ReadyForMore CompletionKind = 1
	// Failed reports that the worker could not complete its sub-range.
	// Accelerator workers use this instead of silently handing the work
	// back to the CPU pool once they have successfully connected once
	// (spec's "never silently fall back after a successful accelerator
	// connection" rule); the scheduler treats it as fatal for the run.
	Failed CompletionKind = 2
)

// Completion is one message on the shared completion channel. The channel
// is buffered, not unbounded: a worker sending a Completion blocks while
// the channel is full.
type Completion struct {
	WorkerID int
	Kind     CompletionKind
	Count    uint64
	Err      error
}

// Region describes the disjoint cache slice a worker must fill (spec §9
// "Raw byte views across thread boundaries"): a region descriptor passed by
// value, never an unsynchronized shared pointer with overlapping claims.
type Region struct {
	Cache         []byte
	CacheCapacity int // total nonce capacity of the whole cache buffer
	SlotOffset    int // first in-cache slot this region may write
}

// SubRange is one dispatch: "hash Count nonces starting at StartNonce into
// Region starting at Region.SlotOffset".
type SubRange struct {
	AccountID  uint64
	StartNonce uint64
	Count      uint64
	Region     Region
}

// Worker is the common contract of spec §9 "Dynamic accelerator list": the
// CPU worker pool and every accelerator worker implement it identically,
// and the scheduler never type-switches on the concrete kind.
type Worker interface {
	// ID is the worker identifier used in Completion messages. Accelerators
	// are addressed 1-based (spec §4.D); CPU workers are assigned distinct
	// negative IDs by the caller, so every concrete worker instance — not
	// just "the CPU pool" as a whole — can be looked back up from a
	// completion message.
	ID() int

	// Worksize is the number of nonces this worker processes per
	// dispatch: CPUTaskSize for CPU workers, the vendor-reported
	// worksize for accelerators.
	Worksize() uint64

	// Submit starts one sub-range. It must not block past the
	// dispatch itself; completion is reported asynchronously on the
	// shared completion channel supplied at construction time.
	Submit(ctx context.Context, sr SubRange)

	// Close releases the worker's resources (goroutine, connection).
	// It is safe to call once per worker at the end of a run.
	Close() error
}
