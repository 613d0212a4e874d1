package worker

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"plotgen/pkg/plot/kernel"
)

// CPUWorker runs on one pinned OS thread and hashes sub-ranges of up to
// CPUTaskSize nonces at a time (spec §4.C). Its hot path never takes a
// lock: the cache region it writes to is disjoint from every other
// worker's region for the lifetime of a buffer fill.
type CPUWorker struct {
	id           int
	width        kernel.Width
	tasks        chan SubRange
	done         chan struct{}
	completions  chan<- Completion
	tasksHandled atomic.Int64
}

// NewCPUWorker starts the worker's goroutine, pinned to core (best effort:
// pinning failures are non-fatal, matching spec §4.C's "SHOULD").
func NewCPUWorker(id int, core int, width kernel.Width, completions chan<- Completion) *CPUWorker {
	w := &CPUWorker{
		id:          id,
		width:       width,
		tasks:       make(chan SubRange, 1),
		done:        make(chan struct{}),
		completions: completions,
	}
	go w.run(core)
	return w
}

func (w *CPUWorker) ID() int          { return w.id }
func (w *CPUWorker) Worksize() uint64 { return CPUTaskSize }

// TasksHandled reports how many sub-ranges this worker has finished
// hashing so far. Diagnostic only; the scheduler doesn't consult it.
func (w *CPUWorker) TasksHandled() int64 { return w.tasksHandled.Load() }

func (w *CPUWorker) Submit(_ context.Context, sr SubRange) {
	w.tasks <- sr
}

func (w *CPUWorker) Close() error {
	close(w.tasks)
	<-w.done
	return nil
}

func (w *CPUWorker) run(core int) {
	defer close(w.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	pinToCore(core)

	for sr := range w.tasks {
		kernel.ComputeBatchWide(
			w.width,
			sr.AccountID,
			sr.StartNonce,
			int(sr.Count),
			sr.Region.Cache,
			sr.Region.CacheCapacity,
			sr.Region.SlotOffset,
		)
		w.tasksHandled.Add(1)
		w.completions <- Completion{WorkerID: w.id, Kind: Completed, Count: sr.Count}
		w.completions <- Completion{WorkerID: w.id, Kind: ReadyForMore}
	}
}

// pinToCore pins the calling (already LockOSThread'd) thread to a single
// logical CPU. Best effort: errors are ignored, matching the teacher's
// treatment of optional hardware affinity (pkg/hashing/hardware detection
// degrades to "unavailable" rather than failing the run).
func pinToCore(core int) {
	if core < 0 {
		return
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	_ = unix.SchedSetaffinity(0, &set)
}
