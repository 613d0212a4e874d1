// Package plot is the core nonce-plotting pipeline: given an account id and
// a nonce range, it deterministically fills a scoop-transposed plot file.
// Everything outside this package (CLI/GUI front ends, logging sinks,
// process-priority helpers, accelerator drivers) is an external
// collaborator talked to only through the types in this file.
package plot

import (
	"errors"
	"fmt"
	"sync/atomic"

	"plotgen/pkg/plot/kernel"
)

// NonceSize is the size in bytes of one nonce's worth of plot data.
const NonceSize = kernel.NonceSize

// NumScoops is the number of 64-byte scoops per nonce.
const NumScoops = kernel.NumScoops

// ScoopSize is the size in bytes of one scoop.
const ScoopSize = kernel.ScoopSize

// CPUTaskSize is the number of nonces a single CPU sub-range covers
// (spec §4.C).
const CPUTaskSize = 64

// WriteChunkNonces is the number of nonces the writer moves per scoop
// per I/O call (spec §4.F, "TASK_SIZE").
const WriteChunkNonces = 16384

// NumBuffers is the fixed size of the cache buffer pool (spec §2: "design
// uses 2").
const NumBuffers = 2

// Sentinel errors for the fixed error kinds of spec §7.
var (
	// ErrResumeMarkerMissing means a plot file exists but its trailing 8
	// bytes are not a valid resume marker. Fatal: the operator must delete
	// the file before retrying.
	ErrResumeMarkerMissing = errors.New("plot: resume marker missing or corrupt")

	// ErrInsufficientMemory means the configuration or memory-budget
	// derivation could not produce even one buffer's worth of memory.
	ErrInsufficientMemory = errors.New("plot: insufficient memory for one buffer")

	// ErrAcceleratorMemory means an accelerator's host-memory reservation
	// exceeds the requested budget.
	ErrAcceleratorMemory = errors.New("plot: accelerator memory reservation exceeds budget")

	// ErrOutputDirMissing means the configured output directory does not
	// exist.
	ErrOutputDirMissing = errors.New("plot: output directory does not exist")

	// ErrStopRequested is surfaced through the progress sink when the run
	// is cancelled by the stop signal rather than completing naturally.
	ErrStopRequested = errors.New("plot: STOP_REQUESTED")

	// ErrNonceCountTooLarge means nonce_count exceeds the 32-bit resume
	// marker's range (spec §9 open question; this implementation refuses
	// such runs rather than silently truncating).
	ErrNonceCountTooLarge = errors.New("plot: nonce_count exceeds 32-bit resume range")
)

// AcceleratorSpec is the opaque "platform_id:device_id:cores" string of
// spec §6.4, parsed only by the accelerator worker factory.
type AcceleratorSpec string

// Task is the immutable run descriptor of spec §3. Once Run(task) starts,
// nothing in Task may change; callers that need to mutate nonce_count for
// sector-alignment rounding should call Normalize first and use the result.
type Task struct {
	AccountID        uint64
	StartNonce       uint64
	NonceCount       uint64
	OutputDir        string
	MemoryBudget     uint64 // bytes; 0 = auto
	CPUWorkerCount   int
	AcceleratorSpecs []AcceleratorSpec
	DirectIO         bool
	BenchmarkMode    bool

	// StopSignal is shared by value (reference-counted) with the
	// controller; nil means "never stops early".
	StopSignal *StopSignal

	// Progress is a passive sink the core never queries and never
	// assumes delivery to (spec §9 "Cyclic progress reporting").
	Progress chan<- ProgressMessage
}

// FileName is the plot file name of spec §6.2.
func (t *Task) FileName() string {
	return fmt.Sprintf("%d_%d_%d", t.AccountID, t.StartNonce, t.NonceCount)
}

// Normalize rounds NonceCount down to a multiple of sectorSize/64
// nonces when direct I/O is requested, so every write this run produces
// is sector-aligned and sector-sized (spec §4.G). Call before Validate.
func (t *Task) Normalize(sectorSize int) {
	if !t.DirectIO || sectorSize <= 0 {
		return
	}
	noncesPerSector := uint64(sectorSize) / ScoopSize
	if noncesPerSector == 0 {
		return
	}
	t.NonceCount -= t.NonceCount % noncesPerSector
}

// Validate checks the configuration-error class of spec §7 before any disk
// or buffer work begins.
func (t *Task) Validate() error {
	if t.NonceCount == 0 {
		return fmt.Errorf("plot: nonce_count must be positive")
	}
	if t.NonceCount > 1<<32-1 {
		return ErrNonceCountTooLarge
	}
	if t.OutputDir == "" {
		return fmt.Errorf("plot: output_dir must be set")
	}
	if t.CPUWorkerCount < 0 {
		return fmt.Errorf("plot: cpu_worker_count must be non-negative")
	}
	return nil
}

// StopSignal is the process-wide cancellation token of spec §5/§9: many
// readers (scheduler, writer), one writer (the controller).
type StopSignal struct {
	flag atomic.Bool
}

// NewStopSignal returns a fresh, unraised stop signal.
func NewStopSignal() *StopSignal {
	return &StopSignal{}
}

// Stop raises the signal. Idempotent.
func (s *StopSignal) Stop() {
	if s == nil {
		return
	}
	s.flag.Store(true)
}

// Stopped reports whether the signal has been raised. A nil *StopSignal is
// never stopped.
func (s *StopSignal) Stopped() bool {
	return s != nil && s.flag.Load()
}

// ProgressMessage is one variant of the progress sink of spec §6.3. The
// core populates one variant per message: Log, Progress with SpeedNPM,
// WriteProgress with WriteSpeedMiB, Err, or Done.
type ProgressMessage struct {
	Log           string
	Progress      float32 // 0..1, hashing progress
	WriteProgress float32 // 0..1, write progress
	SpeedNPM      float64 // nonces per minute
	WriteSpeedMiB float64 // MiB/sec
	Err           string
	Done          bool
}

// emit drops the message silently if the sink is full or nil, matching
// spec §9's "the core never queries it and never assumes delivery".
func emit(sink chan<- ProgressMessage, msg ProgressMessage) {
	if sink == nil {
		return
	}
	select {
	case sink <- msg:
	default:
	}
}
