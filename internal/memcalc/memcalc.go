// Package memcalc implements the memory-budget derivation algorithm of
// spec §4.E: given a user request (or "auto"), the segment size, an
// accelerator host-memory reservation, and the system's available
// memory, it derives how large the scheduler's two cache buffers may
// be.
package memcalc

import (
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// NonceSize mirrors kernel.NonceSize; duplicated here (rather than
// imported) to keep this package free of any dependency on pkg/plot.
const NonceSize = 262144

// ErrInsufficientMemory means even a single buffer's worth of memory
// could not be derived from the available budget.
var ErrInsufficientMemory = errors.New("memcalc: insufficient memory for one buffer")

// Params are the inputs to Derive, spec §4.E "Memory-budget derivation".
type Params struct {
	// UserRequest is the operator's requested budget in bytes; 0 means
	// "auto".
	UserRequest uint64
	// SegmentSize is nonce_count * NONCE_SIZE.
	SegmentSize uint64
	// AcceleratorReservation is the total host-memory reservation
	// requested by configured accelerators.
	AcceleratorReservation uint64
	// DirectIO reports whether direct I/O is active for this run.
	DirectIO bool
	// SectorSize is the filesystem's sector size in bytes; only
	// consulted when DirectIO is true.
	SectorSize int
	// NumBuffers is the fixed cache-buffer pool size (spec: 2).
	NumBuffers int
	// AcceleratorActive reports whether any accelerator is configured.
	AcceleratorActive bool
	// AvailableMemory is the system's currently available physical
	// memory in bytes. Zero triggers AvailableMemoryFunc.
	AvailableMemory uint64
}

// AvailableMemoryFunc returns the system's available physical memory;
// overridable in tests. Grounded on gopsutil/v3/mem, the library the
// teacher's UI already imports for its live resource panel.
var AvailableMemoryFunc = func() (uint64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("memcalc: read system memory: %w", err)
	}
	return v.Available, nil
}

// Derive returns the total cache budget in bytes: a multiple of
// NumBuffers*NonceSize*noncesPerSector, no larger than segment size
// plus accelerator reservation, no larger than 75% of available
// memory. Divide the result by NumBuffers*NonceSize to get
// buffer_nonces.
func Derive(p Params) (uint64, error) {
	available := p.AvailableMemory
	if available == 0 {
		var err error
		available, err = AvailableMemoryFunc()
		if err != nil {
			return 0, err
		}
	}

	var budget uint64
	if p.UserRequest == 0 {
		budget = p.SegmentSize
	} else {
		if p.UserRequest <= p.AcceleratorReservation {
			return 0, fmt.Errorf("memcalc: memory request %d does not exceed accelerator reservation %d", p.UserRequest, p.AcceleratorReservation)
		}
		budget = p.UserRequest - p.AcceleratorReservation
	}

	if cap := p.SegmentSize + p.AcceleratorReservation; budget > cap {
		budget = cap
	}

	if cap := available * 75 / 100; budget > cap {
		budget = cap
	}

	noncesPerSector := uint64(1)
	if p.DirectIO {
		sectorSize := p.SectorSize
		if sectorSize <= 0 {
			sectorSize = 4096
		}
		noncesPerSector = uint64(sectorSize) / 64
		if noncesPerSector == 0 {
			noncesPerSector = 1
		}
	}
	if p.AcceleratorActive && noncesPerSector < 16 {
		noncesPerSector = 16
	}

	numBuffers := uint64(p.NumBuffers)
	if numBuffers == 0 {
		numBuffers = 2
	}
	granularity := numBuffers * NonceSize * noncesPerSector

	if budget < granularity {
		if available*75/100 >= granularity {
			budget = granularity
		} else {
			return 0, ErrInsufficientMemory
		}
	}

	return (budget / granularity) * granularity, nil
}

// BufferNonces converts a budget returned by Derive into the per-buffer
// nonce capacity.
func BufferNonces(totalBudget uint64, numBuffers int) uint64 {
	if numBuffers == 0 {
		numBuffers = 2
	}
	return totalBudget / (uint64(numBuffers) * NonceSize)
}
