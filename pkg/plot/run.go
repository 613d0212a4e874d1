package plot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"plotgen/internal/diskio"
	"plotgen/internal/memcalc"
	"plotgen/pkg/plot/kernel"
	"plotgen/pkg/plot/pagebuf"
	"plotgen/pkg/plot/worker"
	"plotgen/pkg/plot/writer"
)

// Run executes one full plotting pipeline (spec §2): it wires the
// buffer pool, the CPU and accelerator worker pools, the scheduler, and
// the writer, then blocks until nonce_count nonces are hashed and
// written, the stop signal is raised, or an unrecoverable error occurs.
//
// Run owns every resource it creates for the duration of the call:
// buffers, worker goroutines and accelerator connections are all
// released before it returns.
func Run(task Task) (err error) {
	task.Normalize(diskio.DefaultSectorSize)
	if verr := task.Validate(); verr != nil {
		emit(task.Progress, ProgressMessage{Err: verr.Error()})
		return verr
	}

	if !task.BenchmarkMode {
		if _, statErr := os.Stat(task.OutputDir); statErr != nil {
			emit(task.Progress, ProgressMessage{Err: ErrOutputDirMissing.Error()})
			return ErrOutputDirMissing
		}
	}

	defer func() {
		if err != nil {
			emit(task.Progress, ProgressMessage{Err: err.Error()})
		} else {
			emit(task.Progress, ProgressMessage{Done: true})
		}
	}()

	completions := make(chan worker.Completion, 256)

	accelerators := make([]worker.Worker, 0, len(task.AcceleratorSpecs))
	var acceleratorReservation uint64
	defer func() {
		for _, a := range accelerators {
			a.Close()
		}
	}()
	for i, spec := range task.AcceleratorSpecs {
		aw, dialErr := newAcceleratorWorker(i+1, spec, completions)
		if dialErr != nil {
			return fmt.Errorf("plot: %w", dialErr)
		}
		accelerators = append(accelerators, aw)
		acceleratorReservation += aw.Worksize() * NonceSize
	}
	if acceleratorReservation > task.MemoryBudget && task.MemoryBudget != 0 {
		return ErrAcceleratorMemory
	}

	budget, derr := memcalc.Derive(memcalc.Params{
		UserRequest:            task.MemoryBudget,
		SegmentSize:            task.NonceCount * NonceSize,
		AcceleratorReservation: acceleratorReservation,
		DirectIO:               task.DirectIO,
		SectorSize:             diskio.DefaultSectorSize,
		NumBuffers:             NumBuffers,
		AcceleratorActive:      len(accelerators) > 0,
	})
	if derr != nil {
		if errors.Is(derr, memcalc.ErrInsufficientMemory) {
			return ErrInsufficientMemory
		}
		return fmt.Errorf("plot: %w", derr)
	}

	bufferNonces := memcalc.BufferNonces(budget, NumBuffers)
	if bufferNonces == 0 {
		return ErrInsufficientMemory
	}

	emptyBuffers := make(chan *pagebuf.Buffer, NumBuffers)
	fullBuffers := make(chan *pagebuf.Buffer, NumBuffers)

	buffers := make([]*pagebuf.Buffer, 0, NumBuffers)
	defer func() {
		for _, b := range buffers {
			b.Close()
		}
	}()
	for i := 0; i < NumBuffers; i++ {
		buf, bufErr := pagebuf.New(int(bufferNonces) * NonceSize)
		if bufErr != nil {
			return fmt.Errorf("plot: %w", bufErr)
		}
		buffers = append(buffers, buf)
		emptyBuffers <- buf
	}

	cpuWorkerCount := task.CPUWorkerCount
	if cpuWorkerCount <= 0 {
		cpuWorkerCount = runtime.NumCPU()
	}
	width := kernel.BestWidth()
	cpuWorkers := make([]*worker.CPUWorker, 0, cpuWorkerCount)
	defer func() {
		for _, w := range cpuWorkers {
			w.Close()
		}
	}()
	for i := 0; i < cpuWorkerCount; i++ {
		// Negative, 1-based IDs keep every CPU worker distinct from every
		// other CPU worker and from the positive, 1-based accelerator IDs
		// assigned above (see Worker.ID's doc).
		cpuWorkers = append(cpuWorkers, worker.NewCPUWorker(-(i + 1), i, width, completions))
	}

	stop := task.StopSignal
	if stop == nil {
		stop = NewStopSignal()
	}

	wr := &writer.Writer{
		NonceCount:    task.NonceCount,
		BufferNonces:  bufferNonces,
		OutputPath:    filepath.Join(task.OutputDir, task.FileName()),
		DirectIO:      task.DirectIO,
		BenchmarkMode: task.BenchmarkMode,
		FullBuffers:   fullBuffers,
		EmptyBuffers:  emptyBuffers,
		Stop:          stop,
		OnProgress: func(p writer.Progress) {
			emit(task.Progress, ProgressMessage{WriteProgress: p.WriteFraction, WriteSpeedMiB: p.WriteSpeedMiB})
		},
	}
	if err = wr.Open(); err != nil {
		return err
	}

	if wr.NoncesWritten > task.NonceCount {
		return fmt.Errorf("plot: resume marker (%d nonces) exceeds requested nonce_count (%d)", wr.NoncesWritten, task.NonceCount)
	}

	sched := &worker.Scheduler{
		AccountID:    task.AccountID,
		StartNonce:   task.StartNonce + wr.NoncesWritten,
		NonceCount:   task.NonceCount - wr.NoncesWritten,
		BufferNonces: bufferNonces,
		CPUWorkers:   cpuWorkers,
		Accelerators: accelerators,
		Completions:  completions,
		EmptyBuffers: emptyBuffers,
		FullBuffers:  fullBuffers,
		Stop:         stop,
		OnProgress: func(p worker.Progress) {
			emit(task.Progress, ProgressMessage{Progress: p.Fraction, SpeedNPM: p.SpeedNPM})
		},
	}

	writerDone := make(chan error, 1)
	go func() { writerDone <- wr.Run() }()

	_, schedErr := sched.Run(context.Background())
	werr := <-writerDone

	if stop.Stopped() {
		return ErrStopRequested
	}
	if schedErr != nil {
		return schedErr
	}
	if werr != nil {
		return werr
	}
	return nil
}
