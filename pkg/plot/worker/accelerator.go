package worker

import (
	"context"
	"fmt"

	"plotgen/pkg/plot/accel"
	"plotgen/pkg/plot/kernel"
)

// AcceleratorWorker adapts an accel.Client to the Worker contract (spec
// §4.D). Every dispatch runs in its own goroutine since the underlying
// RPC is the only blocking step; the worker itself holds no task queue.
type AcceleratorWorker struct {
	id          int
	client      *accel.Client
	worksize    uint64
	completions chan<- Completion
}

// NewAcceleratorWorker dials address, performs the handshake, and
// returns a worker reporting id in every completion message. A dial or
// handshake failure, or a reported worksize of 0, is returned directly as
// an error and no worker is created, so an accelerator that never connects
// cannot enroll in a degraded mode.
func NewAcceleratorWorker(id int, address string, completions chan<- Completion) (*AcceleratorWorker, error) {
	client, hs, err := accel.Dial(address)
	if err != nil {
		return nil, fmt.Errorf("accelerator %d: %w", id, err)
	}
	if hs.Worksize == 0 {
		client.Close()
		return nil, fmt.Errorf("accelerator %d: reported worksize of 0", id)
	}
	return &AcceleratorWorker{
		id:          id,
		client:      client,
		worksize:    hs.Worksize,
		completions: completions,
	}, nil
}

func (w *AcceleratorWorker) ID() int          { return w.id }
func (w *AcceleratorWorker) Worksize() uint64 { return w.worksize }

// Submit starts the RPC in a new goroutine and reports the outcome on
// the shared completion channel. A failed RPC is reported as Failed,
// not silently retried on the CPU pool: once a connection has been
// established, an accelerator error is a run failure.
func (w *AcceleratorWorker) Submit(ctx context.Context, sr SubRange) {
	go func() {
		resp, err := w.client.Compute(ctx, &accel.ComputeRequest{
			AccountID:  sr.AccountID,
			StartNonce: sr.StartNonce,
			Count:      sr.Count,
		})
		if err != nil {
			w.completions <- Completion{WorkerID: w.id, Kind: Failed, Err: fmt.Errorf("accelerator %d: %w", w.id, err)}
			return
		}
		want := int(sr.Count) * NonceSize
		if len(resp.Data) != want {
			w.completions <- Completion{WorkerID: w.id, Kind: Failed, Err: fmt.Errorf("accelerator %d: expected %d bytes, got %d", w.id, want, len(resp.Data))}
			return
		}
		for k := 0; k < int(sr.Count); k++ {
			nonceData := resp.Data[k*NonceSize : (k+1)*NonceSize]
			kernel.Place(nonceData, sr.Region.Cache, sr.Region.CacheCapacity, sr.Region.SlotOffset+k)
		}
		w.completions <- Completion{WorkerID: w.id, Kind: Completed, Count: sr.Count}
		w.completions <- Completion{WorkerID: w.id, Kind: ReadyForMore}
	}()
}

// Close releases the underlying gRPC connection.
func (w *AcceleratorWorker) Close() error {
	return w.client.Close()
}
