package worker

import (
	"context"
	"time"

	"plotgen/pkg/plot/pagebuf"
)

// bufferPollTimeout bounds every blocking receive so the stop signal is
// observed within roughly 100ms (spec §5 "Suspension points").
const bufferPollTimeout = 100 * time.Millisecond

// Scheduler is the component of spec §4.E: it owns nonces_hashed, pulls
// empty buffers, multiplexes sub-ranges across CPU and accelerator
// workers, and forwards full buffers to the writer.
type Scheduler struct {
	AccountID    uint64
	StartNonce   uint64
	NonceCount   uint64
	BufferNonces uint64

	CPUWorkers    []*CPUWorker
	Accelerators  []Worker // 1-based IDs already assigned by the caller
	Completions   chan Completion
	EmptyBuffers  <-chan *pagebuf.Buffer
	FullBuffers   chan<- *pagebuf.Buffer
	Stop          Stopper
	OnProgress    func(Progress)
}

// Run executes the main loop of spec §4.E until every nonce has been
// hashed, the stop signal is raised, or a worker reports a fatal
// failure. It returns the number of nonces hashed in this invocation.
func (s *Scheduler) Run(ctx context.Context) (uint64, error) {
	nonceCursor := uint64(0)
	start := time.Now()
	var totalProcessed uint64

	for nonceCursor < s.NonceCount && !s.Stop.Stopped() {
		buf, ok := s.waitForEmptyBuffer(ctx)
		if !ok {
			return nonceCursor, nil
		}

		noncesToHash := s.BufferNonces
		if remaining := s.NonceCount - nonceCursor; remaining < noncesToHash {
			noncesToHash = remaining
		}

		requested := uint64(0)
		processed := uint64(0)

		for _, acc := range s.Accelerators {
			size := minU64(acc.Worksize(), noncesToHash-requested)
			if size == 0 {
				continue
			}
			s.dispatch(ctx, acc, nonceCursor, requested, size, buf)
			requested += size
		}
		for _, w := range s.CPUWorkers {
			size := minU64(CPUTaskSize, noncesToHash-requested)
			if size == 0 {
				continue
			}
			s.dispatch(ctx, w, nonceCursor, requested, size, buf)
			requested += size
		}

		for processed < noncesToHash {
			if s.Stop.Stopped() {
				s.FullBuffers <- buf // return (empty, logically) for the writer to drain and exit
				return nonceCursor, nil
			}

			msg := <-s.Completions
			switch msg.Kind {
			case Failed:
				s.FullBuffers <- buf
				return nonceCursor, msg.Err
			case ReadyForMore:
				size := s.nextSubRangeSize(msg.WorkerID, noncesToHash-requested)
				if size > 0 {
					w := s.workerByID(msg.WorkerID)
					if w != nil {
						s.dispatch(ctx, w, nonceCursor, requested, size, buf)
					}
					requested += size
				}
			case Completed:
				processed += msg.Count
				totalProcessed += msg.Count
				if s.OnProgress != nil {
					elapsed := time.Since(start).Minutes()
					var speed float64
					if elapsed > 0 {
						speed = float64(totalProcessed) / elapsed
					}
					s.OnProgress(Progress{
						Fraction: float32(float64(nonceCursor+processed) / float64(s.NonceCount)),
						SpeedNPM: speed,
					})
				}
			}
		}

		if s.Stop.Stopped() {
			s.FullBuffers <- buf
			return nonceCursor, nil
		}

		nonceCursor += noncesToHash
		s.FullBuffers <- buf
	}

	return nonceCursor, nil
}

func (s *Scheduler) waitForEmptyBuffer(ctx context.Context) (*pagebuf.Buffer, bool) {
	for {
		select {
		case buf, ok := <-s.EmptyBuffers:
			if !ok {
				return nil, false
			}
			return buf, true
		case <-time.After(bufferPollTimeout):
			if s.Stop.Stopped() {
				return nil, false
			}
		case <-ctx.Done():
			return nil, false
		}
	}
}

// nextSubRangeSize applies the tie-break of spec §4.E step 4: an
// accelerator's next dispatch is halved (preferring to finish the
// remainder via CPU) when the remaining work is smaller than its full
// worksize and at least one CPU worker is active.
func (s *Scheduler) nextSubRangeSize(workerID int, remaining uint64) uint64 {
	w := s.workerByID(workerID)
	if w == nil {
		return 0
	}
	if _, isCPU := w.(*CPUWorker); isCPU {
		return minU64(CPUTaskSize, remaining)
	}
	size := minU64(w.Worksize(), remaining)
	if size < w.Worksize() && size > CPUTaskSize && len(s.CPUWorkers) > 0 {
		size /= 2
	}
	return size
}

// workerByID looks a worker back up by the ID it reported on a
// completion message. Every CPU worker and every accelerator has its
// own distinct ID (see Worker.ID's doc), so this always resolves to the
// exact instance that sent the message, not just "some CPU worker".
func (s *Scheduler) workerByID(id int) Worker {
	for _, w := range s.CPUWorkers {
		if w.ID() == id {
			return w
		}
	}
	for _, a := range s.Accelerators {
		if a.ID() == id {
			return a
		}
	}
	return nil
}

func (s *Scheduler) dispatch(ctx context.Context, w Worker, nonceCursor, requested, size uint64, buf *pagebuf.Buffer) {
	cacheCapacity := buf.Len() / NonceSize
	w.Submit(ctx, SubRange{
		AccountID:  s.AccountID,
		StartNonce: s.StartNonce + nonceCursor + requested,
		Count:      size,
		Region: Region{
			Cache:         buf.Bytes(),
			CacheCapacity: cacheCapacity,
			SlotOffset:    int(requested),
		},
	})
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
