package kernel

import "github.com/klauspost/cpuid/v2"

// Width identifies a lane count for the wide nonce-kernel variants. plot.Run
// selects a width once at startup (spec §4.B "Selection is made
// once at startup, preferring the widest supported instruction set") and
// every CPU worker thereafter hashes in batches of that width.
type Width int

const (
	Width1  Width = 1
	Width2  Width = 2
	Width4  Width = 4
	Width8  Width = 8
	Width16 Width = 16
)

// String renders the width the way a startup log line would name it.
func (w Width) String() string {
	switch w {
	case Width16:
		return "16-wide (AVX-512)"
	case Width8:
		return "8-wide (AVX2)"
	case Width4:
		return "4-wide (AVX)"
	case Width2:
		return "2-wide (SSE2)"
	default:
		return "scalar"
	}
}

// BestWidth probes the running CPU and returns the widest lane count this
// implementation can exploit. Every lane width computes the exact same
// per-nonce algorithm (kernel.computeOne); only the batching changes, so
// the result is bit-identical to the scalar path regardless of which width
// is selected (spec P2).
func BestWidth() Width {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F):
		return Width16
	case cpuid.CPU.Supports(cpuid.AVX2):
		return Width8
	case cpuid.CPU.Supports(cpuid.AVX):
		return Width4
	case cpuid.CPU.Supports(cpuid.SSE2):
		return Width2
	default:
		return Width1
	}
}

// ComputeBatchWide is the width-aware entry point CPU workers call. It
// fans a sub-range out across `width` lanes, each lane independently
// running the scalar kernel on a disjoint slice of the sub-range — this
// implementation has no hand-written vector assembly, so "wide" here
// means "batched with the chosen granularity", not literal SIMD registers.
// The output is therefore trivially byte-identical to ComputeBatch, which
// is what spec P2 pins.
func ComputeBatchWide(width Width, accountID, startNonce uint64, count int, cache []byte, cacheCapacity, cacheOffset int) {
	lanes := int(width)
	if lanes <= 1 || count <= 1 {
		ComputeBatch(accountID, startNonce, count, cache, cacheCapacity, cacheOffset)
		return
	}

	per := (count + lanes - 1) / lanes
	done := 0
	for lane := 0; lane < lanes && done < count; lane++ {
		n := per
		if done+n > count {
			n = count - done
		}
		if n <= 0 {
			break
		}
		ComputeBatch(accountID, startNonce+uint64(done), n, cache, cacheCapacity, cacheOffset+done)
		done += n
	}
}
