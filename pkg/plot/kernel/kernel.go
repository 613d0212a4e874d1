package kernel

import "encoding/binary"

// Sizes fixed by the plot format (spec §3).
const (
	HashSize  = 32
	NumScoops = 4096
	ScoopSize = 64
	NonceSize = NumScoops * ScoopSize // 262144
)

// messageSize is the Shabal message-template word count (16 x 32-bit words).
const messageSize = 16

// templates holds the three message-schedule seeds used by every nonce in a
// batch that shares the same (account_id) — only the nonce-index words and
// t2's seed words 0..7 (rewritten by computeOne) change per nonce, so the
// account-id halves are filled once.
type templates struct {
	t1, t2, t3 [messageSize]uint32
}

func newTemplates(accountID uint64) *templates {
	idHi := uint32(accountID >> 32)
	idLo := uint32(accountID)

	t := &templates{}
	t.t1[0] = idHi
	t.t1[1] = idLo
	t.t1[4] = 0x80

	t.t2[8] = idHi
	t.t2[9] = idLo
	t.t2[12] = 0x80

	t.t3[0] = 0x80
	return t
}

func beWords(v uint64) (hi, lo uint32) {
	return uint32(v >> 32), uint32(v)
}

func (t *templates) setNonce(nonceIndex uint64) {
	hi, lo := beWords(nonceIndex)
	t.t1[2] = hi
	t.t1[3] = lo
	t.t2[10] = hi
	t.t2[11] = lo
}

// Compute writes a single nonce's 262144 bytes into dst, following the
// per-nonce algorithm of spec §4.B, in working-buffer order (scoop s at
// bytes [s*64, s*64+64)); the scoop/mirror placement is left to Place.
// dst must be exactly NonceSize bytes.
func Compute(accountID, nonceIndex uint64, dst []byte) {
	if len(dst) != NonceSize {
		panic("kernel: destination buffer must be exactly NonceSize bytes")
	}

	t := newTemplates(accountID)
	t.setNonce(nonceIndex)
	computeOne(t, dst)
}

// computeOne runs the Shabal iteration described in spec §4.B steps 2-7 and
// leaves the XOR-whitened working buffer in dst (still in "W" layout, not
// yet scoop/mirror transposed).
func computeOne(t *templates, w []byte) {
	const (
		h    = HashSize
		span = NumScoops
		n    = NonceSize
	)

	seed := shabal256(nil, &t.t1)
	copy(w[n-h:n], seed[:])

	var seedWords [8]uint32
	for i := 0; i < 8; i++ {
		seedWords[i] = binary.LittleEndian.Uint32(seed[i*4 : i*4+4])
	}
	copy(t.t2[0:8], seedWords[:])

	for i := n - h; i >= n-span+h; i -= h {
		var digest [32]byte
		if i%64 == 0 {
			digest = shabal256(w[i:n], &t.t1)
		} else {
			digest = shabal256(w[i:n], &t.t2)
		}
		copy(w[i-h:i], digest[:])
	}

	for i := n - span; i >= h; i -= h {
		digest := shabal256(w[i:i+span], &t.t3)
		copy(w[i-h:i], digest[:])
	}

	final := shabal256(w[0:n], &t.t1)
	for j := 0; j < n; j++ {
		w[j] ^= final[j%h]
	}
}

// Place writes a produced nonce (already computed into a scratch buffer by
// Compute) into the scoop-major cache layout at slot cacheOffset, given the
// cache's total nonce capacity. This is the mapping of spec §4.B's final
// paragraph: low halves of scoop s at their native position, mirror halves
// of scoop s sourced from the (4095-s) working-buffer range.
func Place(w []byte, cache []byte, cacheCapacity, cacheOffset int) {
	for s := 0; s < NumScoops; s++ {
		lowOff := s*cacheCapacity*ScoopSize + cacheOffset*ScoopSize
		copy(cache[lowOff:lowOff+HashSize], w[s*ScoopSize:s*ScoopSize+HashSize])

		mirrorOff := (NumScoops-1-s)*cacheCapacity*ScoopSize + cacheOffset*ScoopSize + HashSize
		copy(cache[mirrorOff:mirrorOff+HashSize], w[s*ScoopSize+HashSize:s*ScoopSize+2*HashSize])
	}
}

// ComputeBatch fills count nonces starting at startNonce into cache,
// placing nonce startNonce+k at slot cacheOffset+k. cacheCapacity is the
// cache's total nonce capacity (used to compute scoop-stripe strides); it
// may exceed count when the cache holds more than one worker's slice.
//
// This is the scalar reference implementation; SIMD-width variants in
// kernel_wide.go must produce byte-identical output per nonce (spec P2).
func ComputeBatch(accountID, startNonce uint64, count int, cache []byte, cacheCapacity, cacheOffset int) {
	t := newTemplates(accountID)
	var w [NonceSize]byte
	for k := 0; k < count; k++ {
		t.setNonce(startNonce + uint64(k))
		computeOne(t, w[:])
		Place(w[:], cache, cacheCapacity, cacheOffset+k)
	}
}
