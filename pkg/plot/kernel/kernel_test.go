package kernel

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func computeNonce(t *testing.T, accountID, nonceIndex uint64) []byte {
	t.Helper()
	cache := make([]byte, NonceSize)
	ComputeBatch(accountID, nonceIndex, 1, cache, 1, 0)
	return cache
}

// P1 — kernel determinism: two independent invocations agree byte-for-byte.
func TestComputeDeterministic(t *testing.T) {
	a := computeNonce(t, 12345, 67)
	b := computeNonce(t, 12345, 67)
	require.Equal(t, a, b)
}

// TestComputeK00Pinned targets spec §8 concrete scenario 1: K(account_id=0,
// nonce_index=0) — scoop 0's low half of nonce 0 — must stay fixed across
// commits.
//
// This does not pin a literal hex constant sourced from a real PoC plotter
// binary: reproducing Shabal-256 by hand to cross-check one isn't practical,
// and no reference binary or Go toolchain run was available to capture one
// this session (see DESIGN.md's kernel entry and the shabal256 construction
// note). Instead this locks K(0,0) to the same value this implementation
// already produces through every other code path that reaches it, so any
// future change to the kernel that moves K(0,0) has to touch this test
// deliberately.
//
// TODO: once this suite has been run for real once, paste the resulting
// K(0,0) hex into k00Hex below so this becomes a true byte-for-byte pin
// instead of a cross-path consistency check.
func TestComputeK00Pinned(t *testing.T) {
	viaCompute := make([]byte, NonceSize)
	Compute(0, 0, viaCompute)
	k00 := viaCompute[:HashSize]

	const k00Hex = "" // TODO: fill in from a real run; empty means "not yet captured".
	if k00Hex != "" {
		want, err := hex.DecodeString(k00Hex)
		require.NoError(t, err)
		require.Equal(t, want, k00)
		return
	}

	viaBatch := make([]byte, NonceSize)
	ComputeBatch(0, 0, 1, viaBatch, 1, 0)
	require.Equal(t, k00, viaBatch[:HashSize], "K(0,0) diverged between Compute and ComputeBatch")

	for _, w := range []Width{Width1, Width2, Width4, Width8, Width16} {
		viaWide := make([]byte, NonceSize)
		ComputeBatchWide(w, 0, 0, 1, viaWide, 1, 0)
		require.Equal(t, k00, viaWide[:HashSize], "K(0,0) diverged for width %v", w)
	}
}

// Distinct (account_id, nonce_index) pairs must not collide.
func TestComputeDiffersByAccountAndNonce(t *testing.T) {
	base := computeNonce(t, 0, 0)
	byID := computeNonce(t, 1, 0)
	byNonce := computeNonce(t, 0, 1)

	require.NotEqual(t, base, byID)
	require.NotEqual(t, base, byNonce)
	require.NotEqual(t, byID, byNonce)
}

// P3 (kernel half): scoop s, low half, of a standalone nonce matches what
// ComputeBatch placed into a multi-nonce cache at the same logical nonce.
func TestComputeBatchPlacementMatchesSingle(t *testing.T) {
	const cacheCapacity = 4
	single := computeNonce(t, 555, 10)

	cache := make([]byte, cacheCapacity*NonceSize)
	ComputeBatch(555, 8, cacheCapacity, cache, cacheCapacity, 0)

	for s := 0; s < NumScoops; s++ {
		// nonce 10 landed at in-cache slot 2 (8,9,10,11 -> offsets 0..3)
		gotLow := cache[s*cacheCapacity*ScoopSize+2*ScoopSize : s*cacheCapacity*ScoopSize+2*ScoopSize+HashSize]
		wantLow := single[s*ScoopSize : s*ScoopSize+HashSize]
		require.Equal(t, wantLow, gotLow, "scoop %d low half mismatch", s)
	}
}

// P2 — wide kernel variants must equal the concatenation of scalar outputs.
func TestComputeBatchWideMatchesScalar(t *testing.T) {
	const count = 17
	const accountID = 987654321

	scalar := make([]byte, count*NonceSize)
	ComputeBatch(accountID, 100, count, scalar, count, 0)

	for _, w := range []Width{Width1, Width2, Width4, Width8, Width16} {
		wide := make([]byte, count*NonceSize)
		ComputeBatchWide(w, accountID, 100, count, wide, count, 0)
		require.Equal(t, scalar, wide, "width %v diverged from scalar", w)
	}
}

func TestPlaceMirrorHalvesComeFromComplementaryScoop(t *testing.T) {
	var w [NonceSize]byte
	for i := range w {
		w[i] = byte(i)
	}
	cache := make([]byte, NonceSize)
	Place(w[:], cache, 1, 0)

	for s := 0; s < NumScoops; s++ {
		mirrorOff := (NumScoops - 1 - s) * ScoopSize
		got := cache[mirrorOff+HashSize : mirrorOff+2*HashSize]
		want := w[s*ScoopSize+HashSize : s*ScoopSize+2*HashSize]
		require.Equal(t, want, got)
	}
}
