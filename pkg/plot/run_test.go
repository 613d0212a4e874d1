package plot

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"plotgen/pkg/plot/kernel"
)

func TestRunBenchmarkModeCreatesNoFileAndReportsDone(t *testing.T) {
	progress := make(chan ProgressMessage, 64)

	task := Task{
		AccountID:      1,
		StartNonce:     0,
		NonceCount:     8,
		OutputDir:      t.TempDir(),
		CPUWorkerCount: 1,
		BenchmarkMode:  true,
		Progress:       progress,
	}

	err := Run(task)
	require.NoError(t, err)

	var sawDone bool
	for len(progress) > 0 {
		msg := <-progress
		if msg.Done {
			sawDone = true
		}
		require.Empty(t, msg.Err)
	}
	require.True(t, sawDone)

	entries, readErr := os.ReadDir(task.OutputDir)
	require.NoError(t, readErr)
	require.Empty(t, entries)
}

// TestRunPlotsToFileAndMatchesKernelOutput checks the plot file's data
// region byte-for-byte against kernel.ComputeBatch, not just its size:
// the on-disk scoop stripes use NonceCount (not any one worker buffer's
// capacity) as their stride (writer.go's drainBuffer), so a single
// ComputeBatch call over the whole nonce range reproduces the same
// layout regardless of how many buffers or workers actually produced it.
func TestRunPlotsToFileAndMatchesKernelOutput(t *testing.T) {
	dir := t.TempDir()
	task := Task{
		AccountID:      42,
		StartNonce:     0,
		NonceCount:     4,
		OutputDir:      dir,
		CPUWorkerCount: 2,
	}

	err := Run(task)
	require.NoError(t, err)

	path := filepath.Join(dir, task.FileName())
	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	require.EqualValues(t, int64(4)*NonceSize+8, info.Size())

	got, readErr := os.ReadFile(path)
	require.NoError(t, readErr)

	want := make([]byte, 4*NonceSize)
	kernel.ComputeBatch(task.AccountID, task.StartNonce, 4, want, 4, 0)

	require.Equal(t, want, got[:4*NonceSize], "plot file data region diverged from kernel.ComputeBatch")
}

// TestRunPlotFileIsIndependentOfWorkerCount pins spec §8 concrete
// scenarios 3/4: the same (account_id, start_nonce, count) plotted
// single-threaded, CPU-scalar versus with cpu_worker_count=4 and
// num_buffers=2 must produce byte-identical plot files (P2/P3):
// splitting work across workers and buffers is purely a performance
// choice, never a correctness one.
func TestRunPlotFileIsIndependentOfWorkerCount(t *testing.T) {
	const accountID = 12345678901234567890
	const count = 8

	singleDir := t.TempDir()
	single := Task{
		AccountID:      accountID,
		StartNonce:     0,
		NonceCount:     count,
		OutputDir:      singleDir,
		CPUWorkerCount: 1,
	}
	require.NoError(t, Run(single))

	multiDir := t.TempDir()
	multi := Task{
		AccountID:      accountID,
		StartNonce:     0,
		NonceCount:     count,
		OutputDir:      multiDir,
		CPUWorkerCount: 4,
	}
	require.NoError(t, Run(multi))

	singleBytes, err := os.ReadFile(filepath.Join(singleDir, single.FileName()))
	require.NoError(t, err)
	multiBytes, err := os.ReadFile(filepath.Join(multiDir, multi.FileName()))
	require.NoError(t, err)

	require.Equal(t, sha256.Sum256(singleBytes), sha256.Sum256(multiBytes))
}

// TestRunPlotFileSHA256Pinned targets spec §8 concrete scenario 3: the
// single-threaded, CPU-scalar plot file for (account_id=12345678901234567890,
// start=0, count=8) should have a fixed SHA-256 ground truth.
//
// As with TestComputeK00Pinned, no reference plotter binary or toolchain run
// was available this session to capture that ground-truth digest, so
// plotFileSHA256Hex is left blank rather than filled with an unverifiable
// guess. In its place this asserts the one thing that is independently
// checkable here: the same task plotted twice, single-threaded, produces the
// identical file both times (P1 applied to the whole pipeline, not just the
// kernel).
//
// TODO: once this suite has been run for real once, paste the resulting
// plot file SHA-256 into plotFileSHA256Hex below to convert this into the
// true scenario-3 ground-truth pin.
func TestRunPlotFileSHA256Pinned(t *testing.T) {
	const accountID = 12345678901234567890
	const count = 8
	const plotFileSHA256Hex = "" // TODO: fill in from a real run; empty means "not yet captured".

	run := func() []byte {
		dir := t.TempDir()
		task := Task{
			AccountID:      accountID,
			StartNonce:     0,
			NonceCount:     count,
			OutputDir:      dir,
			CPUWorkerCount: 1,
		}
		require.NoError(t, Run(task))
		data, err := os.ReadFile(filepath.Join(dir, task.FileName()))
		require.NoError(t, err)
		return data
	}

	first := sha256.Sum256(run())

	if plotFileSHA256Hex != "" {
		want, err := hex.DecodeString(plotFileSHA256Hex)
		require.NoError(t, err)
		require.Equal(t, want, first[:])
		return
	}

	second := sha256.Sum256(run())
	require.Equal(t, first, second)
}

func TestRunRejectsMissingOutputDir(t *testing.T) {
	task := Task{
		AccountID:  1,
		NonceCount: 1,
		OutputDir:  "/nonexistent/plotgen-test-dir",
	}
	err := Run(task)
	require.ErrorIs(t, err, ErrOutputDirMissing)
}

func TestRunRejectsInvalidTask(t *testing.T) {
	task := Task{OutputDir: "."}
	err := Run(task)
	require.Error(t, err)
}
