package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deadPID is far above any default pid_max.
const deadPID = 1 << 30

func writePID(t *testing.T, path string, pid int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0644))
}

func TestNewWritesOwnPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "core.pid")

	pf, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pf.Remove() })

	assert.Equal(t, path, pf.Path())
	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestNewRefusesLiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.pid")
	pf, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pf.Remove() })

	_, err = New(path)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()))
}

func TestNewReplacesStaleOrGarbageFile(t *testing.T) {
	for name, content := range map[string]string{
		"stale":   strconv.Itoa(deadPID) + "\n",
		"garbage": "not-a-pid",
		"empty":   "",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "core.pid")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			pf, err := New(path)
			require.NoError(t, err)
			t.Cleanup(func() { _ = pf.Remove() })

			pid, err := ReadPID(path)
			require.NoError(t, err)
			assert.Equal(t, os.Getpid(), pid)
		})
	}
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.pid")
	pf, err := New(path)
	require.NoError(t, err)

	require.NoError(t, pf.Remove())
	assert.NoFileExists(t, path)
	require.NoError(t, pf.Remove(), "second remove is a no-op")

	var nilPF *PIDFile
	assert.NoError(t, nilPF.Remove())
}

func TestRemoveLeavesForeignPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.pid")
	pf, err := New(path)
	require.NoError(t, err)

	writePID(t, path, deadPID)
	require.NoError(t, pf.Remove())

	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, deadPID, pid)
}

func TestRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.pid")

	_, ok := Running(path)
	assert.False(t, ok, "missing file")

	writePID(t, path, deadPID)
	pid, ok := Running(path)
	assert.False(t, ok, "dead process")
	assert.Equal(t, deadPID, pid)

	writePID(t, path, os.Getpid())
	pid, ok = Running(path)
	assert.True(t, ok)
	assert.Equal(t, os.Getpid(), pid)
}

func TestIsProcessRunning(t *testing.T) {
	assert.True(t, isProcessRunning(os.Getpid()))
	assert.False(t, isProcessRunning(deadPID))
	assert.False(t, isProcessRunning(0))
	assert.False(t, isProcessRunning(-1))
}

func TestGetPIDFilePath(t *testing.T) {
	t.Setenv("HOME", "/Users/desk")
	assert.Equal(t, "/Users/desk/.cache/sitstand/sitstand-core.pid", GetPIDFilePath("sitstand-core"))
}
