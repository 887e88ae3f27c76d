package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRotatingWriter(t *testing.T) {
	t.Run("opens the log file", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "membercenter.log")

		rw, err := NewRotatingWriter(logFile, 10, 7, false)
		require.NoError(t, err)
		defer rw.Close()

		_, err = os.Stat(logFile)
		assert.NoError(t, err)
	})

	t.Run("creates missing parent directories", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "data", "logs", "membercenter.log")

		rw, err := NewRotatingWriter(logFile, 10, 7, false)
		require.NoError(t, err)
		defer rw.Close()

		_, err = os.Stat(filepath.Dir(logFile))
		assert.NoError(t, err)
	})

	t.Run("resumes size accounting on an existing file", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "membercenter.log")
		require.NoError(t, os.WriteFile(logFile, []byte("earlier run\n"), 0644))

		rw, err := NewRotatingWriter(logFile, 10, 7, false)
		require.NoError(t, err)
		defer rw.Close()

		assert.Equal(t, int64(len("earlier run\n")), rw.currentSize)
	})
}

func TestRotatingWriterWrite(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "membercenter.log")

	rw, err := NewRotatingWriter(logFile, 1, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	line := []byte("enrollment created member=1 plan=SGLI-400\n")
	n, err := rw.Write(line)
	require.NoError(t, err)
	assert.Equal(t, len(line), n)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "plan=SGLI-400")
}

func TestRotatingWriterRotation(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "membercenter.log")

	// 0 MB max size forces rotation on the second write
	rw, err := NewRotatingWriter(logFile, 0, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	_, err = rw.Write([]byte(strings.Repeat("a", 64) + "\n"))
	require.NoError(t, err)
	_, err = rw.Write([]byte(strings.Repeat("b", 64) + "\n"))
	require.NoError(t, err)

	rotated, err := filepath.Glob(filepath.Join(tmpDir, "membercenter.log.*"))
	require.NoError(t, err)
	require.NotEmpty(t, rotated)

	// The live file only holds writes since the rotation
	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "a")
}

func TestRotatingWriterClose(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "membercenter.log")

	rw, err := NewRotatingWriter(logFile, 10, 7, false)
	require.NoError(t, err)

	assert.NoError(t, rw.Close())
}

func TestCompressFile(t *testing.T) {
	rotated := filepath.Join(t.TempDir(), "membercenter.log.20250101-030000")
	require.NoError(t, os.WriteFile(rotated, []byte("rotated content"), 0644))

	rw := &RotatingWriter{compress: true}
	require.NoError(t, rw.compressFile(rotated))

	_, err := os.Stat(rotated + ".gz")
	assert.NoError(t, err)

	_, err = os.Stat(rotated)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanup(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "membercenter.log")

	stale := logFile + ".20200101-120000"
	require.NoError(t, os.WriteFile(stale, []byte("old log"), 0644))
	oldTime := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(stale, oldTime, oldTime))

	recent := logFile + ".20990101-120000"
	require.NoError(t, os.WriteFile(recent, []byte("recent log"), 0644))

	rw, err := NewRotatingWriter(logFile, 10, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	rw.cleanup()

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(recent)
	assert.NoError(t, err)
}
