package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogFileWriter_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "imre.log")

	w, err := newLogFileWriter(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(data))
}

func TestLogFileWriter_TrimsToTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imre.log")

	head := bytes.Repeat([]byte("a"), maxLogSizeBytes)
	require.NoError(t, os.WriteFile(path, head, 0o644))

	w, err := newLogFileWriter(path)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("last line\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, keepLogSizeBytes)
	require.True(t, bytes.HasSuffix(data, []byte("last line\n")))
}
