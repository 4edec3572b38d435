// internal/logsource/logsource_test.go
package logsource

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = "Exception: System.InvalidOperationException: boom\n   at MyApp.Service.Run()\n"

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func writeBrotli(t *testing.T, path, content string) {
	t.Helper()
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	_, err := bw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, bw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(plain, []byte(sampleLog), 0644))
	gz := filepath.Join(dir, "app.log.gz")
	writeGzip(t, gz, sampleLog)
	br := filepath.Join(dir, "app.log.BR")
	writeBrotli(t, br, sampleLog)

	for _, path := range []string{plain, gz, br} {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			rc, err := Open(path)
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.NoError(t, rc.Close())
			assert.Equal(t, sampleLog, string(data))
		})
	}
}

func TestOpen_PooledReadersAreReusable(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		gz := filepath.Join(dir, "round.gz")
		content := strings.Repeat("x", i+1)
		writeGzip(t, gz, content)

		got, err := ReadAll(gz)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	}
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing File", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "missing.log"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open log source")
	})

	t.Run("Corrupt Gzip", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.gz")
		require.NoError(t, os.WriteFile(bad, []byte("not gzip at all"), 0644))
		_, err := Open(bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gzip initialization error")
	})
}

func TestOpen_Stdin(t *testing.T) {
	original := stdin
	stdin = strings.NewReader(sampleLog)
	t.Cleanup(func() { stdin = original })

	got, err := ReadAll(Stdin)
	require.NoError(t, err)
	assert.Equal(t, sampleLog, got)
}
