// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/tracelens/internal/config"
	"github.com/xkilldash9x/tracelens/internal/observability"
)

// TestMain installs a silent global logger so that the PersistentPreRunE
// initialization of every test command is a no-op.
func TestMain(m *testing.M) {
	observability.Initialize(config.LoggerConfig{Level: "fatal", Format: "json"}, zapcore.AddSync(io.Discard))
	os.Exit(m.Run())
}

const orderFailure = `System.InvalidOperationException: Order failed
   at MyApp.Orders.OrderService.Place(Order order) in /src/Orders/OrderService.cs:line 42
   at System.Threading.Tasks.Task.Execute()
`

// executeCommand runs a fresh command tree and returns what it wrote to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeCommandContext(t, context.Background(), args...)
}

func executeCommandContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	// Keep the working directory free of a stray tracelens.yaml.
	t.Chdir(t.TempDir())

	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return buf.String(), err
}

// writeTemp writes content to name inside a fresh temporary directory.
func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// syncBuffer is a goroutine safe bytes.Buffer for commands that write while
// the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
