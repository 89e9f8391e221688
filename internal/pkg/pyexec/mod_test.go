package pyexec

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

// fakeVenv создает venv/bin/python, который печатает свои аргументы и выполняет body
func fakeVenv(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell interpreter stub requires a unix shell")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "venv", "bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))
	script := "#!/bin/sh\necho \"args: $*\"\n" + body + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(bin, "python"), []byte(script), 0o755))
	return dir
}

func TestNewMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()

	p, err := New(dir, WithArgs("-H", "localhost"))
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py", "-H", "localhost"}, p.Command())

	p, err = New(dir, WithModule("uvicorn"), WithArgs("main:app", "--port", "8666"))
	require.NoError(t, err)
	assert.Equal(t, []string{"-m", "uvicorn", "main:app", "--port", "8666"}, p.Command())
}

func TestStartModuleAndWait(t *testing.T) {
	dir := fakeVenv(t, "echo \"env: $APP_MODE\"")
	var out syncBuffer

	p, err := New(dir,
		WithVenv("venv"),
		WithModule("uvicorn"),
		WithArgs("main:app"),
		WithEnv("APP_MODE=test"),
		WithOutput(&out),
	)
	require.NoError(t, err)
	require.NoError(t, p.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))

	assert.False(t, p.Running())
	assert.Equal(t, -1, p.PID())
	assert.Contains(t, out.String(), "args: -m uvicorn main:app")
	assert.Contains(t, out.String(), "env: test")
	assert.ErrorIs(t, p.Start(), ErrStarted)
}

func TestStartMissingScript(t *testing.T) {
	dir := fakeVenv(t, "")

	p, err := New(dir, WithVenv("venv"))
	require.NoError(t, err)
	assert.ErrorContains(t, p.Start(), "script not found")
}

func TestStartMissingPython(t *testing.T) {
	p, err := New(t.TempDir(), WithVenv("venv"), WithModule("uvicorn"))
	require.NoError(t, err)
	assert.ErrorContains(t, p.Start(), "python not found")
}

func TestStopLongRunning(t *testing.T) {
	dir := fakeVenv(t, "exec sleep 30")
	var out syncBuffer

	p, err := New(dir, WithVenv("venv"), WithModule("uvicorn"), WithOutput(&out), WithGracePeriod(time.Second))
	require.NoError(t, err)
	require.NoError(t, p.Start())
	assert.True(t, p.Running())
	assert.Positive(t, p.PID())

	start := time.Now()
	require.NoError(t, p.Stop())
	assert.Less(t, time.Since(start), 5*time.Second)

	select {
	case <-p.Exited():
	default:
		t.Fatal("process still running after Stop")
	}
	assert.ErrorIs(t, p.Stop(), ErrNotStarted)
}

func TestWaitNotStarted(t *testing.T) {
	p, err := New(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, p.Wait(context.Background()), ErrNotStarted)
	assert.ErrorIs(t, p.Stop(), ErrNotStarted)
}
