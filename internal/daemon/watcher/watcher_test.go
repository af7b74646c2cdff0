package watcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type changes struct {
	mu    sync.Mutex
	files []string
}

func (c *changes) record(file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = append(c.files, file)
}

func (c *changes) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.files...)
}

func TestIsConfigFile(t *testing.T) {
	assert.True(t, IsConfigFile("/etc/queued/queued.yml"))
	assert.True(t, IsConfigFile("queued.override.toml"))
	assert.True(t, IsConfigFile("queued.yaml"))
	assert.False(t, IsConfigFile("queued.yml.swp"))
	assert.False(t, IsConfigFile("other.yml"))
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "queued.yml")
	require.NoError(t, os.WriteFile(file, []byte("sync: {}\n"), 0o644))

	var got changes
	w, err := New([]string{file}, 50*time.Millisecond, got.record, testLogger())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte("pause_reasons: [Lunch]\n"), 0o644))
	}

	assert.Eventually(t, func() bool { return len(got.get()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{file}, got.get())
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "queued.yml")

	var got changes
	w, err := New([]string{file}, 20*time.Millisecond, got.record, testLogger())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, got.get())
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "missing", "queued.yml")}, 0, nil, testLogger())
	assert.Error(t, err)
}
