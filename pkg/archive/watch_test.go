package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatch_invalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	assert.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan string, 4)
	w := NewWatch(ctx, path, func(p string) { changed <- p })
	assert.NoError(t, w.Start())

	// give the event loop a moment before touching the file
	time.Sleep(50 * time.Millisecond)
	assert.NoError(t, os.WriteFile(path, []byte(`{"changed":true}`), 0o644))

	select {
	case got := <-changed:
		assert.Equal(t, path, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no invalidation received")
	}
}

func TestWatch_missingFile(t *testing.T) {
	w := NewWatch(context.Background(), "/no/such/file.json", func(string) {})
	assert.Error(t, w.Start())
}
