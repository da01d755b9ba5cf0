package vault

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type changeRecorder struct {
	mu      sync.Mutex
	changes map[string][]string
}

func (r *changeRecorder) record(path, op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.changes == nil {
		r.changes = map[string][]string{}
	}
	r.changes[path] = append(r.changes[path], op)
}

func (r *changeRecorder) sawPath(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes[path]) > 0
}

func TestWatcherReportsChanges(t *testing.T) {
	store := newStore(t)
	rec := &changeRecorder{}

	w, err := Watch(store, zerolog.Nop(), rec.record)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, store.Create("note.md", "hello"))

	require.Eventually(t, func() bool {
		return rec.sawPath("note.md")
	}, 3*time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresTrash(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Create("doomed.md", "x"))
	rec := &changeRecorder{}

	w, err := Watch(store, zerolog.Nop(), rec.record)
	require.NoError(t, err)
	defer w.Close()

	_, err = store.Delete("doomed.md")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return rec.sawPath("doomed.md")
	}, 3*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for path := range rec.changes {
		require.NotContains(t, path, ".trash")
	}
}
