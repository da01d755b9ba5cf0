package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type transcriptEvent struct {
	role  Role
	text  string
	final bool
}

type transcriptRecorder struct {
	mu     sync.Mutex
	events []transcriptEvent
}

func (r *transcriptRecorder) emit(role Role, text string, final bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, transcriptEvent{role: role, text: text, final: final})
}

func (r *transcriptRecorder) all() []transcriptEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transcriptEvent(nil), r.events...)
}

func TestTranscriptAccumulatesInArrivalOrder(t *testing.T) {
	rec := &transcriptRecorder{}
	store := NewTranscriptStore(rec.emit)

	store.Append(RoleUser, "Hel")
	store.Append(RoleUser, "lo ")
	store.Append(RoleUser, "world")
	store.Flush(RoleUser)

	events := rec.all()
	require.Len(t, events, 4)
	require.Equal(t, "Hel", events[0].text)
	require.False(t, events[0].final)
	require.Equal(t, "Hello ", events[1].text)
	require.Equal(t, "Hello world", events[2].text)
	require.False(t, events[2].final)
	require.Equal(t, "Hello world", events[3].text)
	require.True(t, events[3].final)

	require.Empty(t, store.Text(RoleUser))
}

func TestTranscriptRolesIndependent(t *testing.T) {
	rec := &transcriptRecorder{}
	store := NewTranscriptStore(rec.emit)

	store.Append(RoleUser, "question")
	store.Append(RoleModel, "answer")

	require.Equal(t, "question", store.Text(RoleUser))
	require.Equal(t, "answer", store.Text(RoleModel))

	store.Flush(RoleModel)
	require.Equal(t, "question", store.Text(RoleUser))
	require.Empty(t, store.Text(RoleModel))
}

func TestTranscriptFlushEmptyIsNoOp(t *testing.T) {
	rec := &transcriptRecorder{}
	store := NewTranscriptStore(rec.emit)

	store.Flush(RoleUser)
	require.Empty(t, rec.all())
}

func TestTranscriptEmptyFragmentIgnored(t *testing.T) {
	rec := &transcriptRecorder{}
	store := NewTranscriptStore(rec.emit)

	store.Append(RoleUser, "")
	require.Empty(t, rec.all())
}

func TestTranscriptResetEmitsNothing(t *testing.T) {
	rec := &transcriptRecorder{}
	store := NewTranscriptStore(rec.emit)

	store.Append(RoleUser, "abandoned")
	before := len(rec.all())
	store.Reset()
	require.Len(t, rec.all(), before)
	store.Flush(RoleUser)
	require.Len(t, rec.all(), before)
}
