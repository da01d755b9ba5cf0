package realtime

import (
	"strings"
	"sync"
)

// TranscriptStore accumulates streaming transcription fragments per speaker.
// Fragments are applied as a left-fold in arrival order; reordering would
// corrupt the transcript, so callers must append from a single delivery loop.
type TranscriptStore struct {
	mu   sync.Mutex
	bufs map[Role]*strings.Builder
	emit func(role Role, text string, final bool)
}

// NewTranscriptStore creates a store that reports accumulated text through
// emit. emit receives the full text so far, not the fragment.
func NewTranscriptStore(emit func(role Role, text string, final bool)) *TranscriptStore {
	return &TranscriptStore{
		bufs: map[Role]*strings.Builder{
			RoleUser:  {},
			RoleModel: {},
		},
		emit: emit,
	}
}

// Append concatenates fragment onto role's buffer and emits the accumulated
// text with final=false. Empty fragments are ignored.
func (t *TranscriptStore) Append(role Role, fragment string) {
	if fragment == "" {
		return
	}
	t.mu.Lock()
	buf, ok := t.bufs[role]
	if !ok {
		buf = &strings.Builder{}
		t.bufs[role] = buf
	}
	buf.WriteString(fragment)
	text := buf.String()
	t.mu.Unlock()

	if t.emit != nil {
		t.emit(role, text, false)
	}
}

// Flush emits role's accumulated text with final=true and clears the buffer.
// A flush of an empty buffer is a no-op (no event).
func (t *TranscriptStore) Flush(role Role) {
	t.mu.Lock()
	buf, ok := t.bufs[role]
	if !ok || buf.Len() == 0 {
		t.mu.Unlock()
		return
	}
	text := buf.String()
	buf.Reset()
	t.mu.Unlock()

	if t.emit != nil {
		t.emit(role, text, true)
	}
}

// Text returns role's accumulated text so far.
func (t *TranscriptStore) Text(role Role) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if buf, ok := t.bufs[role]; ok {
		return buf.String()
	}
	return ""
}

// Reset clears every buffer without emitting. Used on session teardown.
func (t *TranscriptStore) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, buf := range t.bufs {
		buf.Reset()
	}
}
