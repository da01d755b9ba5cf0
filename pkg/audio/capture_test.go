package audio

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	frames    chan []float32
	done      chan struct{}
	closeOnce sync.Once
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{frames: make(chan []float32, 8), done: make(chan struct{})}
}

func (s *scriptedSource) ReadFrame() ([]float32, error) {
	select {
	case frame := <-s.frames:
		return frame, nil
	case <-s.done:
		return nil, io.EOF
	}
}

func (s *scriptedSource) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

type sendRecorder struct {
	mu    sync.Mutex
	sends [][]byte
	err   error
}

func (r *sendRecorder) send(pcm []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sends = append(r.sends, pcm)
	return nil
}

func (r *sendRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sends)
}

func (r *sendRecorder) first() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sends) == 0 {
		return nil
	}
	return r.sends[0]
}

func TestCaptureFlowsFramesThrough(t *testing.T) {
	src := newScriptedSource()
	rec := &sendRecorder{}
	var volMu sync.Mutex
	var volumes []float64

	c := NewCapture(CaptureConfig{
		Source: src,
		Send:   rec.send,
		OnVolume: func(level float64) {
			volMu.Lock()
			volumes = append(volumes, level)
			volMu.Unlock()
		},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, c.Start())
	defer c.Stop()

	src.frames <- []float32{0.5, -0.5, 0.5, -0.5}

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)

	pcm := rec.first()
	require.Len(t, pcm, 8)
	require.Equal(t, int16(16383), int16(pcm[0])|int16(pcm[1])<<8)

	volMu.Lock()
	defer volMu.Unlock()
	require.Len(t, volumes, 1)
	require.InDelta(t, 0.5, volumes[0], 1e-9)
}

func TestCaptureDoubleStartFails(t *testing.T) {
	c := NewCapture(CaptureConfig{Source: newScriptedSource(), Send: (&sendRecorder{}).send, Logger: zerolog.Nop()})
	require.NoError(t, c.Start())
	require.ErrorIs(t, c.Start(), ErrCaptureStarted)
	c.Stop()
}

func TestCaptureStopIsReentrant(t *testing.T) {
	src := newScriptedSource()
	c := NewCapture(CaptureConfig{Source: src, Send: (&sendRecorder{}).send, Logger: zerolog.Nop()})
	require.NoError(t, c.Start())

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	c.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("concurrent Stop did not return")
	}
}

func TestCaptureDropsSendErrorsAfterStop(t *testing.T) {
	src := newScriptedSource()
	rec := &sendRecorder{}
	c := NewCapture(CaptureConfig{Source: src, Send: rec.send, Logger: zerolog.Nop()})
	require.NoError(t, c.Start())

	src.frames <- []float32{0.1}
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)

	c.Stop()
	before := rec.count()

	// Frames queued after stop never reach the sender.
	select {
	case src.frames <- []float32{0.2}:
	default:
	}
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, before, rec.count())
}
