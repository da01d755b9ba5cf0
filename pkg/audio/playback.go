package audio

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrSchedulerClosed is returned by Schedule after Close.
var ErrSchedulerClosed = errors.New("playback scheduler closed")

// Clock abstracts the output context's time base. Tests substitute a fixed
// clock; production uses the wall clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Player is the output device a scheduler plays into. Flush discards any
// audio the device has already buffered (instant cut), Close releases it.
type Player interface {
	Write(pcm []byte) error
	Flush() error
	Close() error
}

// Scheduler plays inbound PCM payloads back to back with no gaps and no
// overlap. A single monotonically-advancing cursor (seconds since the
// scheduler's epoch) decides each payload's start; interruption stops all
// live sources at once and resets the cursor to zero.
type Scheduler struct {
	clock      Clock
	player     Player
	sampleRate int
	log        zerolog.Logger

	mu      sync.Mutex
	epoch   time.Time
	next    float64
	sources map[uint64]*playbackSource
	lastID  uint64
	closed  bool
}

type playbackSource struct {
	id       uint64
	startAt  float64
	duration float64
	play     *time.Timer
	finish   *time.Timer
	stopped  bool
}

// SchedulerConfig wires a Scheduler.
type SchedulerConfig struct {
	Player Player
	Logger zerolog.Logger

	// Clock defaults to the wall clock.
	Clock Clock
	// SampleRate is the fallback output rate when a payload's mimetype
	// carries none. Default 24000.
	SampleRate int
}

// NewScheduler creates a scheduler whose epoch is the moment of creation.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = systemClock{}
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = PlaybackSampleRate
	}
	return &Scheduler{
		clock:      clock,
		player:     cfg.Player,
		sampleRate: rate,
		log:        cfg.Logger,
		epoch:      clock.Now(),
		sources:    make(map[uint64]*playbackSource),
	}
}

func (s *Scheduler) now() float64 {
	return s.clock.Now().Sub(s.epoch).Seconds()
}

// Schedule queues one decoded payload for gapless playback. The payload is
// s16le mono PCM; its rate is read from mimeType ("audio/pcm;rate=24000").
func (s *Scheduler) Schedule(pcm []byte, mimeType string) error {
	if len(pcm) == 0 {
		return nil
	}
	rate := ParseSampleRate(mimeType, s.sampleRate)
	duration := PCMDuration(pcm, rate).Seconds()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	now := s.now()
	if s.next < now {
		// Playback fell behind or is starting cold.
		s.next = now
	}
	s.lastID++
	src := &playbackSource{
		id:       s.lastID,
		startAt:  s.next,
		duration: duration,
	}
	s.next = src.startAt + duration
	s.sources[src.id] = src

	delay := time.Duration((src.startAt - now) * float64(time.Second))
	if delay < 0 {
		delay = 0
	}
	src.play = time.AfterFunc(delay, func() { s.start(src.id, pcm) })
	s.mu.Unlock()
	return nil
}

// start fires when a source's start time arrives.
func (s *Scheduler) start(id uint64, pcm []byte) {
	s.mu.Lock()
	src, ok := s.sources[id]
	if !ok || src.stopped || s.closed {
		s.mu.Unlock()
		return
	}
	src.finish = time.AfterFunc(time.Duration(src.duration*float64(time.Second)), func() {
		s.remove(id)
	})
	player := s.player
	s.mu.Unlock()

	if err := player.Write(pcm); err != nil {
		s.log.Debug().Err(err).Msg("playback write failed")
	}
}

// remove drops a source that completed naturally.
func (s *Scheduler) remove(id uint64) {
	s.mu.Lock()
	delete(s.sources, id)
	s.mu.Unlock()
}

// StopAll force-stops every live source, clears the set and resets the
// cursor to zero so the next payload starts fresh. Sources that already
// finished tolerate the stop as a no-op.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	for id, src := range s.sources {
		src.stopped = true
		if src.play != nil {
			src.play.Stop()
		}
		if src.finish != nil {
			src.finish.Stop()
		}
		delete(s.sources, id)
	}
	s.next = 0
	player := s.player
	closed := s.closed
	s.mu.Unlock()

	if !closed && player != nil {
		if err := player.Flush(); err != nil {
			s.log.Debug().Err(err).Msg("playback flush failed")
		}
	}
}

// Live reports the number of live sources.
func (s *Scheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// Cursor returns the raw nextStartTime value in seconds.
func (s *Scheduler) Cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Close stops all sources and releases the output device. Idempotent.
func (s *Scheduler) Close() error {
	s.StopAll()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	player := s.player
	s.mu.Unlock()
	if player != nil {
		return player.Close()
	}
	return nil
}
