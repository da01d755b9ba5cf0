package audio

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Capture lifecycle errors.
var (
	ErrCaptureStarted = errors.New("capture already started")
	ErrCaptureStopped = errors.New("capture already stopped")
)

// FrameSource yields fixed-size frames of float32 microphone samples.
// ReadFrame blocks until a frame is available and returns io.EOF (or any
// other error) once the source is exhausted or closed.
type FrameSource interface {
	ReadFrame() ([]float32, error)
	Close() error
}

// Capture turns a live microphone stream into outbound PCM chunks. Each frame
// is levelled (RMS volume event), converted to s16le and queued; a dedicated
// sender goroutine drains the queue so the frame loop never waits on channel
// backpressure. Chunks that race a torn-down session are dropped silently.
type Capture struct {
	src      FrameSource
	send     func(pcm []byte) error
	onVolume func(level float64)
	log      zerolog.Logger

	queue chan []byte
	done  chan struct{}

	started  atomic.Bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// CaptureConfig wires a Capture.
type CaptureConfig struct {
	Source   FrameSource
	Send     func(pcm []byte) error
	OnVolume func(level float64)
	Logger   zerolog.Logger

	// QueueSize bounds the outbound queue. Default 32 frames.
	QueueSize int
}

// NewCapture creates an unstarted capture pipeline.
func NewCapture(cfg CaptureConfig) *Capture {
	size := cfg.QueueSize
	if size <= 0 {
		size = 32
	}
	return &Capture{
		src:      cfg.Source,
		send:     cfg.Send,
		onVolume: cfg.OnVolume,
		log:      cfg.Logger,
		queue:    make(chan []byte, size),
		done:     make(chan struct{}),
	}
}

// Start begins the frame and sender loops. Starting twice is an error; the
// pipeline is a single-use resource handle matched by one Stop.
func (c *Capture) Start() error {
	if c.started.Swap(true) {
		return ErrCaptureStarted
	}
	c.wg.Add(2)
	go c.frameLoop()
	go c.sendLoop()
	return nil
}

func (c *Capture) frameLoop() {
	defer c.wg.Done()
	for {
		frame, err := c.src.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !c.stopped() {
				c.log.Debug().Err(err).Msg("capture frame read failed")
			}
			return
		}
		if c.stopped() {
			return
		}
		if c.onVolume != nil {
			c.onVolume(RMS(frame))
		}
		pcm := EncodePCM16(frame)
		select {
		case c.queue <- pcm:
		case <-c.done:
			return
		default:
			// Queue full: the channel is slower than the mic. Drop rather
			// than stall the periodic frame delivery.
			c.log.Debug().Msg("outbound audio queue full, dropping frame")
		}
	}
}

func (c *Capture) sendLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case pcm := <-c.queue:
			if err := c.send(pcm); err != nil {
				if c.stopped() {
					return
				}
				c.log.Debug().Err(err).Msg("outbound audio send failed")
			}
		}
	}
}

func (c *Capture) stopped() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Stop tears the pipeline down: closes the source, unblocks both loops and
// waits for them to exit. Safe to call more than once.
func (c *Capture) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		_ = c.src.Close()
	})
	c.wg.Wait()
}
