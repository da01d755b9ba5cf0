// Package realtime coordinates a live voice session: one duplex channel to
// the model, microphone capture going out, scheduled playback coming in,
// transcript accumulation and tool dispatch in between.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vaultvoice/vaultvoice/pkg/audio"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusDisconnected Status = "DISCONNECTED"
	StatusConnecting   Status = "CONNECTING"
	StatusConnected    Status = "CONNECTED"
	StatusError        Status = "ERROR"
)

func (s Status) String() string { return string(s) }

var (
	// ErrSessionActive is returned by Start while a session is connecting
	// or connected.
	ErrSessionActive = errors.New("a session is already active")
	// ErrNotConnected is returned by SendText outside a connected session.
	ErrNotConnected = errors.New("no active session")
)

// Dispatcher resolves and executes tool calls. The registry in pkg/tools is
// the production implementation.
type Dispatcher interface {
	Declarations() []ToolDeclaration
	Execute(ctx context.Context, call ToolCall, cb ToolCallbacks) (any, error)
}

// Options wires a Coordinator's collaborators.
type Options struct {
	Dialer Dialer
	Tools  Dispatcher
	Sink   EventSink
	Logger zerolog.Logger

	// OpenMic and OpenSpeaker acquire the audio devices for one session.
	// The coordinator owns the returned handles for the session lifetime.
	OpenMic     func() (audio.FrameSource, error)
	OpenSpeaker func() (audio.Player, error)

	// PlaybackClock overrides the playback time base, used in tests.
	PlaybackClock audio.Clock
}

// StartConfig configures one session.
type StartConfig struct {
	Model string
	Voice string

	// BasePrompt is the standing system instruction; CustomContext is
	// user-supplied text appended after it.
	BasePrompt    string
	CustomContext string

	// Folder and Note seed the live file context when non-empty. The
	// coordinator keeps them current from tool side effects so a restart
	// carries the latest state.
	Folder string
	Note   string
}

// Coordinator owns at most one live session at a time. Start, Stop and
// SendText are safe for concurrent use; Stop is idempotent and reentrant.
type Coordinator struct {
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex
	status   Status
	channel  Channel
	capture  *audio.Capture
	playback *audio.Scheduler
	usage    Usage
	folder   string
	note     string

	// gen identifies the current session. Stop and Start bump it; the
	// receive loop drops anything addressed to an earlier generation.
	gen      uint64
	recvDone chan struct{}

	transcripts *TranscriptStore
}

// New creates an idle coordinator.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		opts:   opts,
		log:    opts.Logger,
		status: StatusDisconnected,
	}
	c.transcripts = NewTranscriptStore(func(role Role, text string, final bool) {
		c.opts.Sink.transcription(role, text, final)
	})
	return c
}

// Status returns the current lifecycle state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// UsageTotal returns the accumulated token usage across the session.
func (c *Coordinator) UsageTotal() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// FileContext returns the current folder and note the session is focused on.
func (c *Coordinator) FileContext() (folder, note string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.folder, c.note
}

// Start opens a new session. Fails with ErrSessionActive if one is already
// connecting or connected; the existing session is left untouched. Any
// connection fault tears the partial session down fully and moves the
// status to ERROR.
func (c *Coordinator) Start(ctx context.Context, cfg StartConfig) error {
	c.mu.Lock()
	if c.status == StatusConnecting || c.status == StatusConnected {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.status = StatusConnecting
	c.gen++
	gen := c.gen
	if cfg.Folder != "" {
		c.folder = cfg.Folder
	}
	if cfg.Note != "" {
		c.note = cfg.Note
	}
	c.usage = Usage{}
	instruction := c.composeInstruction(cfg)
	c.mu.Unlock()
	c.opts.Sink.statusChange(StatusConnecting)

	sessionID := uuid.NewString()
	log := c.opts.Logger.With().Str("session_id", sessionID).Logger()
	c.log = log
	log.Info().Str("model", cfg.Model).Str("voice", cfg.Voice).Msg("starting session")

	// Tool invocations outlive interruption and stop, so their context is
	// detached from both the caller and session teardown.
	sessionCtx := context.WithoutCancel(ctx)

	channel, err := c.opts.Dialer.Connect(ctx, ConnectConfig{
		Model:               cfg.Model,
		SystemInstruction:   instruction,
		Voice:               cfg.Voice,
		Tools:               c.opts.Tools.Declarations(),
		InputTranscription:  true,
		OutputTranscription: true,
	})
	if err != nil {
		return c.fail(fmt.Errorf("open realtime channel: %w", err))
	}

	speaker, err := c.opts.OpenSpeaker()
	if err != nil {
		_ = channel.Close()
		return c.fail(fmt.Errorf("open speaker: %w", err))
	}
	playback := audio.NewScheduler(audio.SchedulerConfig{
		Player: speaker,
		Clock:  c.opts.PlaybackClock,
		Logger: c.log,
	})

	mic, err := c.opts.OpenMic()
	if err != nil {
		_ = channel.Close()
		_ = playback.Close()
		return c.fail(fmt.Errorf("open microphone: %w", err))
	}
	capture := audio.NewCapture(audio.CaptureConfig{
		Source: mic,
		Send: func(pcm []byte) error {
			return channel.SendRealtimeInput(MediaPayload{Data: pcm, MIMEType: MIMEPCMCapture})
		},
		OnVolume: c.opts.Sink.volume,
		Logger:   c.log,
	})
	if err := capture.Start(); err != nil {
		_ = channel.Close()
		_ = playback.Close()
		return c.fail(fmt.Errorf("start capture: %w", err))
	}

	c.mu.Lock()
	if c.gen != gen {
		// Stop won the race during startup; release everything acquired
		// and leave the coordinator as Stop left it.
		c.mu.Unlock()
		capture.Stop()
		_ = playback.Close()
		_ = channel.Close()
		log.Info().Msg("session stopped during startup")
		return nil
	}
	done := make(chan struct{})
	c.channel = channel
	c.capture = capture
	c.playback = playback
	c.recvDone = done
	c.status = StatusConnected
	c.mu.Unlock()
	c.opts.Sink.statusChange(StatusConnected)
	c.opts.Sink.log("session connected", LogInfo, 0)

	go c.recvLoop(sessionCtx, gen, done, channel, playback)
	return nil
}

// composeInstruction assembles the system instruction from the base prompt,
// the live file context and any user-supplied extra context.
func (c *Coordinator) composeInstruction(cfg StartConfig) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(cfg.BasePrompt))
	if c.folder != "" || c.note != "" {
		b.WriteString("\n\nCurrent context:")
		if c.folder != "" {
			fmt.Fprintf(&b, "\n- Current folder: %s", c.folder)
		}
		if c.note != "" {
			fmt.Fprintf(&b, "\n- Current note: %s", c.note)
		}
	}
	if extra := strings.TrimSpace(cfg.CustomContext); extra != "" {
		b.WriteString("\n\n")
		b.WriteString(extra)
	}
	return b.String()
}

// SendText pushes a typed message into the live conversation over the same
// realtime-input path the microphone uses.
func (c *Coordinator) SendText(text string) error {
	c.mu.Lock()
	channel := c.channel
	connected := c.status == StatusConnected
	c.mu.Unlock()
	if !connected || channel == nil {
		return ErrNotConnected
	}
	return channel.SendRealtimeInput(MediaPayload{
		Data:     []byte(text),
		MIMEType: MIMETextPlain,
	})
}

// recvLoop drains the channel until it closes, then tears the session down.
// Message handling happens inline so channel-delivery order is preserved.
// Messages still buffered when the session generation moves on are dropped,
// never replayed into the next session.
func (c *Coordinator) recvLoop(ctx context.Context, gen uint64, done chan struct{}, channel Channel, playback *audio.Scheduler) {
	for msg := range channel.Messages() {
		if !c.sessionCurrent(gen) {
			break
		}
		c.handleMessage(ctx, channel, playback, msg)
	}
	close(done)
	if !c.sessionCurrent(gen) {
		return
	}
	if err := channel.Err(); err != nil {
		_ = c.fail(fmt.Errorf("realtime channel: %w", err))
		return
	}
	c.Stop()
}

func (c *Coordinator) sessionCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

func (c *Coordinator) handleMessage(ctx context.Context, channel Channel, playback *audio.Scheduler, msg ServerMessage) {
	if msg.Usage != nil {
		c.mu.Lock()
		c.usage.Add(*msg.Usage)
		total := c.usage
		c.mu.Unlock()
		c.opts.Sink.usageUpdate(total)
	}

	if msg.InputTranscript != "" {
		c.transcripts.Append(RoleUser, msg.InputTranscript)
	}
	if msg.OutputTranscript != "" {
		c.transcripts.Append(RoleModel, msg.OutputTranscript)
	}
	if msg.TurnComplete {
		c.transcripts.Flush(RoleUser)
		c.transcripts.Flush(RoleModel)
	}

	for _, call := range msg.ToolCalls {
		go c.runTool(ctx, channel, call)
	}

	for _, chunk := range msg.Audio {
		if err := playback.Schedule(chunk.Data, chunk.MIMEType); err != nil {
			c.log.Debug().Err(err).Msg("schedule playback")
		}
	}

	if msg.Interrupted {
		playback.StopAll()
		c.opts.Sink.interrupted()
	}
}

// runTool executes one call and routes the tagged response back. Tool
// invocations are never cancelled by interruption or stop; a response that
// completes after teardown is dropped.
func (c *Coordinator) runTool(ctx context.Context, channel Channel, call ToolCall) {
	cb := ToolCallbacks{
		OnLog:           c.opts.Sink.log,
		OnSystemMessage: c.opts.Sink.systemMessage,
		OnFileState:     c.setFileState,
	}
	result, err := c.opts.Tools.Execute(ctx, call, cb)

	resp := ToolResponse{ID: call.ID, Name: call.Name}
	if err != nil {
		resp.Response = ErrorResponse(err.Error())
	} else {
		resp.Response = SuccessResponse(result)
	}
	if sendErr := channel.SendToolResponse(resp); sendErr != nil {
		c.log.Debug().
			Err(sendErr).
			Str("tool", call.Name).
			Str("id", call.ID).
			Msg("dropping tool response for released channel")
	}
}

func (c *Coordinator) setFileState(folder, note string) {
	c.mu.Lock()
	c.folder = folder
	c.note = note
	c.mu.Unlock()
	c.opts.Sink.fileStateChange(folder, note)
}

// fail tears the session down and surfaces a connection fault.
func (c *Coordinator) fail(err error) error {
	c.log.Error().Err(err).Msg("session error")
	c.opts.Sink.log(err.Error(), LogError, 0)
	c.mu.Lock()
	c.status = StatusError
	c.mu.Unlock()
	c.opts.Sink.statusChange(StatusError)
	c.Stop()
	return err
}

// Stop tears down the active session. Safe to call at any time, from any
// goroutine, repeatedly: every step tolerates already-released state. An
// ERROR status is preserved; otherwise the coordinator returns to
// DISCONNECTED.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.gen++
	channel := c.channel
	capture := c.capture
	playback := c.playback
	recvDone := c.recvDone
	c.channel = nil
	c.capture = nil
	c.playback = nil
	c.recvDone = nil
	wasIdle := channel == nil && capture == nil && playback == nil
	statusChanged := false
	if c.status != StatusError && c.status != StatusDisconnected {
		c.status = StatusDisconnected
		statusChanged = true
	}
	c.mu.Unlock()

	if capture != nil {
		capture.Stop()
	}
	if playback != nil {
		_ = playback.Close()
	}
	if channel != nil {
		_ = channel.Close()
	}
	// Join the receive loop so no stale message lands after the transcript
	// reset below or inside the next session. The loop closes recvDone
	// before its own teardown path, so this never self-deadlocks.
	if recvDone != nil {
		<-recvDone
	}
	if wasIdle && !statusChanged {
		return
	}

	c.transcripts.Reset()
	c.opts.Sink.volume(0)
	if statusChanged {
		c.opts.Sink.statusChange(StatusDisconnected)
	}
	if !wasIdle {
		c.opts.Sink.log("session stopped", LogInfo, 0)
	}
}
