package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vaultvoice/vaultvoice/pkg/realtime"
)

const (
	defaultEndpoint       = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	defaultConnectTimeout = 15 * time.Second
)

// ErrChannelClosed is returned when sending on a closed channel.
var ErrChannelClosed = errors.New("gemini channel is closed")

// Dialer connects live sessions to the Gemini BidiGenerateContent endpoint.
type Dialer struct {
	APIKey string
	Logger zerolog.Logger

	// Endpoint overrides the production websocket URL, used in tests.
	Endpoint string
}

// Connect dials the endpoint, sends the setup frame and waits for
// setupComplete before handing the channel to the caller.
func (d *Dialer) Connect(ctx context.Context, cfg realtime.ConnectConfig) (realtime.Channel, error) {
	if d.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	wsURL := endpoint + "?key=" + url.QueryEscape(d.APIKey)

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	setup, err := json.Marshal(buildSetup(cfg))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("encode setup: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, setup); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send setup: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(defaultConnectTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read setup response: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	var first serverFrame
	if err := json.Unmarshal(payload, &first); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("decode setup response: %w", err)
	}
	if first.SetupComplete == nil {
		_ = conn.Close()
		return nil, fmt.Errorf("expected setupComplete, got %s", string(payload))
	}

	ch := &channel{
		conn:     conn,
		log:      d.Logger,
		messages: make(chan realtime.ServerMessage, 64),
		done:     make(chan struct{}),
		stop:     make(chan struct{}),
	}
	go ch.readLoop()
	return ch, nil
}

// channel is one live websocket session.
type channel struct {
	conn *websocket.Conn
	log  zerolog.Logger

	messages chan realtime.ServerMessage
	done     chan struct{}
	stop     chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// Messages yields decoded server messages in arrival order. The channel is
// closed when the session ends.
func (c *channel) Messages() <-chan realtime.ServerMessage {
	return c.messages
}

func (c *channel) SendRealtimeInput(payload realtime.MediaPayload) error {
	msg := realtimeInputMessage{
		RealtimeInput: realtimeInputPayload{
			MediaChunks: []blobPayload{{
				MIMEType: payload.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(payload.Data),
			}},
		},
	}
	return c.sendJSON(msg)
}

func (c *channel) SendToolResponse(resp realtime.ToolResponse) error {
	msg := toolResponseMessage{
		ToolResponse: toolResponsePayload{
			FunctionResponses: []functionResponse{{
				ID:       resp.ID,
				Name:     resp.Name,
				Response: resp.Response,
			}},
		},
	}
	return c.sendJSON(msg)
}

func (c *channel) sendJSON(v any) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close shuts the websocket down and waits for the read loop to exit.
func (c *channel) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stop)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	<-c.done
	return nil
}

// Err returns the terminal session error, if any. Blocks until the session
// has ended.
func (c *channel) Err() error {
	<-c.done
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *channel) setErr(err error) {
	if err == nil {
		return
	}
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *channel) readLoop() {
	defer close(c.done)
	defer close(c.messages)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			c.setErr(err)
			return
		}
		// Gemini delivers JSON in binary frames as well as text frames.
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		var frame serverFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.setErr(fmt.Errorf("decode server frame: %w", err))
			return
		}
		if frame.GoAway != nil {
			c.log.Debug().Str("time_left", frame.GoAway.TimeLeft).Msg("server go away")
			continue
		}

		msg, ok, err := toServerMessage(frame)
		if err != nil {
			c.setErr(err)
			return
		}
		if !ok {
			continue
		}
		// Delivery order matters for transcript and playback correctness,
		// so emits block instead of dropping.
		select {
		case c.messages <- msg:
		case <-c.stop:
			return
		}
	}
}
