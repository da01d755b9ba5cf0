package realtime

import (
	"context"
)

// MIME types used on the realtime-input path. Audio capture sends PCM tagged
// with its sample rate; SendText reuses the same path with a text tag.
const (
	MIMEPCMCapture = "audio/pcm;rate=16000"
	MIMETextPlain  = "text/plain"
)

// MediaPayload is one outbound realtime-input chunk. Data is raw bytes; the
// connector owns the transport encoding (base64 on the wire).
type MediaPayload struct {
	Data     []byte
	MIMEType string
}

// AudioChunk is one inbound decoded audio payload from a model turn.
type AudioChunk struct {
	Data     []byte
	MIMEType string
}

// ToolCall is a model-issued command invocation. Every delivered ToolCall
// requires exactly one ToolResponse tagged with the same ID.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResponse is the reply to a single ToolCall.
type ToolResponse struct {
	ID       string
	Name     string
	Response map[string]any
}

// SuccessResponse wraps a handler result for the wire.
func SuccessResponse(result any) map[string]any {
	return map[string]any{"result": result}
}

// ErrorResponse wraps a handler failure for the wire.
func ErrorResponse(message string) map[string]any {
	return map[string]any{"error": message}
}

// Usage carries token accounting metadata from the backend.
type Usage struct {
	PromptTokens   int
	ResponseTokens int
	TotalTokens    int
}

// Add accumulates another usage report into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.ResponseTokens += other.ResponseTokens
	u.TotalTokens += other.TotalTokens
}

// ServerMessage is one inbound message from the realtime channel, already
// normalized by the connector. Fields are independent: a single message may
// carry transcription fragments, tool calls and audio at once.
type ServerMessage struct {
	Usage            *Usage
	InputTranscript  string
	OutputTranscript string
	TurnComplete     bool
	Interrupted      bool
	ToolCalls        []ToolCall
	Audio            []AudioChunk
}

// ToolDeclaration describes one command in the catalog declared to the
// backend at connect time.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ConnectConfig configures a realtime channel.
type ConnectConfig struct {
	Model               string
	SystemInstruction   string
	Voice               string
	Tools               []ToolDeclaration
	InputTranscription  bool
	OutputTranscription bool
}

// Channel is an open realtime session handle. Messages are delivered in
// channel order; the stream closes on teardown or remote close, after which
// Err reports the terminal error (nil on a clean close).
type Channel interface {
	SendRealtimeInput(payload MediaPayload) error
	SendToolResponse(resp ToolResponse) error
	Messages() <-chan ServerMessage
	Err() error
	Close() error
}

// Dialer opens realtime channels. Implementations own transport and codec;
// the coordinator treats the channel as an opaque message stream.
type Dialer interface {
	Connect(ctx context.Context, cfg ConnectConfig) (Channel, error)
}
