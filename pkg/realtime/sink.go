package realtime

// Role identifies a transcript speaker.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// LogKind categorizes UI log entries.
type LogKind string

const (
	LogInfo  LogKind = "info"
	LogError LogKind = "error"
	LogTool  LogKind = "tool"
)

// ToolData is attached to system messages that describe a tool invocation.
type ToolData struct {
	Name       string
	Args       map[string]any
	Status     string
	DurationMS int64
}

// EventSink is the set of UI callbacks a session reports through. Any field
// may be nil; emission is skipped for unset callbacks.
type EventSink struct {
	OnStatusChange    func(status Status)
	OnLog             func(message string, kind LogKind, durationMS int64)
	OnTranscription   func(role Role, text string, final bool)
	OnSystemMessage   func(text string, tool *ToolData)
	OnFileStateChange func(folder, note string)
	OnUsageUpdate     func(usage Usage)
	OnVolume          func(level float64)
	OnInterrupted     func()
}

func (s EventSink) statusChange(status Status) {
	if s.OnStatusChange != nil {
		s.OnStatusChange(status)
	}
}

func (s EventSink) log(message string, kind LogKind, durationMS int64) {
	if s.OnLog != nil {
		s.OnLog(message, kind, durationMS)
	}
}

func (s EventSink) transcription(role Role, text string, final bool) {
	if s.OnTranscription != nil {
		s.OnTranscription(role, text, final)
	}
}

func (s EventSink) systemMessage(text string, tool *ToolData) {
	if s.OnSystemMessage != nil {
		s.OnSystemMessage(text, tool)
	}
}

func (s EventSink) fileStateChange(folder, note string) {
	if s.OnFileStateChange != nil {
		s.OnFileStateChange(folder, note)
	}
}

func (s EventSink) usageUpdate(usage Usage) {
	if s.OnUsageUpdate != nil {
		s.OnUsageUpdate(usage)
	}
}

func (s EventSink) volume(level float64) {
	if s.OnVolume != nil {
		s.OnVolume(level)
	}
}

func (s EventSink) interrupted() {
	if s.OnInterrupted != nil {
		s.OnInterrupted()
	}
}

// ToolCallbacks is the narrower callback set handed to tool handlers by the
// dispatch layer.
type ToolCallbacks struct {
	OnLog           func(message string, kind LogKind, durationMS int64)
	OnSystemMessage func(text string, tool *ToolData)
	OnFileState     func(folder, note string)
}

// Log emits through OnLog when set.
func (c ToolCallbacks) Log(message string, kind LogKind, durationMS int64) {
	if c.OnLog != nil {
		c.OnLog(message, kind, durationMS)
	}
}

// SystemMessage emits through OnSystemMessage when set.
func (c ToolCallbacks) SystemMessage(text string, tool *ToolData) {
	if c.OnSystemMessage != nil {
		c.OnSystemMessage(text, tool)
	}
}

// FileState emits through OnFileState when set.
func (c ToolCallbacks) FileState(folder, note string) {
	if c.OnFileState != nil {
		c.OnFileState(folder, note)
	}
}
