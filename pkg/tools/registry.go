package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/vaultvoice/vaultvoice/pkg/realtime"
)

// ErrUnknownTool is returned when a call names a command that was never
// registered.
var ErrUnknownTool = errors.New("unknown tool")

// Handler executes one named command.
type Handler interface {
	Name() string
	Declaration() realtime.ToolDeclaration
	Execute(ctx context.Context, args map[string]any, cb realtime.ToolCallbacks) (any, error)
}

// maxSeenInvocations bounds the retry-suppression window. It only needs to
// cover near-term retries of the same call; once the window fills, the
// oldest ids are evicted.
const maxSeenInvocations = 512

// Registry is a closed set of tool handlers built once at startup. It
// implements the coordinator's Dispatcher contract.
type Registry struct {
	handlers map[string]Handler
	log      zerolog.Logger

	mu        sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
}

// NewRegistry builds the dispatch table. Duplicate names panic; the set is
// assembled in one place at startup so a collision is a programming error.
func NewRegistry(log zerolog.Logger, handlers ...Handler) *Registry {
	table := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		if _, dup := table[h.Name()]; dup {
			panic(fmt.Sprintf("tools: duplicate handler %q", h.Name()))
		}
		table[h.Name()] = h
	}
	return &Registry{
		handlers: table,
		log:      log,
		seen:     make(map[string]struct{}),
	}
}

// Declarations returns the catalog to advertise at session setup.
func (r *Registry) Declarations() []realtime.ToolDeclaration {
	decls := make([]realtime.ToolDeclaration, 0, len(r.handlers))
	for _, h := range r.handlers {
		decls = append(decls, h.Declaration())
	}
	return decls
}

// Execute resolves and runs one tool call. Unknown commands fail before any
// pending message is emitted. Retried invocation ids skip the pending
// message so the UI does not show duplicates. Timing is wall-clock
// milliseconds from just before the handler to the outcome, reported on
// every path.
func (r *Registry) Execute(ctx context.Context, call realtime.ToolCall, cb realtime.ToolCallbacks) (any, error) {
	handler, ok := r.handlers[call.Name]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
		r.log.Error().Str("tool", call.Name).Msg("unknown tool call")
		cb.Log(fmt.Sprintf("Unknown command: %s", call.Name), realtime.LogError, 0)
		return nil, err
	}

	if r.firstInvocation(call.ID) {
		cb.SystemMessage(fmt.Sprintf("Running %s...", call.Name), &realtime.ToolData{
			Name:   call.Name,
			Args:   call.Args,
			Status: "pending",
		})
	}

	started := time.Now()
	result, err := handler.Execute(ctx, call.Args, cb)
	elapsed := time.Since(started).Milliseconds()

	if err != nil {
		argsJSON, _ := json.Marshal(call.Args)
		r.log.Error().
			Err(err).
			Str("tool", call.Name).
			RawJSON("args", ensureJSON(argsJSON)).
			Int("args_bytes", len(argsJSON)).
			Int64("duration_ms", elapsed).
			Msg("tool execution failed")
		cb.Log(fmt.Sprintf("%s failed: %v", call.Name, err), realtime.LogError, elapsed)
		cb.SystemMessage(fmt.Sprintf("%s failed: %v", call.Name, err), &realtime.ToolData{
			Name:       call.Name,
			Args:       call.Args,
			Status:     "error",
			DurationMS: elapsed,
		})
		return nil, err
	}

	capped, truncated := ApplyLimits(result)
	r.log.Debug().
		Str("tool", call.Name).
		Int64("duration_ms", elapsed).
		Bool("truncated", truncated).
		Msg("tool execution complete")
	cb.Log(fmt.Sprintf("%s completed", call.Name), realtime.LogTool, elapsed)
	if truncated {
		cb.SystemMessage(fmt.Sprintf("%s returned a large result; showing a truncated view.", call.Name), &realtime.ToolData{
			Name:       call.Name,
			Args:       call.Args,
			Status:     "truncated",
			DurationMS: elapsed,
		})
	} else {
		cb.SystemMessage(fmt.Sprintf("%s completed", call.Name), &realtime.ToolData{
			Name:       call.Name,
			Args:       call.Args,
			Status:     "done",
			DurationMS: elapsed,
		})
	}
	return capped, nil
}

// firstInvocation records the id and reports whether it was new. Calls
// without an id always count as first.
func (r *Registry) firstInvocation(id string) bool {
	if id == "" {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.seen[id]; dup {
		return false
	}
	if len(r.seenOrder) == maxSeenInvocations {
		delete(r.seen, r.seenOrder[0])
		r.seenOrder = r.seenOrder[1:]
	}
	r.seen[id] = struct{}{}
	r.seenOrder = append(r.seenOrder, id)
	return true
}

func ensureJSON(data []byte) []byte {
	if len(data) == 0 {
		return []byte("null")
	}
	return data
}
