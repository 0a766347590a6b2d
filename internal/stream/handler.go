// Package stream consumes a streaming completion response and hands each
// decoded data line to the caller as it arrives.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/davidhbaek/llmstream/internal/logger"
	"github.com/davidhbaek/llmstream/internal/sse"
	"github.com/google/uuid"
)

// Result carries either a decoded payload or the error that replaced it.
type Result[T any] struct {
	Value T
	Err   error
}

type State int

const (
	Idle State = iota
	Connecting
	Streaming
	Completed
	Errored
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Errored:
		return "errored"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

func (s State) terminal() bool {
	return s == Completed || s == Errored || s == Cancelled
}

// Handler owns at most one streaming request at a time and dispatches every
// data line of its response to OnEventReceived as a Result[T].
//
// Set the callbacks before Connect. Connect takes a copy of them for the new
// session, so later changes only affect later sessions. They run on the
// transport's delivery goroutine, one at a time, in arrival order.
type Handler[T any] struct {
	// OnEventReceived is called once per decoded data line, once per line
	// that fails to decode, and once for a fatal transport or encoding error.
	OnEventReceived func(Result[T])
	// OnComplete is called once when the transport finishes without error.
	OnComplete func()

	transport Transport
	logger    *slog.Logger

	mu      sync.Mutex
	current *session[T]
	state   State
}

type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	logger *slog.Logger
}

func WithLogger(l *slog.Logger) HandlerOption {
	return func(o *handlerOptions) {
		o.logger = l
	}
}

func New[T any](transport Transport, opts ...HandlerOption) *Handler[T] {
	o := handlerOptions{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Handler[T]{
		transport: transport,
		logger:    o.logger,
	}
}

// Connect starts req on the transport and returns immediately. Everything
// that happens afterwards is reported through the callbacks. The session is
// bound to req's context: cancelling it ends the session with a
// TransportError.
func (h *Handler[T]) Connect(req *http.Request) error {
	h.mu.Lock()
	onEvent, onComplete := h.OnEventReceived, h.OnComplete
	h.mu.Unlock()
	return h.connect(req, onEvent, onComplete)
}

// connect starts a session that reports to onEvent and onComplete instead of
// the handler's fields. Nothing is installed when a session is already active.
func (h *Handler[T]) connect(req *http.Request, onEvent func(Result[T]), onComplete func()) error {
	h.mu.Lock()
	if h.current != nil && !h.state.terminal() {
		h.mu.Unlock()
		return ErrSessionActive
	}

	ctx, cancel := context.WithCancel(req.Context())
	s := &session[T]{
		id:         uuid.NewString(),
		handler:    h,
		onEvent:    onEvent,
		onComplete: onComplete,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	s.logger = h.logger.With("session_id", s.id)

	h.current = s
	h.state = Connecting
	h.mu.Unlock()

	s.logger.Debug("connecting", "method", req.Method, "url", req.URL.String())
	h.transport.Start(ctx, req, s)

	return nil
}

// Disconnect cancels the active session. Nothing is delivered for it
// afterwards. Calling it with no active session does nothing.
func (h *Handler[T]) Disconnect() {
	h.mu.Lock()
	s := h.current
	if s == nil || h.state.terminal() {
		h.mu.Unlock()
		return
	}
	h.state = Cancelled
	h.mu.Unlock()

	s.abort()
	s.logger.Debug("disconnected")
}

func (h *Handler[T]) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done returns a channel closed once the current session reaches a terminal
// state. With no session it returns a closed channel.
func (h *Handler[T]) Done() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return h.current.done
}

// markStreaming moves s from Connecting to Streaming and reports whether s
// is still the live session. Response headers alone leave a session in
// Connecting; it is Streaming once body bytes arrive.
func (h *Handler[T]) markStreaming(s *session[T]) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != s || h.state.terminal() {
		return false
	}
	h.state = Streaming
	return true
}

// transition moves s to next unless s is no longer the handler's session or
// has already terminated.
func (h *Handler[T]) transition(s *session[T], next State) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != s || h.state.terminal() {
		return false
	}
	h.state = next
	return true
}

// session is the Receiver for one request.
type session[T any] struct {
	id       string
	handler  *Handler[T]
	cancel   context.CancelFunc
	splitter sse.Splitter
	logger   *slog.Logger

	onEvent    func(Result[T])
	onComplete func()

	cancelled atomic.Bool
	doneOnce  sync.Once
	done      chan struct{}
}

var _ Receiver = &session[struct{}]{}

func (s *session[T]) OnChunk(chunk []byte) {
	if s.cancelled.Load() {
		return
	}
	if !s.handler.markStreaming(s) {
		return
	}

	for _, line := range s.splitter.Feed(chunk) {
		if !s.processLine(line) {
			return
		}
	}
}

func (s *session[T]) OnComplete(err error) {
	defer s.finish()
	if s.cancelled.Load() {
		return
	}

	if err != nil {
		if !s.handler.transition(s, Errored) {
			return
		}
		s.logger.Debug("stream failed", "error", err)
		s.emit(Result[T]{Err: &TransportError{Err: err}})
		return
	}

	if rest := s.splitter.Flush(); len(rest) > 0 {
		if !s.processLine(rest) {
			return
		}
	}

	if !s.handler.transition(s, Completed) {
		return
	}
	s.logger.Debug("stream completed")
	if s.onComplete != nil {
		s.onComplete()
	}
}

// processLine reports whether the session should keep reading.
func (s *session[T]) processLine(line []byte) bool {
	if s.cancelled.Load() {
		return false
	}

	if !utf8.Valid(line) {
		if !s.handler.transition(s, Errored) {
			return false
		}
		s.logger.Warn("malformed event line, disconnecting", "bytes", len(line))
		s.emit(Result[T]{Err: &EncodingError{Line: line}})
		s.abort()
		return false
	}

	payload, ok := sse.Payload(string(line))
	if !ok {
		return true
	}

	var v T
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		s.logger.Warn("skipping undecodable event", "error", err)
		s.emit(Result[T]{Err: &DecodingError{Payload: payload, Err: err}})
		return true
	}

	s.emit(Result[T]{Value: v})
	return true
}

func (s *session[T]) emit(r Result[T]) {
	if s.cancelled.Load() {
		return
	}
	if s.onEvent != nil {
		s.onEvent(r)
	}
}

// abort stops delivery and cancels the transport request.
func (s *session[T]) abort() {
	s.cancelled.Store(true)
	s.cancel()
	s.finish()
}

func (s *session[T]) finish() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}
