package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Chunk is a payload carrying a piece of generated text.
type Chunk interface {
	Text() string
}

// Failer is implemented by payloads that can carry an error reported by the
// API in the middle of a stream.
type Failer interface {
	Err() error
}

// Collect runs req on h, writing each chunk's text to w as it arrives, and
// blocks until the stream ends. It returns all the text written. Lines that
// fail to decode are skipped. Cancelling ctx disconnects the handler.
//
// Collect leaves h's own callbacks untouched. It fails with ErrSessionActive,
// without disturbing the running session, when h is busy.
func Collect[T Chunk](ctx context.Context, h *Handler[T], req *http.Request, w io.Writer) (string, error) {
	var (
		mu       sync.Mutex
		text     strings.Builder
		failure  error
		skipped  int
		complete bool
	)

	fail := func(err error) {
		if failure == nil {
			failure = err
		}
		h.Disconnect()
	}

	onEvent := func(r Result[T]) {
		mu.Lock()
		defer mu.Unlock()

		if r.Err != nil {
			var decodingErr *DecodingError
			if errors.As(r.Err, &decodingErr) {
				skipped++
				return
			}
			fail(r.Err)
			return
		}

		if f, ok := any(r.Value).(Failer); ok {
			if err := f.Err(); err != nil {
				fail(err)
				return
			}
		}

		delta := r.Value.Text()
		if delta == "" {
			return
		}
		if _, err := io.WriteString(w, delta); err != nil {
			fail(fmt.Errorf("writing completion text: %w", err))
			return
		}
		text.WriteString(delta)
	}
	onComplete := func() {
		mu.Lock()
		defer mu.Unlock()
		complete = true
	}

	if err := h.connect(req, onEvent, onComplete); err != nil {
		return "", err
	}

	select {
	case <-h.Done():
	case <-ctx.Done():
		h.Disconnect()
		mu.Lock()
		defer mu.Unlock()
		return text.String(), ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()

	if skipped > 0 {
		h.logger.Warn("skipped undecodable events", "count", skipped)
	}
	if failure != nil {
		return text.String(), failure
	}
	if !complete {
		return text.String(), errors.New("stream ended before completion")
	}

	return text.String(), nil
}
