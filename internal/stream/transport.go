package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// Receiver is driven by a Transport. Calls for one request happen on a single
// goroutine, in order, and OnComplete is the last call made.
type Receiver interface {
	OnChunk(chunk []byte)
	OnComplete(err error)
}

// Transport starts a streaming request and feeds its response body to rcv.
// Start must not block on the response. Cancelling ctx aborts the request;
// the transport still calls OnComplete, with the context error.
type Transport interface {
	Start(ctx context.Context, req *http.Request, rcv Receiver)
}

// Config is the session configuration a transport is constructed with.
type Config struct {
	// ReadTimeout is how long the transport waits for the next bytes of the
	// response, including the headers, before giving up.
	ReadTimeout time.Duration
	// ChunkSize is the size of the read buffer.
	ChunkSize int
}

func DefaultConfig() Config {
	return Config{
		ReadTimeout: 300 * time.Second,
		ChunkSize:   4096,
	}
}

const maxErrorBody = 4096

// HTTPTransport streams responses from a net/http client.
type HTTPTransport struct {
	config     Config
	httpClient *http.Client
}

var _ Transport = &HTTPTransport{}

// NewHTTPTransport returns a transport using client, or a client with a
// long-lived connection setup when client is nil. The overall client timeout
// is left alone; the read timeout in config bounds idle time instead.
func NewHTTPTransport(client *http.Client, config Config) *HTTPTransport {
	defaults := DefaultConfig()
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = defaults.ChunkSize
	}

	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     1 * time.Minute,
			},
		}
	}

	return &HTTPTransport{
		config:     config,
		httpClient: client,
	}
}

func (t *HTTPTransport) Config() Config {
	return t.config
}

func (t *HTTPTransport) Start(ctx context.Context, req *http.Request, rcv Receiver) {
	go t.run(ctx, req, rcv)
}

func (t *HTTPTransport) run(ctx context.Context, req *http.Request, rcv Receiver) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	idle := time.AfterFunc(t.config.ReadTimeout, func() {
		cancel(ErrReadTimeout)
	})
	defer idle.Stop()

	rsp, err := t.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		rcv.OnComplete(cause(ctx, err))
		return
	}
	defer rsp.Body.Close()

	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(rsp.Body, maxErrorBody))
		rcv.OnComplete(&StatusError{StatusCode: rsp.StatusCode, Body: string(body)})
		return
	}

	buf := make([]byte, t.config.ChunkSize)
	for {
		idle.Reset(t.config.ReadTimeout)

		n, err := rsp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			rcv.OnChunk(chunk)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				rcv.OnComplete(nil)
				return
			}
			rcv.OnComplete(cause(ctx, err))
			return
		}
	}
}

// cause prefers the reason the context was cancelled over the error the
// client surfaced for it.
func cause(ctx context.Context, err error) error {
	if c := context.Cause(ctx); c != nil {
		return c
	}
	return err
}
