package stream_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/davidhbaek/llmstream/internal/stream"
	"github.com/stretchr/testify/require"
)

type delta struct {
	Content string `json:"content"`
}

type chunk struct {
	ID      string `json:"id"`
	Choices []struct {
		Delta delta `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c chunk) Text() string {
	var text string
	for _, choice := range c.Choices {
		text += choice.Delta.Content
	}
	return text
}

func (c chunk) Err() error {
	if c.Error == nil {
		return nil
	}
	return errors.New(c.Error.Message)
}

// fakeTransport hands the receiver back to the test, which drives it.
type fakeTransport struct {
	ctx     context.Context
	req     *http.Request
	rcv     stream.Receiver
	started int
}

func (f *fakeTransport) Start(ctx context.Context, req *http.Request, rcv stream.Receiver) {
	f.ctx, f.req, f.rcv = ctx, req, rcv
	f.started++
}

type recorder struct {
	ids       []string
	errs      []error
	completed int
}

func newHandler(t *testing.T) (*stream.Handler[chunk], *fakeTransport, *recorder) {
	t.Helper()

	ft := &fakeTransport{}
	rec := &recorder{}
	h := stream.New[chunk](ft)
	h.OnEventReceived = func(r stream.Result[chunk]) {
		if r.Err != nil {
			rec.errs = append(rec.errs, r.Err)
			return
		}
		rec.ids = append(rec.ids, r.Value.ID)
	}
	h.OnComplete = func() {
		rec.completed++
	}

	return h, ft, rec
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "http://localhost/v1/chat/completions", nil)
	require.NoError(t, err)
	return req
}

func TestConnectThenDisconnect(t *testing.T) {
	h, ft, rec := newHandler(t)

	require.NoError(t, h.Connect(newRequest(t)))
	require.Equal(t, stream.Connecting, h.State())
	h.Disconnect()

	require.Equal(t, stream.Cancelled, h.State())
	require.ErrorIs(t, ft.ctx.Err(), context.Canceled)

	// late deliveries from the aborted request are dropped
	ft.rcv.OnChunk([]byte("data: {\"id\":\"late\"}\n"))
	ft.rcv.OnComplete(context.Canceled)

	require.Empty(t, rec.ids)
	require.Empty(t, rec.errs)
	require.Zero(t, rec.completed)

	select {
	case <-h.Done():
	default:
		t.Fatal("Done not closed after Disconnect")
	}
}

func TestValidLinesThenTerminator(t *testing.T) {
	h, ft, rec := newHandler(t)
	require.NoError(t, h.Connect(newRequest(t)))
	require.Equal(t, stream.Connecting, h.State())

	ft.rcv.OnChunk([]byte("data: {\"id\":\"1\"}\n\n"))
	require.Equal(t, stream.Streaming, h.State())
	ft.rcv.OnChunk([]byte("data: {\"id\":\"2\"}\n\ndata: {\"id\":\"3\"}\n\n"))
	ft.rcv.OnChunk([]byte("data: [DONE]\n\n"))
	require.Zero(t, rec.completed)

	ft.rcv.OnComplete(nil)

	require.Equal(t, []string{"1", "2", "3"}, rec.ids)
	require.Empty(t, rec.errs)
	require.Equal(t, 1, rec.completed)
	require.Equal(t, stream.Completed, h.State())
}

func TestInvalidJSONDoesNotStopStream(t *testing.T) {
	h, ft, rec := newHandler(t)
	require.NoError(t, h.Connect(newRequest(t)))

	ft.rcv.OnChunk([]byte("data: {\"id\":\"1\"}\ndata: {not json}\ndata: {\"id\":\"2\"}\n"))
	ft.rcv.OnChunk([]byte("data: {\"id\":\"3\"}\n"))
	ft.rcv.OnComplete(nil)

	require.Equal(t, []string{"1", "2", "3"}, rec.ids)
	require.Len(t, rec.errs, 1)

	var decodingErr *stream.DecodingError
	require.ErrorAs(t, rec.errs[0], &decodingErr)
	require.Equal(t, "{not json}", decodingErr.Payload)
	require.Equal(t, 1, rec.completed)
}

func TestLinesDispatchedInOrder(t *testing.T) {
	h, ft, rec := newHandler(t)
	require.NoError(t, h.Connect(newRequest(t)))

	ft.rcv.OnChunk([]byte("data: {\"id\":\"a\"}\ndata: {\"id\":\"b\"}\ndata: {\"id\":\"c\"}\ndata: {\"id\":\"d\"}\n"))

	require.Equal(t, []string{"a", "b", "c", "d"}, rec.ids)
}

func TestTransportError(t *testing.T) {
	h, ft, rec := newHandler(t)
	require.NoError(t, h.Connect(newRequest(t)))

	boom := errors.New("connection reset by peer")
	ft.rcv.OnChunk([]byte("data: {\"id\":\"1\"}\n"))
	ft.rcv.OnComplete(boom)

	require.Equal(t, []string{"1"}, rec.ids)
	require.Len(t, rec.errs, 1)
	require.ErrorIs(t, rec.errs[0], boom)

	var transportErr *stream.TransportError
	require.ErrorAs(t, rec.errs[0], &transportErr)
	require.Zero(t, rec.completed)
	require.Equal(t, stream.Errored, h.State())
}

func TestTerminatorNeverDecoded(t *testing.T) {
	h, ft, rec := newHandler(t)
	require.NoError(t, h.Connect(newRequest(t)))

	ft.rcv.OnChunk([]byte("data: {\"id\":\"x\",\"choices\":[]}\ndata: [DONE]\n"))

	require.Equal(t, []string{"x"}, rec.ids)
	require.Empty(t, rec.errs)
}

func TestLineSplitAcrossChunks(t *testing.T) {
	h, ft, rec := newHandler(t)
	require.NoError(t, h.Connect(newRequest(t)))

	ft.rcv.OnChunk([]byte("data: {\"id\":"))
	require.Empty(t, rec.ids)
	ft.rcv.OnChunk([]byte("\"1\"}\ndata: {\"id\":\"2\"}\ndata: [DO"))
	ft.rcv.OnChunk([]byte("NE]\n"))
	ft.rcv.OnComplete(nil)

	require.Equal(t, []string{"1", "2"}, rec.ids)
	require.Empty(t, rec.errs)
	require.Equal(t, 1, rec.completed)
}

func TestUnterminatedLastLineFlushedOnCompletion(t *testing.T) {
	h, ft, rec := newHandler(t)

	var order []string
	h.OnEventReceived = func(r stream.Result[chunk]) {
		require.NoError(t, r.Err)
		order = append(order, "event:"+r.Value.ID)
	}
	h.OnComplete = func() {
		order = append(order, "complete")
	}
	require.NoError(t, h.Connect(newRequest(t)))

	ft.rcv.OnChunk([]byte("data: {\"id\":\"1\"}\ndata: {\"id\":\"2\"}"))
	ft.rcv.OnComplete(nil)

	require.Equal(t, []string{"event:1", "event:2", "complete"}, order)
	require.Empty(t, rec.ids)
}

func TestMalformedLineTearsDownSession(t *testing.T) {
	h, ft, rec := newHandler(t)
	require.NoError(t, h.Connect(newRequest(t)))

	ft.rcv.OnChunk([]byte("data: {\"id\":\"1\"}\ndata: \xff\xfe\ndata: {\"id\":\"2\"}\n"))
	ft.rcv.OnChunk([]byte("data: {\"id\":\"3\"}\n"))
	ft.rcv.OnComplete(context.Canceled)

	require.Equal(t, []string{"1"}, rec.ids)
	require.Len(t, rec.errs, 1)

	var encodingErr *stream.EncodingError
	require.ErrorAs(t, rec.errs[0], &encodingErr)
	require.Zero(t, rec.completed)
	require.Equal(t, stream.Errored, h.State())
	require.ErrorIs(t, ft.ctx.Err(), context.Canceled)
}

func TestDisconnectFromCallbackStopsChunk(t *testing.T) {
	h, ft, rec := newHandler(t)
	h.OnEventReceived = func(r stream.Result[chunk]) {
		rec.ids = append(rec.ids, r.Value.ID)
		h.Disconnect()
	}
	require.NoError(t, h.Connect(newRequest(t)))

	ft.rcv.OnChunk([]byte("data: {\"id\":\"1\"}\ndata: {\"id\":\"2\"}\n"))
	ft.rcv.OnComplete(nil)

	require.Equal(t, []string{"1"}, rec.ids)
	require.Zero(t, rec.completed)
	require.Equal(t, stream.Cancelled, h.State())
}

func TestConnectWhileActive(t *testing.T) {
	h, ft, rec := newHandler(t)
	require.NoError(t, h.Connect(newRequest(t)))
	require.ErrorIs(t, h.Connect(newRequest(t)), stream.ErrSessionActive)
	require.Equal(t, 1, ft.started)

	first := ft.rcv
	first.OnComplete(nil)
	require.Equal(t, 1, rec.completed)

	require.NoError(t, h.Connect(newRequest(t)))
	require.Equal(t, 2, ft.started)
	require.Equal(t, stream.Connecting, h.State())

	// the finished session cannot touch the new one
	first.OnChunk([]byte("data: {\"id\":\"stale\"}\n"))
	require.Empty(t, rec.ids)

	ft.rcv.OnChunk([]byte("data: {\"id\":\"fresh\"}\n"))
	require.Equal(t, []string{"fresh"}, rec.ids)
}

func TestSessionBoundToRequestContext(t *testing.T) {
	h, ft, rec := newHandler(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := newRequest(t).WithContext(ctx)
	require.NoError(t, h.Connect(req))
	require.NoError(t, ft.ctx.Err())

	cancel()
	require.ErrorIs(t, ft.ctx.Err(), context.Canceled)

	ft.rcv.OnComplete(ft.ctx.Err())
	require.Len(t, rec.errs, 1)
	var transportErr *stream.TransportError
	require.ErrorAs(t, rec.errs[0], &transportErr)
	require.ErrorIs(t, rec.errs[0], context.Canceled)
	require.Equal(t, stream.Errored, h.State())
}

func TestCallbacksFixedAtConnect(t *testing.T) {
	h, ft, rec := newHandler(t)
	require.NoError(t, h.Connect(newRequest(t)))

	var replaced int
	h.OnEventReceived = func(stream.Result[chunk]) { replaced++ }
	h.OnComplete = func() { replaced++ }

	ft.rcv.OnChunk([]byte("data: {\"id\":\"1\"}\n"))
	ft.rcv.OnComplete(nil)

	require.Equal(t, []string{"1"}, rec.ids)
	require.Equal(t, 1, rec.completed)
	require.Zero(t, replaced)

	require.NoError(t, h.Connect(newRequest(t)))
	ft.rcv.OnChunk([]byte("data: {\"id\":\"2\"}\n"))
	ft.rcv.OnComplete(nil)
	require.Equal(t, 2, replaced)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	h, ft, rec := newHandler(t)

	require.NotPanics(t, h.Disconnect)
	require.Equal(t, stream.Idle, h.State())
	select {
	case <-h.Done():
	default:
		t.Fatal("Done should be closed with no session")
	}

	require.NoError(t, h.Connect(newRequest(t)))
	ft.rcv.OnComplete(nil)
	h.Disconnect()
	h.Disconnect()

	require.Equal(t, stream.Completed, h.State())
	require.Equal(t, 1, rec.completed)
}

func TestNoCallbacksRegistered(t *testing.T) {
	ft := &fakeTransport{}
	h := stream.New[chunk](ft)
	require.NoError(t, h.Connect(newRequest(t)))

	require.NotPanics(t, func() {
		ft.rcv.OnChunk([]byte("data: {\"id\":\"1\"}\ndata: nope\n"))
		ft.rcv.OnComplete(nil)
	})
	require.Equal(t, stream.Completed, h.State())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "idle", stream.Idle.String())
	require.Equal(t, "streaming", stream.Streaming.String())
	require.Equal(t, "cancelled", stream.Cancelled.String())
	require.Equal(t, "unknown", stream.State(42).String())
}
