package websocket

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/aukilabs/hagall-common/errors"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/hagall-common/logs"
	hwebsocket "github.com/aukilabs/hagall-common/websocket"
	"github.com/aukilabs/kenaz/modules"
	"golang.org/x/net/websocket"
)

// HandlerWithLogs wraps the given handler with connection logs and a
// periodic summary of the received message types and of the index queries
// they ran.
func HandlerWithLogs(h Handler, summaryInterval time.Duration) Handler {
	ctx, cancel := context.WithCancel(context.Background())

	handler := &handlerWithLogs{
		Handler:         h,
		summaryInterval: summaryInterval,
		stopSummary:     cancel,
	}
	handler.summary.reset()

	go handler.summarize(ctx)
	return handler
}

type handlerWithLogs struct {
	Handler

	summaryInterval time.Duration
	stopSummary     func()
	summary         inboundSummary
}

func (h *handlerWithLogs) HandleConnect(conn *websocket.Conn) {
	h.Handler.HandleConnect(conn)

	req := conn.Request()
	logs.WithClientID(h.GetClientID()).
		WithTag("user_agent", req.UserAgent()).
		WithTag("x_forwarded_for", req.Header.Get(httpcmn.XForwardedForHeaderKey)).
		WithTag("country", req.Header.Get(httpcmn.CloudFrontCountryNameHeaderKey)).
		Info("quad client connected")
}

func (h *handlerWithLogs) HandleDisconnect(err error) {
	h.Handler.HandleDisconnect(err)
	logs.WithClientID(h.GetClientID()).
		WithTag("reason", err).
		Info("quad client disconnected")
}

func (h *handlerWithLogs) HandleWithModule(ctx context.Context, m modules.Module, respond hwebsocket.ResponseSender, msg hwebsocket.Msg) error {
	err := h.Handler.HandleWithModule(ctx, m, respond, msg)

	if c, ok := m.(modules.QueryClassifier); ok && err == nil {
		if kind := c.QueryKind(msg); kind != "" {
			h.summary.addQuery(kind)
		}
	}
	return err
}

func (h *handlerWithLogs) Receiver() hwebsocket.Receiver {
	receive := h.Handler.Receiver()

	return func() (hwebsocket.Msg, int, error) {
		msg, n, err := receive()

		switch {
		case err == nil:
			h.summary.addReceived(msgTypeName(msg))
			logs.WithClientID(h.GetClientID()).
				WithTag("msg_type", msgTypeName(msg)).
				WithTag("size", n).
				Debug("message received")

		case !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed):
			logs.WithClientID(h.GetClientID()).
				Error(errors.New("receiving message failed").Wrap(err))
		}
		return msg, n, err
	}
}

func (h *handlerWithLogs) Sender() hwebsocket.Sender {
	send := h.Handler.Sender()

	return func(msg hwebsocket.Msg) (int, error) {
		n, err := send(msg)

		switch {
		case err == nil:
			logs.WithClientID(h.GetClientID()).
				WithTag("msg_type", msgTypeName(msg)).
				WithTag("size", n).
				Debug("message sent")

		case !errors.Is(err, net.ErrClosed):
			logs.WithClientID(h.GetClientID()).
				WithTag("msg_type", msgTypeName(msg)).
				Error(errors.New("sending message failed").Wrap(err))
		}
		return n, err
	}
}

func (h *handlerWithLogs) Close() {
	h.Handler.Close()
	h.stopSummary()
	h.logSummary()
}

func (h *handlerWithLogs) summarize(ctx context.Context) {
	ticker := time.NewTicker(h.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			h.logSummary()
		}
	}
}

func (h *handlerWithLogs) logSummary() {
	received, queries := h.summary.flush()
	if len(received) == 0 {
		return
	}

	logs.WithClientID(h.GetClientID()).
		WithTag("time_interval", h.summaryInterval).
		WithTag("received", received).
		WithTag("queries", queries).
		Info("inbound message summary")
}

// inboundSummary counts received messages by type and index queries by kind
// between two summary logs.
type inboundSummary struct {
	mutex    sync.Mutex
	received map[string]int
	queries  map[string]int
}

func (s *inboundSummary) addReceived(msgType string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.received[msgType]++
}

func (s *inboundSummary) addQuery(kind string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.queries[kind]++
}

// flush returns the counts gathered since the previous flush and starts new
// ones.
func (s *inboundSummary) flush() (received, queries map[string]int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	received, queries = s.received, s.queries
	s.reset()
	return received, queries
}

func (s *inboundSummary) reset() {
	s.received = make(map[string]int)
	s.queries = make(map[string]int)
}
