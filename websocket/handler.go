package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/hagall-common/messages/hagallpb"
	hwebsocket "github.com/aukilabs/hagall-common/websocket"
	"github.com/aukilabs/kenaz/modules"
	"golang.org/x/net/websocket"
)

const (
	outboxSize = 512
	inboxSize  = 64
)

// Handler serves a single quad client connection. Handle drives it: it reads
// messages with Receiver, answers pings and hands every other message to the
// modules, sends periodic sync clocks and disconnects idle clients.
type Handler interface {
	HandleConnect(conn *websocket.Conn)
	HandlePing(ctx context.Context, respond hwebsocket.ResponseSender, msg hwebsocket.Msg) error
	HandleWithModule(ctx context.Context, module modules.Module, respond hwebsocket.ResponseSender, msg hwebsocket.Msg) error
	SendSyncClock(ctx context.Context, respond hwebsocket.ResponseSender) error

	// Called once with the reason the client got disconnected.
	HandleDisconnect(err error)

	Receiver() hwebsocket.Receiver
	Sender() hwebsocket.Sender

	// Releases the resources held by the handler and its decorators.
	Close()

	SyncClockInterval() time.Duration
	IdleTimeout() time.Duration
	GetModules() []modules.Module
	GetClientID() string
}

// Handle serves conn with h until the client disconnects, stays idle for too
// long, or ctx is done.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	c := connection{
		ws:          conn,
		handler:     h,
		outbox:      make(chan hwebsocket.Msg, outboxSize),
		inbox:       make(chan hwebsocket.Msg, inboxSize),
		disconnects: make(chan error, 8),
	}
	c.serve(ctx)
}

// connection is the state of one served client. It implements
// hwebsocket.ResponseSender by queueing messages in its outbox.
type connection struct {
	ws      *websocket.Conn
	handler Handler

	outbox      chan hwebsocket.Msg
	inbox       chan hwebsocket.Msg
	disconnects chan error
}

func (c *connection) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer drain(c.disconnects)

	c.handler.HandleConnect(c.ws)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.write(ctx, c.handler.Sender())
	}()
	go func() {
		defer wg.Done()
		c.read(ctx, c.handler.Receiver())
	}()

	idleTimeout := c.handler.IdleTimeout()
	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	syncClock := time.NewTicker(c.handler.SyncClockInterval())
	defer syncClock.Stop()

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			c.disconnect(ctx.Err())

		case <-idle.C:
			c.disconnect(errors.New("idle connection").
				WithTag("duration", idleTimeout))

		case <-syncClock.C:
			if err := c.handler.SendSyncClock(ctx, c); err != nil {
				c.disconnect(errors.New("sending sync clock failed").Wrap(err))
			}

		case msg := <-c.inbox:
			idle.Reset(idleTimeout)

			if err := c.dispatch(ctx, msg); err != nil {
				c.disconnect(errors.New("handling message failed").Wrap(err))
			}

		case err := <-c.disconnects:
			c.ws.Close()
			c.handler.HandleDisconnect(err)
			cancel()
		}
	}

	wg.Wait()
}

// dispatch answers pings itself and offers any other message to every
// module. The quad modules skip the messages they do not know.
func (c *connection) dispatch(ctx context.Context, msg hwebsocket.Msg) error {
	if msg.Type == hagallpb.MsgType_MSG_TYPE_PING_REQUEST {
		return c.handler.HandlePing(ctx, c, msg)
	}

	for _, m := range c.handler.GetModules() {
		if err := c.handler.HandleWithModule(ctx, m, c, msg); err != nil {
			return err
		}
	}
	return nil
}

func (c *connection) Send(protoMsg hwebsocket.ProtoMsg) {
	msg, err := hwebsocket.MsgFromProto(protoMsg)
	if err != nil {
		logs.WithClientID(c.handler.GetClientID()).
			WithTag("message", protoMsg).
			Debug(err)
		return
	}
	c.outbox <- msg
}

func (c *connection) SendMsg(msg hwebsocket.Msg) {
	c.outbox <- msg
}

func (c *connection) write(ctx context.Context, send hwebsocket.Sender) {
	defer drain(c.outbox)

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-c.outbox:
			if _, err := send(msg); err != nil {
				c.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
		}
	}
}

func (c *connection) read(ctx context.Context, receive hwebsocket.Receiver) {
	for {
		msg, _, err := receive()
		if err != nil {
			c.disconnect(errors.New("receiving message failed").Wrap(err))
			return
		}

		select {
		case <-ctx.Done():
			return

		case c.inbox <- msg:
		}
	}
}

// disconnect records the first reasons to end the connection and drops the
// others.
func (c *connection) disconnect(err error) {
	select {
	case c.disconnects <- err:
	default:
	}
}

func drain[T any](ch chan T) {
	for len(ch) != 0 {
		<-ch
	}
}
