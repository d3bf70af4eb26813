package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/hagall-common/messages/hagallpb"
	hwebsocket "github.com/aukilabs/hagall-common/websocket"
	"github.com/aukilabs/kenaz/modules"
	"golang.org/x/net/websocket"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// QuadHandler serves a client querying the shared spatial modules.
type QuadHandler struct {
	// The interval between each sync clock message sent to the connected
	// client.
	ClientSyncClockInterval time.Duration

	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The modules answering client messages.
	Modules []modules.Module

	conn     *websocket.Conn
	clientID string
}

func (h *QuadHandler) HandleConnect(conn *websocket.Conn) {
	h.clientID = conn.Request().Header.Get(httpcmn.HeaderPosemeshClientID)
	h.conn = conn
}

func (h *QuadHandler) HandlePing(ctx context.Context, respond hwebsocket.ResponseSender, msg hwebsocket.Msg) error {
	var req hagallpb.Request
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	respond.Send(&hagallpb.Response{
		Type:      hagallpb.MsgType_MSG_TYPE_PING_RESPONSE,
		Timestamp: timestamppb.Now(),
		RequestId: req.RequestId,
	})
	return nil
}

func (h *QuadHandler) HandleWithModule(ctx context.Context, m modules.Module, respond hwebsocket.ResponseSender, msg hwebsocket.Msg) error {
	err := m.HandleMsg(ctx, respond, msg)
	if errors.IsType(err, hwebsocket.ErrTypeMsgSkip) {
		return nil
	}
	if err != nil {
		return errors.New("handling message with module failed").
			WithTag("module", m.Name()).
			Wrap(err)
	}
	return nil
}

func (h *QuadHandler) SendSyncClock(ctx context.Context, respond hwebsocket.ResponseSender) error {
	respond.Send(&hagallpb.SyncClock{
		Type:      hagallpb.MsgType_MSG_TYPE_SYNC_CLOCK,
		Timestamp: timestamppb.Now(),
	})
	return nil
}

func (h *QuadHandler) HandleDisconnect(_ error) {
}

func (h *QuadHandler) Receiver() hwebsocket.Receiver {
	return func() (hwebsocket.Msg, int, error) {
		return hwebsocket.Receive(h.conn)
	}
}

func (h *QuadHandler) Sender() hwebsocket.Sender {
	return func(msg hwebsocket.Msg) (int, error) {
		return hwebsocket.Send(h.conn, msg)
	}
}

func (h *QuadHandler) Close() {
}

func (h *QuadHandler) SyncClockInterval() time.Duration {
	return h.ClientSyncClockInterval
}

func (h *QuadHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *QuadHandler) GetModules() []modules.Module {
	return h.Modules
}

func (h *QuadHandler) GetClientID() string {
	return h.clientID
}
