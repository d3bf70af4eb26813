package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/hagall-common/messages/dagazpb"
	"github.com/aukilabs/hagall-common/messages/hagallpb"
	hwebsocket "github.com/aukilabs/hagall-common/websocket"
	"github.com/aukilabs/kenaz/modules"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/websocket"
)

const (
	metricsNamespace = "kenaz"
	serviceModule    = "kenaz"
)

var (
	connLabels  = []string{"public_endpoint", "app_key"}
	msgLabels   = []string{"public_endpoint", "app_key", "msg_type"}
	errLabels   = []string{"public_endpoint", "app_key", "msg_type", "error_type", "direction"}
	queryLabels = []string{"public_endpoint", "msg_type", "module", "query_kind"}

	wsConnectedClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "ws_connected_clients",
		Help:      "The number of connected quad clients.",
	}, connLabels)

	wsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "ws_received_msgs",
		Help:      "The number of quad messages received, by message type.",
	}, msgLabels)

	wsReceivedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "ws_received_bytes",
		Help:      "The number of bytes received, by message type.",
	}, msgLabels)

	wsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "ws_sent_msgs",
		Help:      "The number of quad messages sent, by message type.",
	}, msgLabels)

	wsSentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "ws_sent_bytes",
		Help:      "The number of bytes sent, by message type.",
	}, msgLabels)

	wsErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "ws_errors",
		Help:      "The errors that occurred while receiving or sending a quad message.",
	}, errLabels)

	wsQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "ws_query_latency",
		Help:      "The time to answer a quad message, by the index query it runs.",
	}, queryLabels)
)

// HandlerWithMetrics wraps the given handler with Prometheus metrics labelled
// by dagaz message type and by the kind of octree query answering each
// message.
func HandlerWithMetrics(h Handler, publicEndpoint string) Handler {
	return &handlerWithMetrics{
		Handler:        h,
		publicEndpoint: publicEndpoint,
	}
}

type handlerWithMetrics struct {
	Handler

	publicEndpoint string
	appKey         string
}

func (h *handlerWithMetrics) HandleConnect(conn *websocket.Conn) {
	h.appKey = httpcmn.GetAppKeyFromHagallUserToken(
		httpcmn.GetUserTokenFromHTTPRequest(conn.Request()),
	)
	wsConnectedClients.WithLabelValues(h.publicEndpoint, h.appKey).Inc()

	h.Handler.HandleConnect(conn)
}

func (h *handlerWithMetrics) HandleDisconnect(err error) {
	wsConnectedClients.WithLabelValues(h.publicEndpoint, h.appKey).Dec()
	h.Handler.HandleDisconnect(err)
}

func (h *handlerWithMetrics) HandlePing(ctx context.Context, respond hwebsocket.ResponseSender, msg hwebsocket.Msg) error {
	return h.observe(msgTypeName(msg), serviceModule, "", func() error {
		return h.Handler.HandlePing(ctx, respond, msg)
	})
}

func (h *handlerWithMetrics) HandleWithModule(ctx context.Context, m modules.Module, respond hwebsocket.ResponseSender, msg hwebsocket.Msg) error {
	var queryKind string
	if c, ok := m.(modules.QueryClassifier); ok {
		queryKind = c.QueryKind(msg)
	}

	return h.observe(msgTypeName(msg), m.Name(), queryKind, func() error {
		return h.Handler.HandleWithModule(ctx, m, respond, msg)
	})
}

func (h *handlerWithMetrics) SendSyncClock(ctx context.Context, respond hwebsocket.ResponseSender) error {
	return h.observe(hagallpb.MsgType_MSG_TYPE_SYNC_CLOCK.String(), serviceModule, "", func() error {
		return h.Handler.SendSyncClock(ctx, respond)
	})
}

func (h *handlerWithMetrics) Receiver() hwebsocket.Receiver {
	receive := h.Handler.Receiver()

	return func() (hwebsocket.Msg, int, error) {
		msg, n, err := receive()
		h.count(wsReceived, wsReceivedBytes, "receive", msgTypeName(msg), n, err)
		return msg, n, err
	}
}

func (h *handlerWithMetrics) Sender() hwebsocket.Sender {
	send := h.Handler.Sender()

	return func(msg hwebsocket.Msg) (int, error) {
		n, err := send(msg)
		h.count(wsSent, wsSentBytes, "send", msgTypeName(msg), n, err)
		return n, err
	}
}

func (h *handlerWithMetrics) count(msgs, bytes *prometheus.CounterVec, direction, msgType string, n int, err error) {
	if err != nil {
		wsErrors.
			WithLabelValues(h.publicEndpoint, h.appKey, msgType, errors.Type(err), direction).
			Inc()
	}
	if n == 0 {
		return
	}

	msgs.WithLabelValues(h.publicEndpoint, h.appKey, msgType).Inc()
	bytes.WithLabelValues(h.publicEndpoint, h.appKey, msgType).Add(float64(n))
}

func (h *handlerWithMetrics) observe(msgType, module, queryKind string, f func() error) error {
	start := time.Now()

	err := f()
	if errors.IsType(err, hwebsocket.ErrTypeMsgSkip) {
		return err
	}

	wsQueryLatency.
		WithLabelValues(h.publicEndpoint, msgType, module, queryKind).
		Observe(time.Since(start).Seconds())
	return err
}

// msgTypeName returns the name of a message type, looking it up in the dagaz
// message types when it is not a service message.
func msgTypeName(msg hwebsocket.Msg) string {
	n := int32(msg.Type.Number())
	if _, ok := hagallpb.MsgType_name[n]; ok {
		return msg.TypeString()
	}
	if name, ok := dagazpb.MsgType_name[n]; ok {
		return name
	}
	return msg.TypeString()
}
