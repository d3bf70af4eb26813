package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/hagall-common/errors"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/hagall-common/logs"
	"github.com/aukilabs/kenaz/modules"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// TestingEnv is a quad service served by a test server.
type TestingEnv struct {
	t       *testing.T
	server  *httptest.Server
	mutex   sync.Mutex
	logger  func(...any)
	clients []*websocket.Conn
}

// NewTestingEnv starts a quad service whose connections are served by the
// handlers newHandler returns. Logs go to the test output until Close.
func NewTestingEnv(t *testing.T, newHandler func() Handler) *TestingEnv {
	env := &TestingEnv{t: t, logger: t.Log}

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}
	logs.SetLogger(func(e logs.Entry) {
		env.mutex.Lock()
		defer env.mutex.Unlock()

		if env.logger != nil {
			env.logger(e)
		}
	})
	errors.Encoder = json.Marshal

	env.server = httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			h := newHandler()
			defer h.Close()

			Handle(context.Background(), conn, h)
		},
	})
	return env
}

// Dial connects a new quad client with its own client id.
func (env *TestingEnv) Dial() *websocket.Conn {
	config, err := websocket.NewConfig(
		strings.Replace(env.server.URL, "http://", "ws://", 1),
		"http://localhost",
	)
	if err != nil {
		env.t.Fatalf("configuring quad client failed: %s", err)
	}
	config.Header.Set("User-Agent", "kenaz-test")
	config.Header.Set(httpcmn.HeaderPosemeshClientID, uuid.NewString())

	conn, err := websocket.DialConfig(config)
	if err != nil {
		env.t.Fatalf("dialing quad service failed: %s", err)
	}

	env.clients = append(env.clients, conn)
	return conn
}

// Close disconnects the clients, stops the server and detaches the logs from
// the test.
func (env *TestingEnv) Close() {
	env.mutex.Lock()
	env.logger = nil
	env.mutex.Unlock()

	for _, c := range env.clients {
		c.Close()
	}
	env.server.Close()
}

func newTestHandler(newModule ...func() modules.Module) func() Handler {
	return func() Handler {
		modules := make([]modules.Module, len(newModule))
		for i, nm := range newModule {
			modules[i] = nm()
		}

		var h Handler = &QuadHandler{
			ClientSyncClockInterval: time.Millisecond * 250,
			ClientIdleTimeout:       time.Minute,
			Modules:                 modules,
		}

		h = HandlerWithLogs(h, time.Millisecond*100)
		h = HandlerWithMetrics(h, "https://kenaz-test.com")
		return h
	}
}
