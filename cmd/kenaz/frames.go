package main

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/kenaz/sim"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const frameSubscriberBufferSize = 16

// frameHub fans the encoded stats of every simulated frame out to the
// connected stream clients. Slow clients miss frames.
type frameHub struct {
	mutex       sync.Mutex
	subscribers map[chan []byte]struct{}
}

func newFrameHub() *frameHub {
	return &frameHub{
		subscribers: make(map[chan []byte]struct{}),
	}
}

func (h *frameHub) subscribe() chan []byte {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	c := make(chan []byte, frameSubscriberBufferSize)
	h.subscribers[c] = struct{}{}
	return c
}

func (h *frameHub) unsubscribe(c chan []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	delete(h.subscribers, c)
}

func (h *frameHub) publish(stats sim.FrameStats) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if len(h.subscribers) == 0 {
		return
	}

	b, err := json.Marshal(stats)
	if err != nil {
		logs.WithTag("frame", stats.Frame).
			Warn(errors.New("encoding frame stats failed").Wrap(err))
		return
	}

	for c := range h.subscribers {
		select {
		case c <- b:
		default:
		}
	}
}

// handleFrames streams frame stats to a websocket client until it leaves or
// ctx is done.
func (h *frameHub) handleFrames(ctx context.Context) websocket.Handler {
	return func(conn *websocket.Conn) {
		defer conn.Close()

		c := h.subscribe()
		defer h.unsubscribe(c)

		for {
			select {
			case <-ctx.Done():
				return

			case b := <-c:
				if err := websocket.Message.Send(conn, string(b)); err != nil {
					logs.WithTag("remote_addr", conn.Request().RemoteAddr).
						Debug("frame stream closed")
					return
				}
			}
		}
	}
}

// runFrames steps the simulation every frameDuration until ctx is done.
func runFrames(ctx context.Context, s *sim.Simulation, hub *frameHub, frameDuration time.Duration, onFrame func()) {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return

		case now := <-ticker.C:
			stats := s.Step(now.Sub(last))
			last = now

			hub.publish(stats)
			onFrame()
		}
	}
}
