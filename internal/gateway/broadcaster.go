package gateway

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"vantage/internal/worker"
)

// Broadcaster fans out OrderbookResult events from one or more
// InstrumentWorkers to subscribed websocket clients, as JSON-encoded
// DepthSnapshot/trade updates. It never feeds back into the matching core;
// results only flow outward.
type Broadcaster struct {
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[*websocket.Conn]struct{}
}

// NewBroadcaster creates an empty broadcaster. Call Watch once per
// InstrumentWorker whose results should be fanned out.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subscribers: make(map[*websocket.Conn]struct{}),
	}
}

// Watch drains w's result channel for as long as it stays open, pushing each
// result to every subscriber. Intended to run in its own goroutine per
// instrument.
func (b *Broadcaster) Watch(w *worker.InstrumentWorker) {
	for result := range w.Results() {
		b.broadcast(result)
	}
}

func (b *Broadcaster) broadcast(result worker.OrderbookResult) {
	payload, err := marshalResult(result)
	if err != nil {
		log.Error().Err(err).Msg("broadcaster: encode result failed")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.subscribers {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Error().Err(err).Msg("broadcaster: write failed, dropping subscriber")
			conn.Close()
			delete(b.subscribers, conn)
		}
	}
}

// ServeHTTP upgrades an incoming request to a websocket connection and
// registers it as a subscriber until the client disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("broadcaster: upgrade failed")
		return
	}

	b.mu.Lock()
	b.subscribers[conn] = struct{}{}
	b.mu.Unlock()

	// The read loop exists only to detect client-initiated close; this feed
	// is one-directional and ignores any message content.
	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.subscribers, conn)
			b.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
