// Package monitor implements the optional live statistics feed
// SPEC_FULL.md §6 adds as an ambient enrichment: a tiny
// gorilla/websocket-backed broadcaster that pushes the same JSON payload
// Propagator.Summary() would produce to any connected viewer, after every
// step. It is not a simulation feature; a Propagator works identically
// with no Feed attached.
//
// Grounded on niceyeti-tabular's tabular/server package, generalized from
// a single-page RL-training viewer serving one client to a broadcast hub
// serving any number of connected monitors.
package monitor

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cpasquier/faunus/internal/move"
)

const (
	writeWait      = 1 * time.Second
	maxMessageSize = 1 << 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: maxMessageSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Feed broadcasts Propagator step summaries to every connected websocket
// client. The zero value is not usable; build one with New.
type Feed struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// New returns an empty Feed ready to accept connections via ServeHTTP.
func New() *Feed {
	return &Feed{clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades the request to a websocket connection and registers
// it as a broadcast target until it disconnects.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("monitor: upgrade failed: %v", err)
		return
	}
	f.mu.Lock()
	f.clients[conn] = struct{}{}
	f.mu.Unlock()

	go f.drain(conn)
}

// drain discards client reads (this feed is send-only) until the
// connection closes, then deregisters it.
func (f *Feed) drain(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			f.mu.Lock()
			delete(f.clients, conn)
			f.mu.Unlock()
			conn.Close()
			return
		}
	}
}

// Push implements move.Feed: it JSON-encodes reports once and writes the
// same bytes to every connected client, dropping (and deregistering) any
// client whose write does not complete within writeWait.
func (f *Feed) Push(reports []move.Report) {
	payload, err := json.Marshal(reports)
	if err != nil {
		log.Printf("monitor: marshal failed: %v", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(f.clients, conn)
			conn.Close()
		}
	}
}
