package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/screener/pkg/logger"
)

// Run feed event types
const (
	EventRunStarted   = "run_started"
	EventRunCompleted = "run_completed"
	EventRunFailed    = "run_failed"
)

const (
	maxFeedClients  = 100
	feedSendBuffer  = 16
	feedWriteWait   = 10 * time.Second
	feedPongWait    = 60 * time.Second
	feedPingPeriod  = (feedPongWait * 9) / 10
	feedMaxReadSize = 512
)

// Event is one message pushed to feed subscribers
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time time.Time   `json:"time"`
}

// Publisher receives screening run events
type Publisher interface {
	Publish(eventType string, data interface{})
}

// RunFeed pushes screening run events to WebSocket subscribers.
// A subscriber that falls behind is dropped, never waited on.
// ⭐ SSOT: 실시간 실행 알림은 여기서만
type RunFeed struct {
	clients  map[*feedClient]struct{}
	mu       sync.Mutex
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewRunFeed creates an empty feed
func NewRunFeed(log *logger.Logger) *RunFeed {
	return &RunFeed{
		clients: make(map[*feedClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: log.WithField("module", "feed"),
	}
}

// Publish sends an event to every subscriber
func (f *RunFeed) Publish(eventType string, data interface{}) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data, Time: time.Now()})
	if err != nil {
		f.logger.WithError(err).Warn("Failed to marshal feed event")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for c := range f.clients {
		select {
		case c.send <- msg:
		default:
			// 버퍼가 찬 구독자는 끊음
			delete(f.clients, c)
			close(c.send)
		}
	}
}

// Subscribe upgrades the request and streams run events
// GET /ws/runs
func (f *RunFeed) Subscribe(w http.ResponseWriter, r *http.Request) {
	if f.ClientCount() >= maxFeedClients {
		respondError(w, http.StatusServiceUnavailable, "Feed at capacity")
		return
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &feedClient{conn: conn, send: make(chan []byte, feedSendBuffer)}

	f.mu.Lock()
	f.clients[c] = struct{}{}
	count := len(f.clients)
	f.mu.Unlock()
	f.logger.WithField("clients", count).Debug("Feed subscriber connected")

	go f.writePump(c)
	go f.readPump(c)
}

// ClientCount returns the number of subscribers
func (f *RunFeed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects every subscriber
func (f *RunFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for c := range f.clients {
		delete(f.clients, c)
		close(c.send)
	}
}

func (f *RunFeed) remove(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.send)
	}
}

// writePump owns all writes to the connection
func (f *RunFeed) writePump(c *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and notices the connection going away
func (f *RunFeed) readPump(c *feedClient) {
	defer func() {
		f.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(feedMaxReadSize)
	c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.WithError(err).Debug("Feed read error")
			}
			return
		}
	}
}
