package announcer

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"finalscore/bot/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Listeners only send control frames
	maxMessageSize = 512

	sendBufferSize = 16
)

// LiveMessage is the JSON frame pushed to live feed listeners
type LiveMessage struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type liveClient struct {
	id   string
	conn *websocket.Conn
	send chan LiveMessage
}

// LiveFeed pushes each summary to the WebSocket listeners connected at publish time.
// It is both an Announcer and the http.Handler listeners connect to.
type LiveFeed struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*liveClient]struct{}
}

// NewLiveFeed creates a feed. A non-empty allowedOrigins restricts browser origins.
func NewLiveFeed(allowedOrigins []string) *LiveFeed {
	f := &LiveFeed{clients: make(map[*liveClient]struct{})}
	if len(allowedOrigins) > 0 {
		f.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, origin)
		}
	}
	return f
}

// ServeHTTP upgrades the request and streams summaries until the listener goes away
func (f *LiveFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Live feed upgrade failed")
		return
	}

	c := &liveClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan LiveMessage, sendBufferSize),
	}
	f.add(c)

	go f.writePump(c)
	f.readPump(c)
}

// Publish queues text for every connected listener. Listeners with a full buffer are dropped.
func (f *LiveFeed) Publish(ctx context.Context, text string) error {
	msg := LiveMessage{Type: "final", Text: text, Timestamp: time.Now().UTC()}

	f.mu.Lock()
	defer f.mu.Unlock()

	for c := range f.clients {
		select {
		case c.send <- msg:
		default:
			log.Warn().Str("client_id", c.id).Msg("Live feed listener too slow, disconnecting")
			f.removeLocked(c)
		}
	}
	return nil
}

// Listeners returns the number of connected listeners
func (f *LiveFeed) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects every listener
func (f *LiveFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for c := range f.clients {
		f.removeLocked(c)
	}
}

func (f *LiveFeed) add(c *liveClient) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.clients[c] = struct{}{}
	metrics.LiveFeedListeners.Set(float64(len(f.clients)))
	log.Debug().Str("client_id", c.id).Int("listeners", len(f.clients)).Msg("Live feed listener connected")
}

func (f *LiveFeed) remove(c *liveClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(c)
}

func (f *LiveFeed) removeLocked(c *liveClient) {
	if _, ok := f.clients[c]; !ok {
		return
	}
	delete(f.clients, c)
	close(c.send)
	metrics.LiveFeedListeners.Set(float64(len(f.clients)))
	log.Debug().Str("client_id", c.id).Int("listeners", len(f.clients)).Msg("Live feed listener disconnected")
}

// readPump discards listener frames and keeps the read deadline fresh via pongs
func (f *LiveFeed) readPump(c *liveClient) {
	defer func() {
		f.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("client_id", c.id).Msg("Live feed listener closed unexpectedly")
			}
			return
		}
	}
}

func (f *LiveFeed) writePump(c *liveClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("Live feed write failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
