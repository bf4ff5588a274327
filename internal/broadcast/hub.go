package broadcast

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// HubOptions configures a Hub.
type HubOptions struct {
	// OutboundBufferSize is the per-client event queue depth. When a
	// client's queue is full, new events are dropped for that client
	// rather than blocking the publisher, mirroring the teacher's
	// file-watcher "buffer full, drop" idiom.
	OutboundBufferSize int

	// RateLimit caps how many events per second are forwarded to each
	// client; bursts up to RateBurst are allowed. Protects slow WebSocket
	// readers from an unbounded publish storm during large compactions.
	RateLimit rate.Limit
	RateBurst int
}

// DefaultHubOptions returns sensible defaults.
func DefaultHubOptions() HubOptions {
	return HubOptions{
		OutboundBufferSize: 256,
		RateLimit:          50,
		RateBurst:          100,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Hub fans a Store's mutation events out to connected WebSocket clients. It
// implements Hook, so a *Hub can be passed directly as a Store's broadcast
// hook.
type Hub struct {
	logger  *slog.Logger
	opts    HubOptions
	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn    *websocket.Conn
	outbox  chan Event
	limiter *rate.Limiter
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

// NewHub constructs a Hub. A nil logger falls back to slog.Default().
func NewHub(logger *slog.Logger, opts HubOptions) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger, opts: opts, clients: make(map[*client]struct{})}
}

// Publish implements Hook. It is non-blocking: a client whose outbox is full
// simply misses the event rather than stalling the store's maintenance loop
// or a concurrent write path.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.outbox <- ev:
		default:
			h.logger.Warn("broadcast client outbox full, dropping event", "level", ev.Level, "op", ev.Op)
		}
	}
}

// ServeWS upgrades the request to a WebSocket and registers the connection
// as a broadcast client until it disconnects.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	cl := &client{
		conn:    conn,
		outbox:  make(chan Event, h.opts.OutboundBufferSize),
		limiter: rate.NewLimiter(h.opts.RateLimit, h.opts.RateBurst),
		ctx:     ctx,
		cancel:  cancel,
	}

	h.register(cl)
	defer h.unregister(cl)

	go h.readLoop(cl)
	h.writeLoop(cl)
}

func (h *Hub) register(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[cl] = struct{}{}
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
	cl.once.Do(func() {
		cl.cancel()
		cl.conn.Close()
	})
}

// readLoop discards inbound frames; the protocol is server-push only, but we
// must still read to notice the client closing the connection and to answer
// control frames (ping/pong, close).
func (h *Hub) readLoop(cl *client) {
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			cl.once.Do(func() { cl.cancel() })
			return
		}
	}
}

func (h *Hub) writeLoop(cl *client) {
	for {
		select {
		case <-cl.ctx.Done():
			return
		case ev := <-cl.outbox:
			if err := cl.limiter.Wait(cl.ctx); err != nil {
				return
			}
			if err := cl.conn.WriteJSON(ev); err != nil {
				h.logger.Info("broadcast client write failed, disconnecting", "error", err)
				return
			}
		}
	}
}
