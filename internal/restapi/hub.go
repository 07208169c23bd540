package restapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/arquest/waypoint/internal/navigation"
)

const (
	encodingJSON    = "json"
	encodingMsgpack = "msgpack"

	clientSendBuffer = 16
	writeTimeout     = 5 * time.Second
	pingInterval     = 30 * time.Second
)

// outboundMessage is everything the server writes to a websocket client.
type outboundMessage struct {
	Type  string            `json:"type" msgpack:"type"`
	Frame *navigation.Frame `json:"frame,omitempty" msgpack:"frame,omitempty"`
	Error string            `json:"error,omitempty" msgpack:"error,omitempty"`
}

func frameMessage(kind string, frame navigation.Frame) outboundMessage {
	return outboundMessage{Type: kind, Frame: &frame}
}

func errorMessage(text string) outboundMessage {
	return outboundMessage{Type: "error", Error: text}
}

func encodeMessage(encoding string, msg outboundMessage) (websocket.MessageType, []byte, error) {
	if encoding == encodingMsgpack {
		b, err := msgpack.Marshal(msg)
		return websocket.MessageBinary, b, err
	}
	b, err := json.Marshal(msg)
	return websocket.MessageText, b, err
}

// Hub fans the frames of one session out to its websocket clients. It is
// the session's RenderSink and ArrivalListener. Newly connected clients
// get the latest frame straight away.
type Hub struct {
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	last    *navigation.Frame
	closed  bool
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*WSClient]struct{}),
		logger:  logger,
	}
}

// Publish records frame as the latest and sends it to every client.
func (h *Hub) Publish(frame navigation.Frame) {
	h.mu.Lock()
	h.last = &frame
	h.mu.Unlock()

	h.broadcast(frameMessage("frame", frame))
}

// Arrived sends the one-time arrival event.
func (h *Hub) Arrived(frame navigation.Frame) {
	h.logger.Info("arrival broadcast", slog.Int("clients", h.Len()))
	h.broadcast(frameMessage("arrived", frame))
}

// LastFrame returns the most recently published frame.
func (h *Hub) LastFrame() (navigation.Frame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return navigation.Frame{}, false
	}
	return *h.last, true
}

// AddClient registers c and queues the latest frame for it. It returns
// false once the hub is closed.
func (h *Hub) AddClient(c *WSClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.Send(frameMessage("frame", *h.last))
	}
	return true
}

func (h *Hub) RemoveClient(c *WSClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.closed = true
	h.mu.Unlock()

	for c := range clients {
		c.Close()
	}
}

func (h *Hub) broadcast(msg outboundMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.Send(msg)
	}
}

// WSClient is one websocket connection. Sends never block the caller: a
// full queue drops its oldest message.
type WSClient struct {
	conn      *websocket.Conn
	encoding  string
	send      chan outboundMessage
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64
	logger    *slog.Logger
}

func NewWSClient(conn *websocket.Conn, encoding string, logger *slog.Logger) *WSClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSClient{
		conn:     conn,
		encoding: encoding,
		send:     make(chan outboundMessage, clientSendBuffer),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Send queues msg for the writer.
func (c *WSClient) Send(msg outboundMessage) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- msg:
		return
	default:
	}
	select {
	case <-c.send:
		c.dropped.Add(1)
	default:
	}
	select {
	case c.send <- msg:
	default:
		c.dropped.Add(1)
	}
}

// Dropped returns how many messages were discarded for this client.
func (c *WSClient) Dropped() uint64 {
	return c.dropped.Load()
}

// Close stops the writer, which then closes the connection.
func (c *WSClient) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writeLoop owns all writes to the connection until ctx ends or the
// client is closed.
func (c *WSClient) writeLoop(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-c.done:
			c.drain(ctx)
			_ = c.conn.Close(websocket.StatusNormalClosure, "session closed")
			return

		case msg := <-c.send:
			if err := c.write(ctx, msg); err != nil {
				c.logger.Debug("websocket write failed", slog.String("error", err.Error()))
				return
			}

		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				c.logger.Debug("websocket ping failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// drain delivers what was queued before the close, e.g. the final stopped frame.
func (c *WSClient) drain(ctx context.Context) {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(ctx, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *WSClient) write(ctx context.Context, msg outboundMessage) error {
	typ, b, err := encodeMessage(c.encoding, msg)
	if err != nil {
		c.logger.Error("failed to encode websocket message", slog.String("error", err.Error()))
		return nil
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(wctx, typ, b)
}
