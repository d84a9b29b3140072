package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed between pongs echoing the client's ping payload
	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	// Client frames only carry subscribe, unsubscribe and ping requests
	maxMessageSize = 512

	// Queued updates coalesced into one newline-separated frame
	maxFrameMessages = 32

	// Malformed frames tolerated before the connection is dropped
	maxInvalidFrames = 5

	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  maxMessageSize,
	WriteBufferSize: 4096,
	// The portfolio front end is served from another origin
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one browser connection. Its id doubles as the ping payload.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger
}

// ClientMessage is a request sent by the browser
type ClientMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: logger.With("client_id", id),
	}
}

// readPump handles subscription requests until the connection fails or the
// client keeps sending frames that are not requests
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(payload string) error {
		if payload != c.id {
			c.logger.Debug("ignoring pong with foreign payload")
			return nil
		}
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	invalid := 0
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(frame, &msg); err != nil || msg.Type == "" {
			invalid++
			if invalid >= maxInvalidFrames {
				c.logger.Warn("closing connection after malformed frames", "count", invalid)
				c.closeWith(websocket.ClosePolicyViolation, "too many malformed frames")
				return
			}
			c.sendError("invalid message format")
			continue
		}
		invalid = 0
		c.handleMessage(&msg)
	}
}

// handleMessage applies one client request
func (c *Client) handleMessage(msg *ClientMessage) {
	switch msg.Type {
	case MessageTypeSubscribe:
		if !ValidTopic(msg.Topic) {
			c.sendError("topic must be \"explorer\" or \"address:<wallet>\"")
			return
		}
		c.hub.Subscribe(c, msg.Topic)
		c.sendAck("subscribed", msg.Topic)

	case MessageTypeUnsubscribe:
		if !ValidTopic(msg.Topic) {
			c.sendError("unknown topic")
			return
		}
		c.hub.Unsubscribe(c, msg.Topic)
		c.sendAck("unsubscribed", msg.Topic)

	case MessageTypePing:
		c.sendPong()

	default:
		c.sendError("unknown message type " + msg.Type)
	}
}

// writePump drains the send queue, coalescing bursts of updates into one
// frame, and pings the browser with the client id
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.closeWith(websocket.CloseGoingAway, "server shutting down")
				return
			}
			if err := c.writeFrame(message); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte(c.id), time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}

func (c *Client) writeFrame(first []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	w.Write(first)

	for n := min(len(c.send), maxFrameMessages-1); n > 0; n-- {
		next, ok := <-c.send
		if !ok {
			break
		}
		w.Write([]byte{'\n'})
		w.Write(next)
	}
	return w.Close()
}

func (c *Client) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug("websocket close failed", "error", err)
	}
}

// reply queues a message for this client only, dropping it when the buffer is full
func (c *Client) reply(msg Message) {
	msg.Timestamp = time.Now()
	data, _ := json.Marshal(msg)
	select {
	case c.send <- data:
	default:
		c.logger.Debug("send buffer full, dropping reply", "type", msg.Type)
	}
}

func (c *Client) sendError(errMsg string) {
	c.reply(Message{Type: MessageTypeError, Data: map[string]string{"error": errMsg}})
}

func (c *Client) sendAck(action, topic string) {
	c.reply(Message{Type: action, Topic: topic, Data: map[string]string{"status": "ok"}})
}

func (c *Client) sendPong() {
	c.reply(Message{Type: MessageTypePong})
}

// ServeWs upgrades a request and registers the connection. Topics named in
// ?topic= query parameters are subscribed right away.
func ServeWs(hub *Hub, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(hub, conn, logger)
	hub.Register(client)
	for _, topic := range r.URL.Query()["topic"] {
		if ValidTopic(topic) {
			hub.Subscribe(client, topic)
		}
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()

	client.logger.Debug("new websocket connection", "topics", len(r.URL.Query()["topic"]))
}

