package chat

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"livechat/internal/pkg/logx"
	"livechat/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// number of outbound frames buffered per connection.
	sendBufferSize = 256
)

// Client is one open WebSocket connection. Its id is assigned by the server and
// is only meaningful for the lifetime of the connection.
type Client struct {
	id   string
	room *Room
	conn *websocket.Conn

	// outbound frames; written and closed only by the room loop.
	send chan []byte

	logger zerolog.Logger
}

// NewClient wraps conn with a fresh connection id.
func NewClient(room *Room, conn *websocket.Conn) *Client {
	id := randx.ConnectionID()

	return &Client{
		id:     id,
		room:   room,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logx.Component("client").With().Str("connection_id", id).Logger(),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// ReadPump reads frames until the connection fails, forwarding each decoded
// event to the room, then reports the disconnect. It blocks.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Connection closed unexpectedly")
			}
			return
		}

		if !c.processInboundFrame(frame) {
			return
		}
	}
}

// processInboundFrame validates one frame and hands it to the room.
// It returns false when the room no longer accepts events.
func (c *Client) processInboundFrame(frame []byte) bool {
	in, customErr := DecodeInbound(frame, c.room.AllowsImageURL)
	if customErr != nil {
		c.logger.Warn().
			Int("code", customErr.Code).
			Int("frame_bytes", len(frame)).
			Msg("Client sent invalid event")
		return c.room.Reject(c, customErr)
	}

	return c.room.Receive(c, in)
}

// cleanupOnDisconnect deregisters the client and closes the socket.
func (c *Client) cleanupOnDisconnect() {
	if !c.room.Disconnect(c) {
		c.logger.Debug().Msg("Room already stopped, skipping disconnect event.")
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Connection close error")
	}
}

// WritePump drains the send channel to the socket and keeps the connection
// alive with pings. It returns when the room closes the channel or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame, or a close frame once the channel is closed.
// Returns true if the WritePump loop should continue.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing connection")
		if err := c.conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePing sends a keep-alive Ping. Returns false if the write failed.
func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
