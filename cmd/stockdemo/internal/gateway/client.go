package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/hub"
	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/protocol"
)

const (
	maxMessageSize = 4 * 1024
)

type ClientAdapter struct {
	conn   net.Conn
	hub    *hub.Hub
	send   chan []byte
	logger *zap.Logger

	mu      sync.Mutex
	closed  bool
	writeMu sync.Mutex

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewClient(conn net.Conn, h *hub.Hub, logger *zap.Logger) *ClientAdapter {
	return &ClientAdapter{
		conn:       conn,
		hub:        h,
		send:       make(chan []byte, 256),
		logger:     logger,
		writeWait:  5 * time.Second,
		pongWait:   60 * time.Second,
		pingPeriod: 50 * time.Second,
	}
}

// Start registers the client with the hub and runs its pumps.
func (c *ClientAdapter) Start(ctx context.Context) {
	c.hub.Register(ctx, c)
	go c.writePump()
	go c.readPump(ctx)
}

func (c *ClientAdapter) ID() string { return c.conn.RemoteAddr().String() }

// Close only closes the channel; writePump closes the conn.
func (c *ClientAdapter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *ClientAdapter) SendJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("JSON Marshal Error", zap.Error(err))
		return
	}
	c.SendBytes(b)
}

func (c *ClientAdapter) SendBytes(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		// Drop message if buffer full (Backpressure)
		c.logger.Warn("Dropping message for slow client", zap.String("client", c.ID()))
	}
}

// readPump serves the browser's frames: snapshot requests, pings and the
// close handshake. Any protocol violation drops the client.
func (c *ClientAdapter) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	rd := &wsutil.Reader{Source: c.conn, State: ws.StateServerSide, CheckUTF8: true}
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return
		}
		if hdr.Length > maxMessageSize || !hdr.Fin {
			c.logger.Warn("Rejecting client frame", zap.String("client", c.ID()),
				zap.Int64("size", hdr.Length), zap.Bool("fin", hdr.Fin))
			return
		}
		payload, err := io.ReadAll(rd)
		if err != nil {
			return
		}

		switch hdr.OpCode {
		case ws.OpClose:
			return
		case ws.OpPing:
			if err := c.writeFrame(ws.OpPong, payload); err != nil {
				return
			}
		case ws.OpPong:
			c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		case ws.OpText:
			c.handleRequest(ctx, payload)
		}
	}
}

func (c *ClientAdapter) handleRequest(ctx context.Context, payload []byte) {
	var req protocol.WSRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.SendJSON(protocol.WSMessage{Type: protocol.TypeError, Message: "Invalid JSON"})
		return
	}
	c.hub.HandleCommand(ctx, c, req)
}

// writeFrame is shared by both pumps, so pongs never interleave with trades.
func (c *ClientAdapter) writeFrame(op ws.OpCode, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return wsutil.WriteServerMessage(c.conn, op, payload)
}

// writePump drains queued trades to the browser and keeps the connection
// alive with pings. A closed queue ends the connection with a normal close.
func (c *ClientAdapter) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.writeFrame(ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
				return
			}
			if err := c.writeFrame(ws.OpText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.writeFrame(ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}
