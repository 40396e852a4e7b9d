// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/streetcast/streetcast/internal/logging"
	"github.com/streetcast/streetcast/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// ErrSendBufferFull reports a connection too slow to keep up with outbound
// traffic. The caller treats the device as offline.
var ErrSendBufferFull = errors.New("gateway: send buffer full")

// Conn is one device socket. It implements registry.Transport so the
// dispatcher can push commands through it without knowing about websockets.
type Conn struct {
	id   string
	gw   *Gateway
	sock *websocket.Conn
	send chan Envelope

	// limiter bounds decision work per connection; excess location
	// updates are acknowledged but not re-decided.
	limiter *rate.Limiter

	mu        sync.Mutex
	deviceID  string
	closed    bool
	closeOnce sync.Once
}

func newConn(gw *Gateway, sock *websocket.Conn, limit rate.Limit, burst int) *Conn {
	return &Conn{
		id:      uuid.NewString(),
		gw:      gw,
		sock:    sock,
		send:    make(chan Envelope, sendBuffer),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Send queues one event for the write pump. Never blocks; a full buffer
// means the device is not draining and the message is dropped with an error.
func (c *Conn) Send(event string, payload interface{}) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("gateway: connection closed")
	}
	c.mu.Unlock()

	select {
	case c.send <- Envelope{Type: event, Data: payload}:
		metrics.GatewayMessagesTotal.WithLabelValues("outbound", event).Inc()
		return nil
	default:
		return ErrSendBufferFull
	}
}

// RemoteAddr reports the peer address for registry snapshots.
func (c *Conn) RemoteAddr() string {
	return c.sock.RemoteAddr().String()
}

// DeviceID returns the registered device identifier, or "" before
// registration.
func (c *Conn) DeviceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceID
}

func (c *Conn) setDeviceID(id string) {
	c.mu.Lock()
	c.deviceID = id
	c.mu.Unlock()
}

// close shuts the socket down once; safe from any goroutine.
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		_ = c.sock.Close()
	})
}

func (c *Conn) readPump() {
	defer func() {
		c.gw.handleClose(c)
		c.close()
	}()

	c.sock.SetReadLimit(maxMessageSize)
	if err := c.sock.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env inboundEnvelope
		if err := c.sock.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Debug().Err(err).Str("connection_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		metrics.GatewayMessagesTotal.WithLabelValues("inbound", env.Type).Inc()
		c.gw.handleMessage(c, env)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			if err := c.sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				_ = c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.sock.WriteJSON(env); err != nil {
				logging.Debug().Err(err).Str("connection_id", c.id).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// start begins the read and write pumps.
func (c *Conn) start() {
	go c.writePump()
	go c.readPump()
}
