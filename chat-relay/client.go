package main

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
	readLimit      = 4 << 20
)

// Client binds one websocket connection to the registry and relay.
type Client struct {
	id     string
	conn   *websocket.Conn
	relay  *Relay
	reg    *Registry
	send   chan ServerEvent
	kick   chan string
	done   chan struct{}
	closed atomic.Bool
}

func NewClient(conn *websocket.Conn, reg *Registry, relay *Relay) *Client {
	return &Client{
		id:    uuid.NewString(),
		conn:  conn,
		relay: relay,
		reg:   reg,
		send:  make(chan ServerEvent, sendBufferSize),
		kick:  make(chan string, 1),
		done:  make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues an event for the write loop, dropping the oldest queued event
// rather than blocking on a slow consumer.
func (c *Client) Send(ev ServerEvent) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- ev:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- ev:
		default:
			return false
		}
	}
	return true
}

// Kick asks the write loop to send a close frame and tear the connection
// down. The write loop is the only goroutine writing to the connection.
func (c *Client) Kick(reason string) {
	if c.closed.Load() {
		return
	}
	select {
	case c.kick <- reason:
	default:
		c.close()
	}
}

func (c *Client) readLoop() {
	defer c.close()
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("session", c.id).Msg("[chat] read message")
			return
		}
		var ev ClientEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			c.Send(ServerEvent{Type: evError, Reason: "malformed event"})
			continue
		}
		c.relay.Dispatch(c, ev)
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Str("session", c.id).Msg("[chat] write json")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case reason := <-c.kick:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, reason))
			return
		case <-c.done:
			return
		}
	}
}

// close unregisters exactly once; disconnects are normal lifecycle, not errors.
func (c *Client) close() {
	if c.closed.Swap(true) {
		return
	}
	c.reg.Unregister(c)
	close(c.done)
	_ = c.conn.Close()
}
