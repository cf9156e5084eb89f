package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/domain/event"
	"github.com/poryaazizi7428/global-private-messenger/sink"
)

// Connection lifecycle is an explicit state machine so cleanup-on-close is a
// single deterministic transition, not a concern scattered across handlers.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateSubscribed
	StateClosed
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Connection binds one websocket to one authenticated user. It owns the
// read and write pumps and its registry/presence cleanup.
type Connection struct {
	ID     string
	UserID string

	conn    *websocket.Conn
	sink    *sink.ConnectionSink
	replies chan Envelope
	handler *Handler
	log     *slog.Logger

	mu    sync.Mutex
	state ConnState
	once  sync.Once
}

func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Close is the single teardown transition: room subscriptions are released
// synchronously, presence learns about the lost connection, and the sink
// stops accepting events. Safe to call from both pumps.
func (c *Connection) Close() {
	c.once.Do(func() {
		c.setState(StateClosed)
		c.handler.registry.DropConnection(c.ID)
		c.handler.presence.OnDisconnect(c.UserID)
		c.sink.Close()
		_ = c.conn.Close()
		c.log.Info("Connection closed", "connection_id", c.ID, "user_id", c.UserID)
	})
}

func (c *Connection) readPump(ctx context.Context) {
	defer c.Close()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("Unexpected websocket close", "connection_id", c.ID, "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.reply(AckPayload{Action: "", OK: false, Error: "malformed envelope"})
			continue
		}
		c.handler.dispatch(ctx, c, env)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case evt, ok := <-c.sink.Events:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.reactToOwnMembership(evt)
			if !c.writeEvent(evt) {
				return
			}
		case env := <-c.replies:
			if !c.writeEnvelope(env) {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reactToOwnMembership drops the conversation room subscription when this
// user was removed from the conversation, so no further events leak in after
// the user_left notification itself.
func (c *Connection) reactToOwnMembership(evt event.DomainEvent) {
	membership, ok := evt.(event.MembershipEvent)
	if !ok || membership.UserID != c.UserID {
		return
	}
	switch membership.Name() {
	case "user_left":
		c.handler.registry.Unsubscribe(c.ID, domain.ConversationRoom(membership.ConversationID))
	case "user_joined":
		c.handler.registry.Subscribe(c.ID, domain.ConversationRoom(membership.ConversationID))
	}
}

func (c *Connection) writeEvent(evt event.DomainEvent) bool {
	data, err := json.Marshal(evt)
	if err != nil {
		c.log.Error("Event marshal failed", "event", evt.Name(), "error", err)
		return true
	}
	return c.writeEnvelope(Envelope{Event: evt.Name(), Data: data})
}

func (c *Connection) writeEnvelope(env Envelope) bool {
	payload, err := json.Marshal(env)
	if err != nil {
		c.log.Error("Envelope marshal failed", "error", err)
		return true
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Debug("Write failed", "connection_id", c.ID, "error", err)
		return false
	}
	return true
}

// reply queues an ack without blocking the read pump on a slow socket.
func (c *Connection) reply(ack AckPayload) {
	data, err := json.Marshal(ack)
	if err != nil {
		c.log.Error("Ack marshal failed", "error", err)
		return
	}
	select {
	case c.replies <- Envelope{Event: "ack", Data: data}:
	default:
		c.log.Warn("Reply queue full, dropping ack", "connection_id", c.ID,
			"action", ack.Action)
	}
}

func (c *Connection) replyOK(action string, payload any) {
	c.reply(AckPayload{Action: action, OK: true, Payload: payload})
}

func (c *Connection) replyErr(action string, err error) {
	c.reply(AckPayload{Action: action, OK: false, Error: fmt.Sprintf("%v", err)})
}
