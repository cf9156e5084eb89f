// Package ws is the live-connection layer: it upgrades HTTP requests to
// websockets, binds each socket to an authenticated actor, and shuttles
// inbound actions to the services and outbound events to the client.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/poryaazizi7428/global-private-messenger/contract"
	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/services"
	"github.com/poryaazizi7428/global-private-messenger/sink"
)

// actorHeader carries the already-verified caller identity. Verification is
// the session collaborator's job; an empty value is the only thing rejected
// here.
const actorHeader = "X-Actor-ID"

var (
	errUnknownAction = fmt.Errorf("unknown action")
	errNotAMember    = fmt.Errorf("not a member of this conversation")
)

type Handler struct {
	log        *slog.Logger
	upgrader   websocket.Upgrader
	registry   contract.IRegistry
	chat       services.IChatService
	directory  services.IDirectoryService
	presence   *services.PresenceTracker
	validate   *validator.Validate
	bufferSize int
	replySize  int
}

func NewHandler(log *slog.Logger, registry contract.IRegistry,
	chat services.IChatService, directory services.IDirectoryService,
	presence *services.PresenceTracker, bufferSize int) *Handler {
	return &Handler{
		log:       log,
		registry:  registry,
		chat:      chat,
		directory: directory,
		presence:  presence,
		validate:  validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		bufferSize: bufferSize,
		replySize:  16,
	}
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actorID := r.Header.Get(actorHeader)
	if actorID == "" {
		actorID = r.URL.Query().Get("actor_id")
	}
	if actorID == "" {
		http.Error(w, "missing actor identity", http.StatusUnauthorized)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	connection := &Connection{
		ID:      uuid.NewString(),
		UserID:  actorID,
		conn:    wsConn,
		sink:    sink.NewConnectionSink(h.log, h.bufferSize),
		replies: make(chan Envelope, h.replySize),
		handler: h,
		log:     h.log,
		state:   StateConnecting,
	}

	h.subscribeRooms(connection)
	h.presence.OnConnect(actorID)
	connection.setState(StateSubscribed)
	h.log.Info("Connection established", "connection_id", connection.ID, "user_id", actorID)

	go connection.writePump()
	connection.readPump(r.Context())
}

// subscribeRooms joins the personal room plus one room per conversation the
// user belongs to at connect time. Conversations joined later are picked up
// through join_conversation or the user_joined event.
func (h *Handler) subscribeRooms(c *Connection) {
	h.registry.Register(c.ID, c.sink)
	h.registry.Subscribe(c.ID, domain.UserRoom(c.UserID))

	conversations, err := h.directory.ListForUser(c.UserID)
	if err != nil {
		h.log.Warn("Room bootstrap failed", "user_id", c.UserID, "error", err)
		return
	}
	for _, conv := range conversations {
		h.registry.Subscribe(c.ID, domain.ConversationRoom(conv.ID))
	}
}

// dispatch routes one inbound action. Persistence-affecting actions always
// produce an explicit ack; typing signals are fire-and-forget.
func (h *Handler) dispatch(ctx context.Context, c *Connection, env Envelope) {
	switch env.Action {
	case "send_message":
		h.handleSend(ctx, c, env)
	case "edit_message":
		h.handleEdit(ctx, c, env)
	case "delete_message":
		h.handleDelete(ctx, c, env)
	case "react":
		h.handleReact(ctx, c, env)
	case "join_conversation":
		h.handleJoin(c, env)
	case "leave_conversation":
		h.handleLeave(ctx, c, env)
	case "typing_start", "typing_stop":
		h.handleTyping(c, env)
	default:
		c.replyErr(env.Action, errUnknownAction)
	}
}

func (h *Handler) decode(env Envelope, out any) error {
	if err := json.Unmarshal(env.Data, out); err != nil {
		return err
	}
	return h.validate.Struct(out)
}

func (h *Handler) handleSend(ctx context.Context, c *Connection, env Envelope) {
	var payload SendMessagePayload
	if err := h.decode(env, &payload); err != nil {
		c.replyErr(env.Action, err)
		return
	}

	messageType := domain.MessageType(payload.Type)
	if payload.Type == "" {
		messageType = domain.MessageTypeText
	}
	var attachment *domain.AttachmentRef
	if payload.Attachment != nil {
		attachment = &domain.AttachmentRef{
			URL:  payload.Attachment.URL,
			Name: payload.Attachment.Name,
			Size: payload.Attachment.Size,
		}
	}

	message, err := h.chat.SendMessage(ctx, domain.PostMessageCommand{
		ActorID:        c.UserID,
		ConversationID: payload.ConversationID,
		Content:        payload.Content,
		Type:           messageType,
		Attachment:     attachment,
	})
	if err != nil {
		c.replyErr(env.Action, err)
		return
	}
	c.replyOK(env.Action, message)
}

func (h *Handler) handleEdit(ctx context.Context, c *Connection, env Envelope) {
	var payload EditMessagePayload
	if err := h.decode(env, &payload); err != nil {
		c.replyErr(env.Action, err)
		return
	}
	message, err := h.chat.EditMessage(ctx, domain.EditMessageCommand{
		ActorID:   c.UserID,
		MessageID: payload.MessageID,
		Content:   payload.Content,
	})
	if err != nil {
		c.replyErr(env.Action, err)
		return
	}
	c.replyOK(env.Action, message)
}

func (h *Handler) handleDelete(ctx context.Context, c *Connection, env Envelope) {
	var payload DeleteMessagePayload
	if err := h.decode(env, &payload); err != nil {
		c.replyErr(env.Action, err)
		return
	}
	message, err := h.chat.DeleteMessage(ctx, domain.DeleteMessageCommand{
		ActorID:   c.UserID,
		MessageID: payload.MessageID,
	})
	if err != nil {
		c.replyErr(env.Action, err)
		return
	}
	c.replyOK(env.Action, message)
}

func (h *Handler) handleReact(ctx context.Context, c *Connection, env Envelope) {
	var payload ReactPayload
	if err := h.decode(env, &payload); err != nil {
		c.replyErr(env.Action, err)
		return
	}
	message, err := h.chat.React(ctx, domain.ReactCommand{
		ActorID:   c.UserID,
		MessageID: payload.MessageID,
		Emoji:     payload.Emoji,
	})
	if err != nil {
		c.replyErr(env.Action, err)
		return
	}
	c.replyOK(env.Action, message)
}

// handleJoin subscribes the connection to a conversation room it is entitled
// to. Membership itself is managed by the directory; viewing is per
// connection.
func (h *Handler) handleJoin(c *Connection, env Envelope) {
	var payload ConversationPayload
	if err := h.decode(env, &payload); err != nil {
		c.replyErr(env.Action, err)
		return
	}
	member, err := h.directory.IsMember(payload.ConversationID, c.UserID)
	if err != nil {
		c.replyErr(env.Action, err)
		return
	}
	if !member {
		c.replyErr(env.Action, errNotAMember)
		return
	}
	h.registry.Subscribe(c.ID, domain.ConversationRoom(payload.ConversationID))
	c.replyOK(env.Action, nil)
}

// handleLeave is self-leave: the membership record goes away and the room
// subscription with it.
func (h *Handler) handleLeave(ctx context.Context, c *Connection, env Envelope) {
	var payload ConversationPayload
	if err := h.decode(env, &payload); err != nil {
		c.replyErr(env.Action, err)
		return
	}
	if _, err := h.directory.RemoveMember(ctx, c.UserID, payload.ConversationID, c.UserID); err != nil {
		c.replyErr(env.Action, err)
		return
	}
	h.registry.Unsubscribe(c.ID, domain.ConversationRoom(payload.ConversationID))
	c.replyOK(env.Action, nil)
}

func (h *Handler) handleTyping(c *Connection, env Envelope) {
	var payload ConversationPayload
	if err := h.decode(env, &payload); err != nil {
		return
	}
	var err error
	if env.Action == "typing_start" {
		err = h.chat.StartTyping(c.UserID, payload.ConversationID, c.ID)
	} else {
		err = h.chat.StopTyping(c.UserID, payload.ConversationID, c.ID)
	}
	if err != nil {
		h.log.Debug("Typing signal rejected", "user_id", c.UserID,
			"conversation_id", payload.ConversationID, "error", err)
	}
}
