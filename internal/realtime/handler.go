package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/justxchange/go-backend/internal/auth"
	"github.com/justxchange/go-backend/internal/chat"
	"github.com/justxchange/go-backend/internal/notification"
)

const claimsLocalKey = "ws_claims"

// opTimeout bounds the persistence step of a realtime operation. Operations
// run against a background context so work already accepted keeps going if
// the originating connection drops mid-flight.
const opTimeout = 10 * time.Second

// Handler owns the websocket handshake and the event dispatch loop.
type Handler struct {
	hub           *Hub
	tokens        *auth.TokenService
	chats         *chat.Service
	notifications *notification.Service
	logger        zerolog.Logger
}

// NewHandler wires the realtime surface.
func NewHandler(hub *Hub, tokens *auth.TokenService, chats *chat.Service, notifications *notification.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:           hub,
		tokens:        tokens,
		chats:         chats,
		notifications: notifications,
		logger:        logger,
	}
}

// Upgrade gates the handshake. The bearer token must validate before the
// protocol upgrade happens; a bad token closes the attempt with 401 and no
// connection is ever admitted unauthenticated.
func (h *Handler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	claims, err := h.tokens.Validate(handshakeToken(c))
	if err != nil {
		return err
	}

	c.Locals(claimsLocalKey, claims)
	return c.Next()
}

// Serve returns the websocket handler for the already authenticated upgrade.
func (h *Handler) Serve() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *Handler) serve(conn *websocket.Conn) {
	claims, ok := conn.Locals(claimsLocalKey).(*auth.Claims)
	if !ok {
		_ = conn.Close()
		return
	}

	client := newClient(h.hub, conn, claims.UserID(), claims.Role())
	h.hub.Register(client)
	defer client.close()

	go client.writePump()
	h.readLoop(client)
}

func (h *Handler) readLoop(c *Client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var ev inboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			h.sendError(c, "malformed event")
			continue
		}

		h.dispatch(c, ev)
	}
}

// dispatch routes one inbound event. Persistence failures are logged and the
// event dropped; they never crash the connection.
func (h *Handler) dispatch(c *Client, ev inboundEvent) {
	switch ev.Event {
	case EventJoin:
		var p joinPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.RoomID == "" {
			h.sendError(c, "join requires a roomId")
			return
		}
		h.hub.Join(c, chatRoomFromID(p.RoomID))

	case EventSendMessage:
		h.handleSendMessage(c, ev.Data)

	case EventSubscribe:
		h.handleSubscribe(c, ev.Data)

	case EventMarkAsRead:
		h.handleMarkAsRead(c, ev.Data)

	case EventTyping, EventStopTyping:
		var p typingPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.ChatID == "" {
			return
		}
		h.hub.Publish(chatRoomFromID(p.ChatID), ev.Event, p)

	case EventSetOnline, EventSetOffline:
		var p presencePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		h.hub.Broadcast(ev.Event, p)

	case EventUserDisconnect:
		h.handleUserDisconnect(c, ev.Data)

	default:
		h.sendError(c, "unknown event: "+ev.Event)
	}
}

func (h *Handler) handleSendMessage(c *Client, data json.RawMessage) {
	var p sendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.ChatID == 0 || p.Message == "" {
		h.sendError(c, "sendMessage requires chatId and message")
		return
	}

	// Once accepted, persist and publish even if this connection drops.
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := h.chats.SendMessage(ctx, p.ChatID, c.UserID, p.Message); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", p.ChatID).Msg("message persist failed")
		h.sendError(c, "message could not be delivered")
	}
}

func (h *Handler) handleSubscribe(c *Client, data json.RawMessage) {
	var p subscribePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	// Subscriptions are scoped to the authenticated identity regardless of
	// the payload's userId.
	h.hub.Join(c, notification.RoomForUser(c.UserID))

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	unread, err := h.notifications.Unread(ctx, c.UserID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", c.UserID).Msg("unread fetch failed")
		return
	}

	h.push(c, EventNotifications, unread)
}

func (h *Handler) handleMarkAsRead(c *Client, data json.RawMessage) {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		h.sendError(c, "mark-as-read requires a list of notification ids")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	unread, err := h.notifications.MarkRead(ctx, c.UserID, ids)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", c.UserID).Msg("mark-as-read failed")
		return
	}

	h.push(c, EventNotifications, unread)
}

func (h *Handler) handleUserDisconnect(c *Client, data json.RawMessage) {
	var p disconnectPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	chatUUID, err := uuid.Parse(p.Chat)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := h.chats.TouchLastSeen(ctx, chatUUID, p.IsOwner); err != nil {
		h.logger.Error().Err(err).Str("chat", p.Chat).Msg("last seen update failed")
	}
}

// push delivers an event to one connection only.
func (h *Handler) push(c *Client, event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("event encode failed")
		return
	}
	c.enqueue(data)
}

func (h *Handler) sendError(c *Client, msg string) {
	h.push(c, EventError, errorPayload{Message: msg})
}

// chatRoomFromID accepts the chat's external id as sent by clients and
// normalizes it to the chat room name used by the publisher.
func chatRoomFromID(id string) string {
	if parsed, err := uuid.Parse(id); err == nil {
		return chat.RoomForChat(parsed)
	}
	return "chat:" + id
}

func handshakeToken(c *fiber.Ctx) string {
	if tok := c.Query("token"); tok != "" {
		return tok
	}
	header := c.Get(fiber.HeaderAuthorization)
	return strings.TrimPrefix(header, "Bearer ")
}
