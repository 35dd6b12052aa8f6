package realtime

import "encoding/json"

// Event names on the realtime surface. Typing and presence events are pure
// relays: never persisted, only forwarded.
const (
	EventJoin           = "join"
	EventSendMessage    = "sendMessage"
	EventSubscribe      = "subscribe"
	EventMarkAsRead     = "mark-as-read"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
	EventSetOnline      = "setOnline"
	EventSetOffline     = "setOffline"
	EventUserDisconnect = "user-disconnect"

	EventNotifications = "notifications"
	EventError         = "error"
)

// Envelope is the wire frame for both directions: an event name plus its
// payload.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// inboundEvent defers payload decoding until the event name is known.
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinPayload struct {
	RoomID string `json:"roomId"`
}

type sendMessagePayload struct {
	ChatID  int64  `json:"chatId"`
	UserID  int64  `json:"userId"`
	Message string `json:"message"`
}

type subscribePayload struct {
	UserID int64 `json:"userId"`
}

type typingPayload struct {
	ChatID string `json:"chatId"`
	UserID int64  `json:"userId"`
}

type presencePayload struct {
	UserID int64 `json:"userId"`
}

type disconnectPayload struct {
	Chat    string `json:"chat"`
	IsOwner bool   `json:"isOwner"`
}

type errorPayload struct {
	Message string `json:"message"`
}
