package realtime

// Outbound event names.
const (
	EventReceiveMessage          = "receive_message"
	EventConversationUpdated     = "conversation_updated"
	EventNewConversationReceived = "new_conversation_received"
	EventMessagesDelivered       = "messages_delivered"
	EventMessagesRead            = "messages_read"
	EventUserOnline              = "user_online"
	EventUserOffline             = "user_offline"
	EventUserTyping              = "user_is_typing"
	EventUserStoppedTyping       = "user_stopped_typing"
)

// Emitter is the outbound side of the realtime channel layer. A conversation
// room reaches every connection currently subscribed to that conversation; a
// user channel reaches every connection of that user regardless of rooms.
// Sends to empty rooms are silently absorbed.
type Emitter interface {
	ToConversation(conversationID int64, event string, payload any)
	ToConversationExcept(conversationID, exceptUserID int64, event string, payload any)
	ToUser(userID int64, event string, payload any)
	// UserInRoom reports whether any of the user's connections is currently
	// subscribed to the conversation's room.
	UserInRoom(conversationID, userID int64) bool
}

// Payload shapes for outbound events.

// DeliveredPayload maps conversation ids to the message ids that were just
// advanced to delivered, batched per addressed sender.
type DeliveredPayload struct {
	Updates map[int64][]int64 `json:"updates"`
}

// ConversationRef addresses events that only carry a conversation id.
type ConversationRef struct {
	ConversationID int64 `json:"conversation_id"`
}

// PresencePayload carries edge-triggered online/offline notifications.
type PresencePayload struct {
	UserID int64 `json:"user_id"`
}

// TypingUser identifies who is typing.
type TypingUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TypingPayload is relayed to the conversation room, excluding the typist.
type TypingPayload struct {
	ConversationID int64      `json:"conversation_id"`
	User           TypingUser `json:"user"`
}
