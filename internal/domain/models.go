package domain

import "time"

// MessageStatus is the delivery status of a message. It only ever moves
// forward: sent -> delivered -> read.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Rank returns the position of the status in the lifecycle, used to compare
// statuses without regressing.
func (s MessageStatus) Rank() int {
	switch s {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	}
	return -1
}

// Content types for the message content union.
const (
	ContentText         = "text"
	ContentImage        = "image"
	ContentAudio        = "audio"
	ContentFile         = "file"
	ContentNotification = "notification"
)

// MessageContent is the tagged content union carried by every message.
// URL is set for media types, Message holds the text (caption for media).
type MessageContent struct {
	Type    string  `json:"type"`
	URL     *string `json:"url"`
	Message string  `json:"message"`
}

// User represents an application user.
type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	PhoneNumber    *string   `json:"phone_number,omitempty"`
	Image          *string   `json:"image"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Contact is an entry in a user's contact book. Name overrides the partner's
// own display name in that user's conversation views.
type Contact struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LastMessage is the denormalized snapshot of a conversation's most recent
// message. Its Status must never run ahead of the underlying message.
type LastMessage struct {
	MessageID int64          `json:"message_id"`
	Content   MessageContent `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	Status    MessageStatus  `json:"status"`
	SenderID  int64          `json:"sender_id"`
}

// Conversation is either private (exactly two participants, at most one per
// unordered pair) or a group.
type Conversation struct {
	ID          int64        `json:"id"`
	IsGroup     bool         `json:"is_group"`
	Name        *string      `json:"name"`
	Image       *string      `json:"image"`
	Description *string      `json:"description"`
	CreatedBy   int64        `json:"created_by"`
	LastMessage *LastMessage `json:"last_message"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Membership roles for group conversations. Role is nil for private ones.
const (
	RoleAdmin  = "Admin"
	RoleMember = "Member"
)

// Membership links a user to a conversation.
type Membership struct {
	UserID         int64     `json:"user_id"`
	ConversationID int64     `json:"conversation_id"`
	Role           *string   `json:"role"`
	JoinedAt       time.Time `json:"joined_at"`
}

// Message is a single chat message.
type Message struct {
	ID             int64          `json:"id"`
	ConversationID int64          `json:"conversation_id"`
	SenderID       int64          `json:"sender_id"`
	Content        MessageContent `json:"content"`
	Status         MessageStatus  `json:"status"`
	DeliveredAt    *time.Time     `json:"delivered_at"`
	ReadAt         *time.Time     `json:"read_at"`
	IsEdited       bool           `json:"is_edited"`
	// DisappearFor lists users the message is hidden from; ids are only ever
	// added, never removed.
	DisappearFor    []int64   `json:"disappear_for"`
	DisappearForAll bool      `json:"disappear_for_all"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HiddenFor reports whether the message has been deleted for the given viewer.
func (m *Message) HiddenFor(userID int64) bool {
	for _, id := range m.DisappearFor {
		if id == userID {
			return true
		}
	}
	return false
}

// TombstoneContent is what a message's content becomes after delete-for-everyone.
func TombstoneContent() MessageContent {
	return MessageContent{
		Type:    ContentNotification,
		Message: "This message was deleted by the sender.",
	}
}

// Snapshot builds the LastMessage cache entry for this message.
func (m *Message) Snapshot() *LastMessage {
	return &LastMessage{
		MessageID: m.ID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Status:    m.Status,
		SenderID:  m.SenderID,
	}
}
