package domain

import (
	"context"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*User, error)
	Search(ctx context.Context, query string, limit int) ([]*User, error)
	Update(ctx context.Context, u *User) error
}

// ContactRepository defines persistence operations for contact books.
type ContactRepository interface {
	Create(ctx context.Context, c *Contact) error
	ListForOwner(ctx context.Context, ownerID int64) ([]*Contact, error)
	GetByOwnerAndEmail(ctx context.Context, ownerID int64, email string) (*Contact, error)
	Update(ctx context.Context, c *Contact) error
	Delete(ctx context.Context, ownerID, contactID int64) error
}

// ConversationRepository defines persistence operations for conversations.
// Create inserts the conversation and its memberships in one transaction.
type ConversationRepository interface {
	Create(ctx context.Context, c *Conversation, members []Membership) error
	GetByID(ctx context.Context, id int64) (*Conversation, error)
	FindPrivateBetween(ctx context.Context, userA, userB int64) (*Conversation, error)
	ListIDsForUser(ctx context.Context, userID int64) ([]int64, error)
}

// ParticipantRepository defines operations around conversation membership.
type ParticipantRepository interface {
	ListParticipants(ctx context.Context, conversationID int64) ([]*User, error)
	ParticipantIDs(ctx context.Context, conversationID int64) ([]int64, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	GetMembership(ctx context.Context, conversationID, userID int64) (*Membership, error)
	// CoMemberIDs returns the distinct set of users sharing at least one
	// conversation with the given user, excluding the user themself.
	CoMemberIDs(ctx context.Context, userID int64) ([]int64, error)
}

// StatusUpdate identifies a message whose status was advanced in a batch
// operation, with enough context to address the resulting notifications.
type StatusUpdate struct {
	MessageID      int64
	ConversationID int64
	SenderID       int64
}

// MessageRepository defines persistence operations for messages and the
// transactional contract the realtime core depends on: Create and every
// status mutation keep the owning conversation's last-message cache in
// lockstep inside a single transaction, and every status write is
// conditional on the stored status so concurrent triggers cannot regress
// or double-apply a transition.
type MessageRepository interface {
	// Create inserts the message and refreshes the conversation's
	// last-message cache atomically. On abort neither write is applied.
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	ListForViewer(ctx context.Context, conversationID, viewerID int64, limit, offset int) ([]*Message, error)
	CountForConversation(ctx context.Context, conversationID int64) (int64, error)
	UnreadCount(ctx context.Context, conversationID, viewerID int64) (int, error)

	// MarkDelivered advances a single message sent -> delivered. Returns
	// false without error when the message was already past sent.
	MarkDelivered(ctx context.Context, messageID int64) (bool, error)
	// MarkRead advances a single message to read. Returns false when the
	// message was already read.
	MarkRead(ctx context.Context, messageID int64) (bool, error)
	// MarkDeliveredForRecipient advances every sent message addressed to the
	// user (any conversation they belong to, not authored by them) to
	// delivered and reports the affected messages.
	MarkDeliveredForRecipient(ctx context.Context, recipientID int64) ([]StatusUpdate, error)
	// MarkConversationsDelivered advances sent messages in the given
	// conversations that are not authored by the recipient.
	MarkConversationsDelivered(ctx context.Context, conversationIDs []int64, recipientID int64) (int64, error)
	// MarkConversationRead advances every unread message in a conversation to
	// read. Messages authored by the reader are skipped unless includeOwn is
	// set (self-conversation). Returns the number of messages advanced.
	MarkConversationRead(ctx context.Context, conversationID, readerID int64, includeOwn bool) (int64, error)

	// UpdateContent persists edits (or the delete-for-everyone tombstone) and
	// syncs the conversation cache when the message is still the cached last
	// message.
	UpdateContent(ctx context.Context, m *Message) error
	AddDisappearFor(ctx context.Context, messageID, userID int64) error
}
