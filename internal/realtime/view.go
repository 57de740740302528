package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pesan/internal/domain"
)

// PartnerView is the identity block for the other side of a private
// conversation.
type PartnerView struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Image    *string `json:"image"`
	IsOnline bool    `json:"is_online"`
}

// ConversationView is the per-viewer projection of a conversation used for
// both REST reads and push payloads. It is rebuilt from authoritative state
// on every call and never cached.
type ConversationView struct {
	ConversationID int64               `json:"conversation_id"`
	IsGroup        bool                `json:"is_group"`
	Name           *string             `json:"name"`
	Image          *string             `json:"image"`
	LastMessage    *domain.LastMessage `json:"last_message"`
	UnreadCount    int                 `json:"unread_count"`

	// Group fields.
	Role        *string `json:"role,omitempty"`
	MemberCount int     `json:"member_count,omitempty"`

	// Private fields.
	Partner *PartnerView `json:"partner,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ViewBuilder materializes ConversationViews.
type ViewBuilder struct {
	contacts      domain.ContactRepository
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	messages      domain.MessageRepository
	presence      Registry
}

func NewViewBuilder(
	contacts domain.ContactRepository,
	conversations domain.ConversationRepository,
	participants domain.ParticipantRepository,
	messages domain.MessageRepository,
	presence Registry,
) *ViewBuilder {
	return &ViewBuilder{
		contacts:      contacts,
		conversations: conversations,
		participants:  participants,
		messages:      messages,
		presence:      presence,
	}
}

// Build produces the viewer's projection of the conversation.
func (b *ViewBuilder) Build(ctx context.Context, viewerID, conversationID int64) (*ConversationView, error) {
	conv, err := b.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	unread, err := b.messages.UnreadCount(ctx, conversationID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("unread count: %w", err)
	}

	view := &ConversationView{
		ConversationID: conv.ID,
		IsGroup:        conv.IsGroup,
		LastMessage:    conv.LastMessage,
		UnreadCount:    unread,
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
	}

	members, err := b.participants.ListParticipants(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	if conv.IsGroup {
		view.Name = conv.Name
		view.Image = conv.Image
		view.MemberCount = len(members)
		if ms, err := b.participants.GetMembership(ctx, conversationID, viewerID); err == nil {
			view.Role = ms.Role
		}
		return view, nil
	}

	partner := pickPartner(members, viewerID)
	if partner == nil {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
	}

	displayName := partner.Name
	contact, err := b.contacts.GetByOwnerAndEmail(ctx, viewerID, partner.Email)
	switch {
	case err == nil:
		displayName = contact.Name
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("contact lookup: %w", err)
	}

	view.Name = &displayName
	view.Image = partner.Image
	view.Partner = &PartnerView{
		ID:       partner.ID,
		Name:     partner.Name,
		Email:    partner.Email,
		Image:    partner.Image,
		IsOnline: b.presence.IsOnline(partner.ID),
	}
	return view, nil
}

// pickPartner returns the member that is not the viewer; for a
// self-conversation the viewer is their own partner.
func pickPartner(members []*domain.User, viewerID int64) *domain.User {
	var self *domain.User
	for _, m := range members {
		if m.ID != viewerID {
			return m
		}
		self = m
	}
	return self
}
