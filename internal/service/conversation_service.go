package service

import (
	"context"
	"errors"
	"fmt"

	"pesan/internal/domain"
	"pesan/internal/realtime"
)

const maxGroupMembers = 100

type ConversationService struct {
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	users         domain.UserRepository
	views         *realtime.ViewBuilder
}

func NewConversationService(
	conversations domain.ConversationRepository,
	participants domain.ParticipantRepository,
	users domain.UserRepository,
	views *realtime.ViewBuilder,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		participants:  participants,
		users:         users,
		views:         views,
	}
}

type ConversationCreateInput struct {
	IsGroup        bool
	Name           *string
	Image          *string
	Description    *string
	ParticipantIDs []int64
}

// CreateConversation creates a conversation with the creator included. For a
// private pair that already has a conversation the existing one is returned
// instead of creating a duplicate.
func (s *ConversationService) CreateConversation(
	ctx context.Context,
	creatorID int64,
	in ConversationCreateInput,
) (*realtime.ConversationView, error) {
	memberIDs := dedupeWithCreator(creatorID, in.ParticipantIDs)

	if in.IsGroup {
		if in.Name == nil || *in.Name == "" {
			return nil, fmt.Errorf("group name is required: %w", domain.ErrInvalidInput)
		}
		if len(memberIDs) > maxGroupMembers {
			return nil, fmt.Errorf("group exceeds %d members: %w", maxGroupMembers, domain.ErrInvalidInput)
		}
	} else {
		// A private conversation has exactly two members, or one for a
		// note-to-self conversation.
		if len(memberIDs) > 2 {
			return nil, fmt.Errorf("private conversation allows one participant: %w", domain.ErrInvalidInput)
		}
	}

	found, err := s.users.GetByIDs(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	if len(found) != len(memberIDs) {
		return nil, fmt.Errorf("unknown participant: %w", domain.ErrNotFound)
	}

	if !in.IsGroup {
		partnerID := creatorID
		if len(memberIDs) == 2 {
			partnerID = otherOf(memberIDs, creatorID)
		}
		existing, err := s.conversations.FindPrivateBetween(ctx, creatorID, partnerID)
		if err == nil {
			return s.views.Build(ctx, creatorID, existing.ID)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("find private conversation: %w", err)
		}
	}

	conv := &domain.Conversation{
		IsGroup:     in.IsGroup,
		Name:        in.Name,
		Image:       in.Image,
		Description: in.Description,
		CreatedBy:   creatorID,
	}
	members := make([]domain.Membership, len(memberIDs))
	for i, id := range memberIDs {
		members[i] = domain.Membership{UserID: id}
		if in.IsGroup {
			role := domain.RoleMember
			if id == creatorID {
				role = domain.RoleAdmin
			}
			members[i].Role = &role
		}
	}
	if err := s.conversations.Create(ctx, conv, members); err != nil {
		return nil, err
	}

	return s.views.Build(ctx, creatorID, conv.ID)
}

// ListForUser returns the user's conversations as per-viewer projections,
// most recently active first.
func (s *ConversationService) ListForUser(ctx context.Context, userID int64) ([]*realtime.ConversationView, error) {
	ids, err := s.conversations.ListIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]*realtime.ConversationView, 0, len(ids))
	for _, id := range ids {
		v, err := s.views.Build(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("build view %d: %w", id, err)
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *ConversationService) GetForUser(ctx context.Context, userID, conversationID int64) (*realtime.ConversationView, error) {
	ok, err := s.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !ok {
		return nil, domain.ErrForbidden
	}
	return s.views.Build(ctx, userID, conversationID)
}

func dedupeWithCreator(creatorID int64, ids []int64) []int64 {
	out := []int64{creatorID}
	seen := map[int64]struct{}{creatorID: {}}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func otherOf(pair []int64, self int64) int64 {
	for _, id := range pair {
		if id != self {
			return id
		}
	}
	return self
}
