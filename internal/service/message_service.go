package service

import (
	"context"
	"fmt"
	"time"

	"pesan/internal/domain"
)

// editWindow bounds how long a sender may edit or retract a message.
const editWindow = 15 * time.Minute

type MessageService struct {
	participants domain.ParticipantRepository
	messages     domain.MessageRepository

	PageSize int
}

func NewMessageService(
	participants domain.ParticipantRepository,
	messages domain.MessageRepository,
	pageSize int,
) *MessageService {
	return &MessageService{
		participants: participants,
		messages:     messages,
		PageSize:     pageSize,
	}
}

// ListMessages returns one page of a conversation's history in chronological
// order, with messages the viewer deleted for themself filtered out.
func (s *MessageService) ListMessages(
	ctx context.Context,
	conversationID, viewerID int64,
	limit, offset int,
) ([]*domain.Message, error) {
	ok, err := s.participants.IsParticipant(ctx, conversationID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !ok {
		return nil, domain.ErrForbidden
	}

	if limit <= 0 || limit > s.PageSize {
		limit = s.PageSize
	}
	if offset < 0 {
		offset = 0
	}

	msgs, err := s.messages.ListForViewer(ctx, conversationID, viewerID, limit, offset)
	if err != nil {
		return nil, err
	}

	// DB returns newest first; callers want chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// EditMessage replaces the text of the caller's own message. Only text
// messages can be edited, and only within the edit window.
func (s *MessageService) EditMessage(
	ctx context.Context,
	callerID, messageID int64,
	newText string,
) (*domain.Message, error) {
	if newText == "" {
		return nil, fmt.Errorf("message text is required: %w", domain.ErrInvalidInput)
	}
	if len([]rune(newText)) > 5000 {
		return nil, fmt.Errorf("message exceeds 5000 characters: %w", domain.ErrInvalidInput)
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != callerID {
		return nil, domain.ErrForbidden
	}
	if msg.DisappearForAll {
		return nil, fmt.Errorf("message was deleted: %w", domain.ErrConflict)
	}
	if msg.Content.Type != domain.ContentText {
		return nil, fmt.Errorf("only text messages can be edited: %w", domain.ErrInvalidInput)
	}
	if time.Since(msg.CreatedAt) > editWindow {
		return nil, fmt.Errorf("edit window has passed: %w", domain.ErrForbidden)
	}

	msg.Content.Message = newText
	msg.IsEdited = true
	if err := s.messages.UpdateContent(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DeleteForMe hides the message from the caller only.
func (s *MessageService) DeleteForMe(ctx context.Context, callerID, messageID int64) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	ok, err := s.participants.IsParticipant(ctx, msg.ConversationID, callerID)
	if err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if !ok {
		return domain.ErrForbidden
	}
	return s.messages.AddDisappearFor(ctx, messageID, callerID)
}

// DeleteForEveryone replaces the caller's own message with a tombstone so
// every participant sees it was retracted. Only allowed within the edit
// window.
func (s *MessageService) DeleteForEveryone(ctx context.Context, callerID, messageID int64) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != callerID {
		return nil, domain.ErrForbidden
	}
	if msg.DisappearForAll {
		return nil, fmt.Errorf("message was already deleted: %w", domain.ErrConflict)
	}
	if time.Since(msg.CreatedAt) > editWindow {
		return nil, fmt.Errorf("delete window has passed: %w", domain.ErrForbidden)
	}

	msg.Content = domain.TombstoneContent()
	msg.DisappearForAll = true
	if err := s.messages.UpdateContent(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkConversationsDelivered advances pending messages addressed to the
// recipient across the given conversations. Used by clients catching up over
// REST instead of a live socket.
func (s *MessageService) MarkConversationsDelivered(ctx context.Context, conversationIDs []int64, recipientID int64) (int64, error) {
	if len(conversationIDs) == 0 {
		return 0, nil
	}
	return s.messages.MarkConversationsDelivered(ctx, conversationIDs, recipientID)
}
