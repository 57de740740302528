package realtime

import (
	"context"
	"fmt"
	"log"
	"time"

	"pesan/internal/domain"
	"pesan/internal/metrics"
)

// Dispatcher is the single state/fanout pipeline behind both the websocket
// and the REST message paths. It owns the ordering of outbound events: the
// raw message broadcast always precedes any derived conversation-view update
// so clients never observe a view referencing a message they have not
// received, and no event is emitted for a transition whose persistence write
// failed.
type Dispatcher struct {
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	messages      domain.MessageRepository
	presence      Registry
	emitter       Emitter
	views         *ViewBuilder
}

func NewDispatcher(
	conversations domain.ConversationRepository,
	participants domain.ParticipantRepository,
	messages domain.MessageRepository,
	presence Registry,
	emitter Emitter,
	views *ViewBuilder,
) *Dispatcher {
	return &Dispatcher{
		conversations: conversations,
		participants:  participants,
		messages:      messages,
		presence:      presence,
		emitter:       emitter,
		views:         views,
	}
}

// SendMessage persists a new message and fans out the resulting events. Both
// the websocket send_message handler and the REST create-message handler call
// it; a persistence failure aborts before any event is emitted.
func (d *Dispatcher) SendMessage(ctx context.Context, senderID, conversationID int64, content domain.MessageContent) (*domain.Message, error) {
	if err := ValidateContent(content); err != nil {
		return nil, err
	}

	conv, err := d.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	isParticipant, err := d.participants.IsParticipant(ctx, conversationID, senderID)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !isParticipant {
		return nil, domain.ErrForbidden
	}

	participantIDs, err := d.participants.ParticipantIDs(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list participant ids: %w", err)
	}
	recipients := othersOf(participantIDs, senderID)

	count, err := d.messages.CountForConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	firstMessage := count == 0

	msg := &domain.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Status:         domain.StatusSent,
	}
	if len(recipients) == 0 {
		// Self-conversation: there is no one to deliver to, so the message is
		// born read.
		now := time.Now()
		msg.Status = domain.StatusRead
		msg.DeliveredAt = &now
		msg.ReadAt = &now
	}

	if err := d.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	d.emitter.ToConversation(conversationID, EventReceiveMessage, msg)

	if len(recipients) == 0 {
		d.emitter.ToUser(senderID, EventMessagesRead, ConversationRef{ConversationID: conversationID})
	} else {
		d.advanceOnCreate(ctx, conv.ID, msg, recipients)
	}

	d.pushViews(ctx, participantIDs, senderID, conversationID, firstMessage)
	return msg, nil
}

// HandleTyping relays a typing indicator to the conversation room, excluding
// the typist. Nothing is persisted.
func (d *Dispatcher) HandleTyping(userID int64, userName string, conversationID int64, typing bool) {
	event := EventUserTyping
	if !typing {
		event = EventUserStoppedTyping
	}
	d.emitter.ToConversationExcept(conversationID, userID, event, TypingPayload{
		ConversationID: conversationID,
		User:           TypingUser{ID: userID, Name: userName},
	})
}

// pushViews rebuilds and pushes each participant's conversation view. The
// first-ever message of a conversation arrives at the other participants as
// new_conversation_received.
func (d *Dispatcher) pushViews(ctx context.Context, participantIDs []int64, senderID, conversationID int64, firstMessage bool) {
	for _, pid := range participantIDs {
		view, err := d.views.Build(ctx, pid, conversationID)
		if err != nil {
			log.Printf("realtime: view for user %d conversation %d: %v", pid, conversationID, err)
			continue
		}
		event := EventConversationUpdated
		if firstMessage && pid != senderID {
			event = EventNewConversationReceived
		}
		d.emitter.ToUser(pid, event, view)
	}
}

// ValidateContent checks the content union for client-supplied messages.
func ValidateContent(c domain.MessageContent) error {
	switch c.Type {
	case domain.ContentText:
		if c.Message == "" {
			return fmt.Errorf("empty text message: %w", domain.ErrInvalidInput)
		}
	case domain.ContentImage, domain.ContentAudio, domain.ContentFile:
		if c.URL == nil || *c.URL == "" {
			return fmt.Errorf("%s content requires a url: %w", c.Type, domain.ErrInvalidInput)
		}
	default:
		// notification is reserved for server-written tombstones
		return fmt.Errorf("unsupported content type %q: %w", c.Type, domain.ErrInvalidInput)
	}
	if len([]rune(c.Message)) > 5000 {
		return fmt.Errorf("message exceeds 5000 characters: %w", domain.ErrInvalidInput)
	}
	return nil
}

func othersOf(ids []int64, self int64) []int64 {
	var others []int64
	for _, id := range ids {
		if id != self {
			others = append(others, id)
		}
	}
	return others
}

func countTransitions(to domain.MessageStatus, n int64) {
	if n > 0 {
		metrics.StatusTransitions.WithLabelValues(string(to)).Add(float64(n))
	}
}
