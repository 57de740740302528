package realtime

import (
	"context"
	"fmt"
	"log"

	"pesan/internal/domain"
)

// Status state machine triggers. A message moves sent -> delivered -> read,
// never backwards; every write below is conditional on the stored status, so
// racing triggers (reconnection vs. explicit ack) settle on a single
// transition and a single event.

// advanceOnCreate applies rule evaluation at message-creation time: when
// every recipient currently has the conversation open the message is read
// immediately; otherwise one live recipient connection is enough for
// delivered. The message's conversation cache is kept in lockstep by the
// repository.
func (d *Dispatcher) advanceOnCreate(ctx context.Context, conversationID int64, msg *domain.Message, recipients []int64) {
	inRoom := 0
	anyOnline := false
	for _, id := range recipients {
		if d.emitter.UserInRoom(conversationID, id) {
			inRoom++
		}
		if d.presence.IsOnline(id) {
			anyOnline = true
		}
	}

	if inRoom == len(recipients) {
		advanced, err := d.messages.MarkRead(ctx, msg.ID)
		if err != nil {
			log.Printf("realtime: mark read on create, message %d: %v", msg.ID, err)
			return
		}
		if advanced {
			msg.Status = domain.StatusRead
			countTransitions(domain.StatusRead, 1)
			d.emitter.ToUser(msg.SenderID, EventMessagesRead, ConversationRef{ConversationID: conversationID})
		}
		return
	}

	if anyOnline {
		advanced, err := d.messages.MarkDelivered(ctx, msg.ID)
		if err != nil {
			log.Printf("realtime: mark delivered on create, message %d: %v", msg.ID, err)
			return
		}
		if advanced {
			msg.Status = domain.StatusDelivered
			countTransitions(domain.StatusDelivered, 1)
			d.emitter.ToUser(msg.SenderID, EventMessagesDelivered, DeliveredPayload{
				Updates: map[int64][]int64{conversationID: {msg.ID}},
			})
		}
	}
}

// HandleConnect runs catch-up delivery for a user who just transitioned
// offline -> online, then broadcasts the presence edge. Every message
// addressed to the user that is still sent becomes delivered; the affected
// senders each get exactly one messages_delivered event carrying the full
// conversation -> message-ids map.
func (d *Dispatcher) HandleConnect(ctx context.Context, userID int64) {
	updates, err := d.messages.MarkDeliveredForRecipient(ctx, userID)
	if err != nil {
		log.Printf("realtime: catch-up delivery for user %d: %v", userID, err)
	} else if len(updates) > 0 {
		countTransitions(domain.StatusDelivered, int64(len(updates)))
		bySender := make(map[int64]map[int64][]int64)
		for _, u := range updates {
			byConv := bySender[u.SenderID]
			if byConv == nil {
				byConv = make(map[int64][]int64)
				bySender[u.SenderID] = byConv
			}
			byConv[u.ConversationID] = append(byConv[u.ConversationID], u.MessageID)
		}
		for senderID, byConv := range bySender {
			d.emitter.ToUser(senderID, EventMessagesDelivered, DeliveredPayload{Updates: byConv})
		}
	}

	d.broadcastPresence(ctx, userID, true)
}

// HandleDisconnect broadcasts the online -> offline presence edge. The
// caller only invokes it when the user's last connection closed.
func (d *Dispatcher) HandleDisconnect(ctx context.Context, userID int64) {
	d.broadcastPresence(ctx, userID, false)
}

func (d *Dispatcher) broadcastPresence(ctx context.Context, userID int64, online bool) {
	coMembers, err := d.participants.CoMemberIDs(ctx, userID)
	if err != nil {
		log.Printf("realtime: co-members of user %d: %v", userID, err)
		return
	}
	event := EventUserOnline
	if !online {
		event = EventUserOffline
	}
	for _, id := range coMembers {
		d.emitter.ToUser(id, event, PresencePayload{UserID: userID})
	}
}

// HandleJoinConversation runs the read-on-open re-evaluation when a user
// subscribes to a conversation room with unread messages.
func (d *Dispatcher) HandleJoinConversation(ctx context.Context, userID, conversationID int64) error {
	return d.HandleMarkRead(ctx, userID, conversationID)
}

// HandleMarkRead advances every message in the conversation authored by
// someone else and not yet read. Repeating the call is a no-op: zero rows
// modified means zero events.
func (d *Dispatcher) HandleMarkRead(ctx context.Context, userID, conversationID int64) error {
	participantIDs, err := d.participants.ParticipantIDs(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("list participant ids: %w", err)
	}
	if len(participantIDs) == 0 {
		return domain.ErrNotFound
	}
	if !containsID(participantIDs, userID) {
		return domain.ErrForbidden
	}

	selfOnly := len(participantIDs) == 1

	n, err := d.messages.MarkConversationRead(ctx, conversationID, userID, selfOnly)
	if err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}
	if n == 0 {
		return nil
	}
	countTransitions(domain.StatusRead, n)

	// Every participant's channel hears the ack, including the reader's own,
	// so their other devices converge.
	for _, pid := range participantIDs {
		d.emitter.ToUser(pid, EventMessagesRead, ConversationRef{ConversationID: conversationID})
	}
	return nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
