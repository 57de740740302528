package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pesan/internal/domain"
	"pesan/internal/service"
)

func textMessage(id, senderID int64, age time.Duration) *domain.Message {
	return &domain.Message{
		ID:             id,
		ConversationID: 10,
		SenderID:       senderID,
		Content:        domain.MessageContent{Type: domain.ContentText, Message: "original"},
		Status:         domain.StatusDelivered,
		CreatedAt:      time.Now().Add(-age),
	}
}

func TestEditMessage(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		parts := new(MockParticipantRepo)
		msgs := new(MockMessageRepo)
		svc := service.NewMessageService(parts, msgs, 50)

		msgs.On("GetByID", mock.Anything, int64(5)).Return(textMessage(5, 1, time.Minute), nil)
		msgs.On("UpdateContent", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.IsEdited && m.Content.Message == "fixed"
		})).Return(nil)

		msg, err := svc.EditMessage(context.Background(), 1, 5, "fixed")
		assert.NoError(t, err)
		assert.True(t, msg.IsEdited)
		assert.Equal(t, "fixed", msg.Content.Message)
	})

	t.Run("NotOwner", func(t *testing.T) {
		parts := new(MockParticipantRepo)
		msgs := new(MockMessageRepo)
		svc := service.NewMessageService(parts, msgs, 50)

		msgs.On("GetByID", mock.Anything, int64(5)).Return(textMessage(5, 2, time.Minute), nil)

		_, err := svc.EditMessage(context.Background(), 1, 5, "fixed")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		msgs.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything)
	})

	t.Run("WindowExpired", func(t *testing.T) {
		parts := new(MockParticipantRepo)
		msgs := new(MockMessageRepo)
		svc := service.NewMessageService(parts, msgs, 50)

		msgs.On("GetByID", mock.Anything, int64(5)).Return(textMessage(5, 1, 16*time.Minute), nil)

		_, err := svc.EditMessage(context.Background(), 1, 5, "fixed")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("MediaNotEditable", func(t *testing.T) {
		parts := new(MockParticipantRepo)
		msgs := new(MockMessageRepo)
		svc := service.NewMessageService(parts, msgs, 50)

		url := "/api/uploads/x.png"
		media := textMessage(5, 1, time.Minute)
		media.Content = domain.MessageContent{Type: domain.ContentImage, URL: &url}
		msgs.On("GetByID", mock.Anything, int64(5)).Return(media, nil)

		_, err := svc.EditMessage(context.Background(), 1, 5, "caption")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("AlreadyDeleted", func(t *testing.T) {
		parts := new(MockParticipantRepo)
		msgs := new(MockMessageRepo)
		svc := service.NewMessageService(parts, msgs, 50)

		deleted := textMessage(5, 1, time.Minute)
		deleted.DisappearForAll = true
		msgs.On("GetByID", mock.Anything, int64(5)).Return(deleted, nil)

		_, err := svc.EditMessage(context.Background(), 1, 5, "fixed")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestDeleteForEveryone(t *testing.T) {
	t.Run("Tombstone", func(t *testing.T) {
		parts := new(MockParticipantRepo)
		msgs := new(MockMessageRepo)
		svc := service.NewMessageService(parts, msgs, 50)

		msgs.On("GetByID", mock.Anything, int64(5)).Return(textMessage(5, 1, time.Minute), nil)
		msgs.On("UpdateContent", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.DisappearForAll && m.Content.Type == domain.ContentNotification
		})).Return(nil)

		msg, err := svc.DeleteForEveryone(context.Background(), 1, 5)
		assert.NoError(t, err)
		assert.True(t, msg.DisappearForAll)
		assert.Equal(t, domain.TombstoneContent(), msg.Content)
	})

	t.Run("WindowExpired", func(t *testing.T) {
		parts := new(MockParticipantRepo)
		msgs := new(MockMessageRepo)
		svc := service.NewMessageService(parts, msgs, 50)

		msgs.On("GetByID", mock.Anything, int64(5)).Return(textMessage(5, 1, time.Hour), nil)

		_, err := svc.DeleteForEveryone(context.Background(), 1, 5)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("NotOwner", func(t *testing.T) {
		parts := new(MockParticipantRepo)
		msgs := new(MockMessageRepo)
		svc := service.NewMessageService(parts, msgs, 50)

		msgs.On("GetByID", mock.Anything, int64(5)).Return(textMessage(5, 2, time.Minute), nil)

		_, err := svc.DeleteForEveryone(context.Background(), 1, 5)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestDeleteForMe(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		parts := new(MockParticipantRepo)
		msgs := new(MockMessageRepo)
		svc := service.NewMessageService(parts, msgs, 50)

		// Delete-for-me works on anyone's message, any age.
		msgs.On("GetByID", mock.Anything, int64(5)).Return(textMessage(5, 2, time.Hour), nil)
		parts.On("IsParticipant", mock.Anything, int64(10), int64(1)).Return(true, nil)
		msgs.On("AddDisappearFor", mock.Anything, int64(5), int64(1)).Return(nil)

		err := svc.DeleteForMe(context.Background(), 1, 5)
		assert.NoError(t, err)
		msgs.AssertExpectations(t)
	})

	t.Run("NotParticipant", func(t *testing.T) {
		parts := new(MockParticipantRepo)
		msgs := new(MockMessageRepo)
		svc := service.NewMessageService(parts, msgs, 50)

		msgs.On("GetByID", mock.Anything, int64(5)).Return(textMessage(5, 2, time.Hour), nil)
		parts.On("IsParticipant", mock.Anything, int64(10), int64(9)).Return(false, nil)

		err := svc.DeleteForMe(context.Background(), 9, 5)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		msgs.AssertNotCalled(t, "AddDisappearFor", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestListMessagesChronological(t *testing.T) {
	parts := new(MockParticipantRepo)
	msgs := new(MockMessageRepo)
	svc := service.NewMessageService(parts, msgs, 50)

	parts.On("IsParticipant", mock.Anything, int64(10), int64(1)).Return(true, nil)
	// Store returns newest first.
	msgs.On("ListForViewer", mock.Anything, int64(10), int64(1), 50, 0).Return([]*domain.Message{
		{ID: 3}, {ID: 2}, {ID: 1},
	}, nil)

	out, err := svc.ListMessages(context.Background(), 10, 1, 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), out[0].ID)
	assert.Equal(t, int64(3), out[2].ID)
}

func TestListMessagesForbidden(t *testing.T) {
	parts := new(MockParticipantRepo)
	msgs := new(MockMessageRepo)
	svc := service.NewMessageService(parts, msgs, 50)

	parts.On("IsParticipant", mock.Anything, int64(10), int64(9)).Return(false, nil)

	_, err := svc.ListMessages(context.Background(), 10, 9, 0, 0)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestMarkConversationsDeliveredEmpty(t *testing.T) {
	parts := new(MockParticipantRepo)
	msgs := new(MockMessageRepo)
	svc := service.NewMessageService(parts, msgs, 50)

	n, err := svc.MarkConversationsDelivered(context.Background(), nil, 1)
	assert.NoError(t, err)
	assert.Zero(t, n)
	msgs.AssertNotCalled(t, "MarkConversationsDelivered", mock.Anything, mock.Anything, mock.Anything)
}
