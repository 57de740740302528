package realtime_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"pesan/internal/domain"
)

// fakeEmitter records every outbound event in order and doubles as the room
// membership oracle.
type emittedEvent struct {
	Kind           string // "room", "roomExcept", "user"
	ConversationID int64
	UserID         int64
	Event          string
	Payload        any
}

type fakeEmitter struct {
	mu     sync.Mutex
	rooms  map[int64]map[int64]bool
	events []emittedEvent
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{rooms: make(map[int64]map[int64]bool)}
}

func (f *fakeEmitter) putInRoom(conversationID, userID int64) {
	if f.rooms[conversationID] == nil {
		f.rooms[conversationID] = make(map[int64]bool)
	}
	f.rooms[conversationID][userID] = true
}

func (f *fakeEmitter) ToConversation(conversationID int64, event string, payload any) {
	f.record(emittedEvent{Kind: "room", ConversationID: conversationID, Event: event, Payload: payload})
}

func (f *fakeEmitter) ToConversationExcept(conversationID, exceptUserID int64, event string, payload any) {
	f.record(emittedEvent{Kind: "roomExcept", ConversationID: conversationID, UserID: exceptUserID, Event: event, Payload: payload})
}

func (f *fakeEmitter) ToUser(userID int64, event string, payload any) {
	f.record(emittedEvent{Kind: "user", UserID: userID, Event: event, Payload: payload})
}

func (f *fakeEmitter) UserInRoom(conversationID, userID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms[conversationID][userID]
}

func (f *fakeEmitter) record(e emittedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeEmitter) byEvent(event string) []emittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emittedEvent
	for _, e := range f.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeEmitter) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

// fakeRegistry is a presence oracle with fixed answers.
type fakeRegistry struct {
	online map[int64]bool
}

func newFakeRegistry(onlineIDs ...int64) *fakeRegistry {
	online := make(map[int64]bool)
	for _, id := range onlineIDs {
		online[id] = true
	}
	return &fakeRegistry{online: online}
}

func (r *fakeRegistry) Register(userID int64, connID string) bool   { return false }
func (r *fakeRegistry) Unregister(userID int64, connID string) bool { return false }
func (r *fakeRegistry) IsOnline(userID int64) bool                  { return r.online[userID] }
func (r *fakeRegistry) ConnectionsOf(userID int64) []string         { return nil }

type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) Create(ctx context.Context, c *domain.Conversation, members []domain.Membership) error {
	args := m.Called(ctx, c, members)
	return args.Error(0)
}

func (m *MockConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) FindPrivateBetween(ctx context.Context, userA, userB int64) (*domain.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) ListIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type MockParticipantRepo struct {
	mock.Mock
}

func (m *MockParticipantRepo) ListParticipants(ctx context.Context, conversationID int64) ([]*domain.User, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockParticipantRepo) ParticipantIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockParticipantRepo) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockParticipantRepo) GetMembership(ctx context.Context, conversationID, userID int64) (*domain.Membership, error) {
	args := m.Called(ctx, conversationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *MockParticipantRepo) CoMemberIDs(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListForViewer(ctx context.Context, conversationID, viewerID int64, limit, offset int) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID, viewerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) CountForConversation(ctx context.Context, conversationID int64) (int64, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepo) UnreadCount(ctx context.Context, conversationID, viewerID int64) (int, error) {
	args := m.Called(ctx, conversationID, viewerID)
	return args.Int(0), args.Error(1)
}

func (m *MockMessageRepo) MarkDelivered(ctx context.Context, messageID int64) (bool, error) {
	args := m.Called(ctx, messageID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageRepo) MarkRead(ctx context.Context, messageID int64) (bool, error) {
	args := m.Called(ctx, messageID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageRepo) MarkDeliveredForRecipient(ctx context.Context, recipientID int64) ([]domain.StatusUpdate, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatusUpdate), args.Error(1)
}

func (m *MockMessageRepo) MarkConversationsDelivered(ctx context.Context, conversationIDs []int64, recipientID int64) (int64, error) {
	args := m.Called(ctx, conversationIDs, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepo) MarkConversationRead(ctx context.Context, conversationID, readerID int64, includeOwn bool) (int64, error) {
	args := m.Called(ctx, conversationID, readerID, includeOwn)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepo) UpdateContent(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) AddDisappearFor(ctx context.Context, messageID, userID int64) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

type MockContactRepo struct {
	mock.Mock
}

func (m *MockContactRepo) Create(ctx context.Context, c *domain.Contact) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContactRepo) ListForOwner(ctx context.Context, ownerID int64) ([]*domain.Contact, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Contact), args.Error(1)
}

func (m *MockContactRepo) GetByOwnerAndEmail(ctx context.Context, ownerID int64, email string) (*domain.Contact, error) {
	args := m.Called(ctx, ownerID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

func (m *MockContactRepo) Update(ctx context.Context, c *domain.Contact) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContactRepo) Delete(ctx context.Context, ownerID, contactID int64) error {
	args := m.Called(ctx, ownerID, contactID)
	return args.Error(0)
}
