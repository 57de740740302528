package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pesan/internal/domain"
	"pesan/internal/realtime"
	"pesan/internal/service"
)

type stubRegistry struct{}

func (stubRegistry) Register(userID int64, connID string) bool   { return false }
func (stubRegistry) Unregister(userID int64, connID string) bool { return false }
func (stubRegistry) IsOnline(userID int64) bool                  { return false }
func (stubRegistry) ConnectionsOf(userID int64) []string         { return nil }

type convFixture struct {
	users    *MockUserRepo
	contacts *MockContactRepo
	convs    *MockConversationRepo
	parts    *MockParticipantRepo
	msgs     *MockMessageRepo
	svc      *service.ConversationService
}

func newConvFixture() *convFixture {
	f := &convFixture{
		users:    new(MockUserRepo),
		contacts: new(MockContactRepo),
		convs:    new(MockConversationRepo),
		parts:    new(MockParticipantRepo),
		msgs:     new(MockMessageRepo),
	}
	views := realtime.NewViewBuilder(f.contacts, f.convs, f.parts, f.msgs, stubRegistry{})
	f.svc = service.NewConversationService(f.convs, f.parts, f.users, views)
	return f
}

func TestCreatePrivateDedupe(t *testing.T) {
	f := newConvFixture()

	alice := &domain.User{ID: 1, Name: "alice", Email: "alice@example.com"}
	bob := &domain.User{ID: 2, Name: "bob", Email: "bob@example.com"}
	f.users.On("GetByIDs", mock.Anything, []int64{1, 2}).Return([]*domain.User{alice, bob}, nil)

	existing := &domain.Conversation{ID: 10, IsGroup: false}
	f.convs.On("FindPrivateBetween", mock.Anything, int64(1), int64(2)).Return(existing, nil)
	f.convs.On("GetByID", mock.Anything, int64(10)).Return(existing, nil)
	f.msgs.On("UnreadCount", mock.Anything, int64(10), int64(1)).Return(0, nil)
	f.parts.On("ListParticipants", mock.Anything, int64(10)).Return([]*domain.User{alice, bob}, nil)
	f.contacts.On("GetByOwnerAndEmail", mock.Anything, int64(1), "bob@example.com").Return(nil, domain.ErrNotFound)

	view, err := f.svc.CreateConversation(context.Background(), 1, service.ConversationCreateInput{
		ParticipantIDs: []int64{2},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(10), view.ConversationID)
	// The existing conversation is reused, never duplicated.
	f.convs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateGroupAssignsRoles(t *testing.T) {
	f := newConvFixture()

	members := []*domain.User{{ID: 1}, {ID: 2}, {ID: 3}}
	f.users.On("GetByIDs", mock.Anything, []int64{1, 2, 3}).Return(members, nil)

	f.convs.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
		return c.IsGroup && c.CreatedBy == 1
	}), mock.MatchedBy(func(ms []domain.Membership) bool {
		if len(ms) != 3 {
			return false
		}
		for _, m := range ms {
			want := domain.RoleMember
			if m.UserID == 1 {
				want = domain.RoleAdmin
			}
			if m.Role == nil || *m.Role != want {
				return false
			}
		}
		return true
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Conversation).ID = 11
	}).Return(nil)

	name := "team"
	conv := &domain.Conversation{ID: 11, IsGroup: true, Name: &name}
	f.convs.On("GetByID", mock.Anything, int64(11)).Return(conv, nil)
	f.msgs.On("UnreadCount", mock.Anything, int64(11), int64(1)).Return(0, nil)
	f.parts.On("ListParticipants", mock.Anything, int64(11)).Return(members, nil)
	role := domain.RoleAdmin
	f.parts.On("GetMembership", mock.Anything, int64(11), int64(1)).
		Return(&domain.Membership{UserID: 1, Role: &role}, nil)

	view, err := f.svc.CreateConversation(context.Background(), 1, service.ConversationCreateInput{
		IsGroup:        true,
		Name:           &name,
		ParticipantIDs: []int64{2, 3, 2}, // duplicates collapse
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, view.MemberCount)
	assert.Equal(t, domain.RoleAdmin, *view.Role)
	f.convs.AssertNotCalled(t, "FindPrivateBetween", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePrivateRejectsThirdParticipant(t *testing.T) {
	f := newConvFixture()

	_, err := f.svc.CreateConversation(context.Background(), 1, service.ConversationCreateInput{
		ParticipantIDs: []int64{2, 3},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateGroupRequiresName(t *testing.T) {
	f := newConvFixture()

	_, err := f.svc.CreateConversation(context.Background(), 1, service.ConversationCreateInput{
		IsGroup:        true,
		ParticipantIDs: []int64{2, 3},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateUnknownParticipant(t *testing.T) {
	f := newConvFixture()

	f.users.On("GetByIDs", mock.Anything, []int64{1, 99}).Return([]*domain.User{{ID: 1}}, nil)

	_, err := f.svc.CreateConversation(context.Background(), 1, service.ConversationCreateInput{
		ParticipantIDs: []int64{99},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetForUserRequiresMembership(t *testing.T) {
	f := newConvFixture()

	f.parts.On("IsParticipant", mock.Anything, int64(10), int64(9)).Return(false, nil)

	_, err := f.svc.GetForUser(context.Background(), 9, 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
