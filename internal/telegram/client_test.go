package telegram

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
	"github.com/luckysymb/telegram-bot-payment/internal/repository"
)

const chatID int64 = -100500

func memberQuery(userID int64) tgbotapi.GetChatMemberConfig {
	return tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	}
}

func tgMember(userID int64, username, status string) tgbotapi.ChatMember {
	return tgbotapi.ChatMember{
		User:   &tgbotapi.User{ID: userID, UserName: username, FirstName: "name"},
		Status: status,
	}
}

func record(userID int64, username, status string) *repository.Member {
	return &repository.Member{
		ChatID:    chatID,
		UserID:    userID,
		Username:  username,
		FirstName: "name",
		Status:    status,
	}
}

func newTestClient() (*MembershipClient, *MockBotAPI, *MockMemberRepository, *MockTransactor) {
	api := new(MockBotAPI)
	repo := new(MockMemberRepository)
	tx := new(MockTransactor)
	return NewMembershipClient(api).WithRepo(repo).WithTransactor(tx), api, repo, tx
}

func TestMembershipClient_GetMembers(t *testing.T) {
	t.Run("success: snapshot refreshed from telegram", func(t *testing.T) {
		client, api, repo, tx := newTestClient()

		repo.On("ListByChat", mock.Anything, chatID, activeStatuses).Return([]*repository.Member{
			record(1, "alice", "member"),
			record(2, "old_name", "member"),
			record(3, "carol", "member"),
		}, nil)

		api.On("GetChatMember", memberQuery(1)).Return(tgMember(1, "alice", "member"), nil)
		api.On("GetChatMember", memberQuery(2)).Return(tgMember(2, "new_name", "member"), nil)
		api.On("GetChatMember", memberQuery(3)).Return(tgMember(3, "carol", "left"), nil)

		tx.On("WithinTransaction", mock.Anything, mock.Anything).Return(nil)
		repo.On("Upsert", mock.Anything, mock.MatchedBy(func(m *repository.Member) bool {
			return m.UserID == 2 && m.Username == "new_name"
		})).Return(nil)
		repo.On("Upsert", mock.Anything, mock.MatchedBy(func(m *repository.Member) bool {
			return m.UserID == 3 && m.Status == "left"
		})).Return(nil)

		members, err := client.GetMembers(context.Background(), chatID)
		require.NoError(t, err)

		assert.Equal(t, []string{"alice", "new_name"}, members.Usernames())
		repo.AssertNumberOfCalls(t, "Upsert", 2)
		tx.AssertNumberOfCalls(t, "WithinTransaction", 1)
	})

	t.Run("success: nothing changed, no write", func(t *testing.T) {
		client, api, repo, tx := newTestClient()

		repo.On("ListByChat", mock.Anything, chatID, activeStatuses).Return([]*repository.Member{
			record(1, "alice", "member"),
		}, nil)
		api.On("GetChatMember", memberQuery(1)).Return(tgMember(1, "alice", "member"), nil)

		members, err := client.GetMembers(context.Background(), chatID)
		require.NoError(t, err)
		assert.Len(t, members, 1)

		tx.AssertNotCalled(t, "WithinTransaction", mock.Anything, mock.Anything)
	})

	t.Run("failure: telegram error", func(t *testing.T) {
		client, api, repo, _ := newTestClient()

		repo.On("ListByChat", mock.Anything, chatID, activeStatuses).Return([]*repository.Member{
			record(1, "alice", "member"),
		}, nil)
		api.On("GetChatMember", memberQuery(1)).Return(tgbotapi.ChatMember{}, errors.New("Bad Request: chat not found"))

		members, err := client.GetMembers(context.Background(), chatID)
		assert.Error(t, err)
		assert.Nil(t, members)
	})

	t.Run("success: unreachable members skipped", func(t *testing.T) {
		client, api, repo, tx := newTestClient()

		repo.On("ListByChat", mock.Anything, chatID, activeStatuses).Return([]*repository.Member{
			record(1, "alice", "member"),
			record(2, "deleted", "member"),
			record(3, "flaky", "member"),
			record(4, "dave", "member"),
		}, nil)

		api.On("GetChatMember", memberQuery(1)).Return(tgMember(1, "alice", "member"), nil)
		api.On("GetChatMember", memberQuery(2)).Return(tgbotapi.ChatMember{}, &tgbotapi.Error{Code: 400, Message: "Bad Request: user not found"})
		api.On("GetChatMember", memberQuery(3)).Return(tgbotapi.ChatMember{}, errors.New("i/o timeout"))
		api.On("GetChatMember", memberQuery(4)).Return(tgMember(4, "dave", "member"), nil)

		tx.On("WithinTransaction", mock.Anything, mock.Anything).Return(nil)
		repo.On("Upsert", mock.Anything, mock.MatchedBy(func(m *repository.Member) bool {
			return m.UserID == 2 && m.Status == "left" && m.Username == "deleted"
		})).Return(nil)

		members, err := client.GetMembers(context.Background(), chatID)
		require.NoError(t, err)

		assert.Equal(t, []string{"alice", "dave"}, members.Usernames())
		repo.AssertNumberOfCalls(t, "Upsert", 1)
		api.AssertNumberOfCalls(t, "GetChatMember", 4)
	})

	t.Run("success: only gone members", func(t *testing.T) {
		client, api, repo, tx := newTestClient()

		repo.On("ListByChat", mock.Anything, chatID, activeStatuses).Return([]*repository.Member{
			record(2, "deleted", "member"),
		}, nil)
		api.On("GetChatMember", memberQuery(2)).Return(tgbotapi.ChatMember{}, &tgbotapi.Error{Code: 400, Message: "Bad Request: PARTICIPANT_ID_INVALID"})
		tx.On("WithinTransaction", mock.Anything, mock.Anything).Return(nil)
		repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

		members, err := client.GetMembers(context.Background(), chatID)
		require.NoError(t, err)
		assert.Empty(t, members)
		repo.AssertNumberOfCalls(t, "Upsert", 1)
	})

	t.Run("failure: chat not found is not a gone member", func(t *testing.T) {
		client, api, repo, tx := newTestClient()

		repo.On("ListByChat", mock.Anything, chatID, activeStatuses).Return([]*repository.Member{
			record(1, "alice", "member"),
		}, nil)
		api.On("GetChatMember", memberQuery(1)).Return(tgbotapi.ChatMember{}, &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"})

		_, err := client.GetMembers(context.Background(), chatID)
		assert.Error(t, err)
		tx.AssertNotCalled(t, "WithinTransaction", mock.Anything, mock.Anything)
	})

	t.Run("success: lookups are paced", func(t *testing.T) {
		client, api, repo, _ := newTestClient()
		client.WithRequestDelay(15 * time.Millisecond)

		repo.On("ListByChat", mock.Anything, chatID, activeStatuses).Return([]*repository.Member{
			record(1, "alice", "member"),
			record(2, "bob", "member"),
			record(3, "carol", "member"),
		}, nil)

		var calls []time.Time
		for id, name := range map[int64]string{1: "alice", 2: "bob", 3: "carol"} {
			api.On("GetChatMember", memberQuery(id)).
				Run(func(mock.Arguments) { calls = append(calls, time.Now()) }).
				Return(tgMember(id, name, "member"), nil)
		}

		_, err := client.GetMembers(context.Background(), chatID)
		require.NoError(t, err)

		require.Len(t, calls, 3)
		for i := 1; i < len(calls); i++ {
			assert.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), 15*time.Millisecond)
		}
	})

	t.Run("failure: context cancelled while pacing", func(t *testing.T) {
		client, api, repo, _ := newTestClient()
		client.WithRequestDelay(time.Hour)

		repo.On("ListByChat", mock.Anything, chatID, activeStatuses).Return([]*repository.Member{
			record(1, "alice", "member"),
			record(2, "bob", "member"),
		}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		api.On("GetChatMember", memberQuery(1)).
			Run(func(mock.Arguments) { cancel() }).
			Return(tgMember(1, "alice", "member"), nil)

		_, err := client.GetMembers(ctx, chatID)
		assert.ErrorIs(t, err, context.Canceled)
		api.AssertNumberOfCalls(t, "GetChatMember", 1)
	})

	t.Run("failure: registry error", func(t *testing.T) {
		client, _, repo, _ := newTestClient()

		repo.On("ListByChat", mock.Anything, chatID, activeStatuses).Return(nil, errors.New("connection refused"))

		_, err := client.GetMembers(context.Background(), chatID)
		assert.Error(t, err)
	})
}

func TestMembershipClient_RemoveMember(t *testing.T) {
	isBan := mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		ban, ok := c.(tgbotapi.BanChatMemberConfig)
		return ok && ban.ChatID == chatID && ban.UserID == 7
	})
	isUnban := mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		unban, ok := c.(tgbotapi.UnbanChatMemberConfig)
		return ok && unban.OnlyIfBanned && unban.UserID == 7
	})

	tests := []struct {
		name          string
		setupMocks    func(*MockBotAPI, *MockMemberRepository)
		expectedError bool
	}{
		{
			name: "success: banned then unbanned",
			setupMocks: func(api *MockBotAPI, repo *MockMemberRepository) {
				api.On("Request", isBan).Return(&tgbotapi.APIResponse{Ok: true}, nil)
				api.On("Request", isUnban).Return(&tgbotapi.APIResponse{Ok: true}, nil)
				repo.On("SetStatus", mock.Anything, chatID, int64(7), "kicked").Return(nil)
			},
		},
		{
			name: "success: member was never tracked",
			setupMocks: func(api *MockBotAPI, repo *MockMemberRepository) {
				api.On("Request", isBan).Return(&tgbotapi.APIResponse{Ok: true}, nil)
				api.On("Request", isUnban).Return(&tgbotapi.APIResponse{Ok: true}, nil)
				repo.On("SetStatus", mock.Anything, chatID, int64(7), "kicked").Return(repository.ErrNotFound)
			},
		},
		{
			name: "failure: ban refused",
			setupMocks: func(api *MockBotAPI, repo *MockMemberRepository) {
				api.On("Request", isBan).Return(nil, errors.New("Bad Request: not enough rights"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, api, repo, _ := newTestClient()
			tt.setupMocks(api, repo)

			err := client.RemoveMember(context.Background(), chatID, 7)

			if tt.expectedError {
				assert.Error(t, err)
				repo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			} else {
				assert.NoError(t, err)
			}
			api.AssertExpectations(t)
			repo.AssertExpectations(t)
		})
	}
}

func TestToUser(t *testing.T) {
	tests := []struct {
		name     string
		user     *tgbotapi.User
		expected model.User
	}{
		{
			name:     "regular user",
			user:     &tgbotapi.User{ID: 1, UserName: "alice", FirstName: "Alice"},
			expected: model.User{ID: 1, Username: "alice", FirstName: "Alice"},
		},
		{
			name:     "bot",
			user:     &tgbotapi.User{ID: 2, UserName: "helper_bot", FirstName: "Helper", IsBot: true},
			expected: model.User{ID: 2, Username: "helper_bot", FirstName: "Helper", IsBot: true},
		},
		{
			// getChatMember payload for a deleted account:
			// {"user":{"id":3,"is_bot":false,"first_name":"Deleted Account"},"status":"member"}
			name:     "deleted account placeholder name",
			user:     &tgbotapi.User{ID: 3, FirstName: "Deleted Account"},
			expected: model.User{ID: 3, FirstName: "Deleted Account", IsDeleted: true},
		},
		{
			name:     "deleted account without name",
			user:     &tgbotapi.User{ID: 4},
			expected: model.User{ID: 4, IsDeleted: true},
		},
		{
			name:     "live user named like a deleted account",
			user:     &tgbotapi.User{ID: 5, UserName: "da", FirstName: "Deleted Account"},
			expected: model.User{ID: 5, Username: "da", FirstName: "Deleted Account"},
		},
		{
			name:     "live user without username",
			user:     &tgbotapi.User{ID: 6, FirstName: "Bob", LastName: "B"},
			expected: model.User{ID: 6, FirstName: "Bob"},
		},
		{
			name:     "no user",
			user:     nil,
			expected: model.User{IsDeleted: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToUser(tt.user))
		})
	}
}
