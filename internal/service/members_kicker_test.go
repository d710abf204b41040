package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
)

const testChatID int64 = -1001

func newKicker(testMode bool, loader *MockLoader, client *MockMembershipClient) *MembersKicker {
	payments := NewMembersPaymentService(time.UTC).
		WithLoader(loader).
		WithMembershipClient(client).
		WithClock(fixedNow(jan10))
	usernames := NewMembersUsernameService().WithMembershipClient(client)

	return NewMembersKicker(testMode).
		WithMembershipClient(client).
		WithPaymentService(payments).
		WithUsernameService(usernames).
		WithRemoveDelay(time.Millisecond)
}

func expiredFixture(loader *MockLoader, client *MockMembershipClient) {
	loader.On("LoadAll", mock.Anything).Return(newRoster(
		newPayment("alice", 2024, time.January, 10),
		newPayment("bob", 2024, time.January, 1),
	), nil)
	client.On("GetMembers", mock.Anything, testChatID).Return(model.ChatMembers{
		newMember(1, "alice"),
		newMember(2, "bob"),
		newMember(3, "carol"),
		newMember(4, ""),
	}, nil)
}

func TestMembersKicker_KickAllWithExpiredPayment(t *testing.T) {
	mockLoader := new(MockLoader)
	mockClient := new(MockMembershipClient)
	expiredFixture(mockLoader, mockClient)
	mockClient.On("RemoveMember", mock.Anything, testChatID, mock.AnythingOfType("int64")).Return(nil)

	report, err := newKicker(false, mockLoader, mockClient).KickAllWithExpiredPayment(context.Background(), testChatID)

	require.Nil(t, err)
	assert.False(t, report.DryRun)
	assert.Len(t, report.Candidates, 3)
	assert.Equal(t, report.Candidates, report.Removed)
	assert.Empty(t, report.Pending)
	assert.Nil(t, report.Failed)

	mockClient.AssertNumberOfCalls(t, "RemoveMember", 3)
	mockClient.AssertNotCalled(t, "RemoveMember", mock.Anything, testChatID, int64(1))
}

func TestMembersKicker_TestModeRemovesNobody(t *testing.T) {
	live := func() *model.KickReport {
		mockLoader := new(MockLoader)
		mockClient := new(MockMembershipClient)
		expiredFixture(mockLoader, mockClient)
		mockClient.On("RemoveMember", mock.Anything, testChatID, mock.AnythingOfType("int64")).Return(nil)

		report, err := newKicker(false, mockLoader, mockClient).KickAllWithExpiredPayment(context.Background(), testChatID)
		require.Nil(t, err)
		return report
	}()

	mockLoader := new(MockLoader)
	mockClient := new(MockMembershipClient)
	expiredFixture(mockLoader, mockClient)

	ctx, logs := observedContext()
	report, err := newKicker(true, mockLoader, mockClient).KickAllWithExpiredPayment(ctx, testChatID)

	require.Nil(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, live.Candidates, report.Candidates)
	assert.Empty(t, report.Removed)
	assert.Empty(t, report.Pending)
	mockClient.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)

	assert.Equal(t, 3, logs.FilterMessage("test mode ON: no member was kicked").Len())
}

func TestMembersKicker_PausesBetweenRemovals(t *testing.T) {
	const delay = 10 * time.Millisecond

	mockLoader := new(MockLoader)
	mockClient := new(MockMembershipClient)
	expiredFixture(mockLoader, mockClient)

	var (
		mu    sync.Mutex
		calls []time.Time
	)
	mockClient.On("RemoveMember", mock.Anything, testChatID, mock.AnythingOfType("int64")).
		Run(func(mock.Arguments) {
			mu.Lock()
			calls = append(calls, time.Now())
			mu.Unlock()
		}).
		Return(nil)

	kicker := newKicker(false, mockLoader, mockClient).WithRemoveDelay(delay)
	_, err := kicker.KickAllWithExpiredPayment(context.Background(), testChatID)
	require.Nil(t, err)

	require.Len(t, calls, 3)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), delay)
	}
}

func TestMembersKicker_AbortsOnFirstFailure(t *testing.T) {
	mockLoader := new(MockLoader)
	mockClient := new(MockMembershipClient)
	expiredFixture(mockLoader, mockClient)

	mockClient.On("RemoveMember", mock.Anything, testChatID, int64(2)).Return(nil)
	mockClient.On("RemoveMember", mock.Anything, testChatID, int64(3)).Return(errors.New("not enough rights"))

	report, err := newKicker(false, mockLoader, mockClient).KickAllWithExpiredPayment(context.Background(), testChatID)

	require.NotNil(t, err)
	assert.Equal(t, ErrorCodeRemovalFailed, err.Code)

	require.NotNil(t, report)
	assert.Equal(t, []int64{2}, memberIDs(report.Removed))
	require.NotNil(t, report.Failed)
	assert.Equal(t, int64(3), report.Failed.User.ID)
	assert.Equal(t, []int64{4}, memberIDs(report.Pending))

	mockClient.AssertNotCalled(t, "RemoveMember", mock.Anything, testChatID, int64(4))
}

func TestMembersKicker_KickAllWithExpiredPayment_Failures(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*MockLoader, *MockMembershipClient)
		errorCode  ErrorCode
	}{
		{
			name: "failure: unexpected loader error",
			setupMocks: func(l *MockLoader, c *MockMembershipClient) {
				l.On("LoadAll", mock.Anything).Return(nil, errors.New("boom"))
			},
			errorCode: ErrorCodeUnspecified,
		},
		{
			name: "failure: members unavailable",
			setupMocks: func(l *MockLoader, c *MockMembershipClient) {
				l.On("LoadAll", mock.Anything).Return(model.NewRoster(), nil)
				c.On("GetMembers", mock.Anything, testChatID).Return(nil, errors.New("forbidden"))
			},
			errorCode: ErrorCodeMembersUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLoader := new(MockLoader)
			mockClient := new(MockMembershipClient)
			tt.setupMocks(mockLoader, mockClient)

			report, err := newKicker(false, mockLoader, mockClient).KickAllWithExpiredPayment(context.Background(), testChatID)

			require.NotNil(t, err)
			assert.Equal(t, tt.errorCode, err.Code)
			assert.Nil(t, report)
			mockClient.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestMembersKicker_KickAllWithNoUsername(t *testing.T) {
	mockLoader := new(MockLoader)
	mockClient := new(MockMembershipClient)

	bot := newMember(9, "")
	bot.User.IsBot = true

	mockClient.On("GetMembers", mock.Anything, testChatID).Return(model.ChatMembers{
		newMember(1, "alice"),
		newMember(2, ""),
		bot,
	}, nil)
	mockClient.On("RemoveMember", mock.Anything, testChatID, int64(2)).Return(nil)

	report, err := newKicker(false, mockLoader, mockClient).KickAllWithNoUsername(context.Background(), testChatID)

	require.Nil(t, err)
	assert.Equal(t, []int64{2}, memberIDs(report.Removed))
	mockClient.AssertNumberOfCalls(t, "RemoveMember", 1)
	mockLoader.AssertNotCalled(t, "LoadAll", mock.Anything)
}

func TestMembersKicker_NothingToKick(t *testing.T) {
	mockLoader := new(MockLoader)
	mockClient := new(MockMembershipClient)
	mockClient.On("GetMembers", mock.Anything, testChatID).Return(model.ChatMembers{newMember(1, "alice")}, nil)

	report, err := newKicker(false, mockLoader, mockClient).KickAllWithNoUsername(context.Background(), testChatID)

	require.Nil(t, err)
	assert.Empty(t, report.Candidates)
	assert.NotNil(t, report.Removed)
	mockClient.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestMembersKicker_KickSingleIfExpiredPayment(t *testing.T) {
	tests := []struct {
		name          string
		testMode      bool
		member        model.ChatMember
		setupMocks    func(*MockLoader, *MockMembershipClient)
		expectedKick  bool
		expectRemove  bool
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:   "success: paid member stays",
			member: newMember(1, "alice"),
			setupMocks: func(l *MockLoader, c *MockMembershipClient) {
				l.On("LoadSingleByUsername", mock.Anything, "alice").Return(newPayment("alice", 2024, time.February, 1), nil)
			},
		},
		{
			name:   "success: expired member kicked",
			member: newMember(2, "bob"),
			setupMocks: func(l *MockLoader, c *MockMembershipClient) {
				l.On("LoadSingleByUsername", mock.Anything, "bob").Return(newPayment("bob", 2023, time.February, 1), nil)
				c.On("RemoveMember", mock.Anything, testChatID, int64(2)).Return(nil)
			},
			expectedKick: true,
			expectRemove: true,
		},
		{
			name:     "success: test mode reports without kicking",
			testMode: true,
			member:   newMember(3, "carol"),
			setupMocks: func(l *MockLoader, c *MockMembershipClient) {
				l.On("LoadSingleByUsername", mock.Anything, "carol").Return(nil, nil)
			},
			expectedKick: true,
		},
		{
			name:   "failure: removal refused",
			member: newMember(4, "dave"),
			setupMocks: func(l *MockLoader, c *MockMembershipClient) {
				l.On("LoadSingleByUsername", mock.Anything, "dave").Return(nil, nil)
				c.On("RemoveMember", mock.Anything, testChatID, int64(4)).Return(errors.New("forbidden"))
			},
			expectedKick:  true,
			expectRemove:  true,
			expectedError: true,
			errorCode:     ErrorCodeRemovalFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLoader := new(MockLoader)
			mockClient := new(MockMembershipClient)
			tt.setupMocks(mockLoader, mockClient)

			kicked, err := newKicker(tt.testMode, mockLoader, mockClient).
				KickSingleIfExpiredPayment(context.Background(), testChatID, tt.member)

			assert.Equal(t, tt.expectedKick, kicked)
			if tt.expectedError {
				require.NotNil(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
			} else {
				assert.Nil(t, err)
			}

			if tt.expectRemove {
				mockClient.AssertCalled(t, "RemoveMember", mock.Anything, testChatID, tt.member.User.ID)
			} else {
				mockClient.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
			}
			mockLoader.AssertExpectations(t)
		})
	}
}

func TestMembersKicker_KickSingleIfNoUsername(t *testing.T) {
	mockClient := new(MockMembershipClient)
	mockClient.On("RemoveMember", mock.Anything, testChatID, int64(2)).Return(nil)

	kicker := newKicker(false, new(MockLoader), mockClient)

	kicked, err := kicker.KickSingleIfNoUsername(context.Background(), testChatID, newMember(1, "alice"))
	assert.Nil(t, err)
	assert.False(t, kicked)

	kicked, err = kicker.KickSingleIfNoUsername(context.Background(), testChatID, newMember(2, ""))
	assert.Nil(t, err)
	assert.True(t, kicked)

	mockClient.AssertNumberOfCalls(t, "RemoveMember", 1)
}

func memberIDs(members model.ChatMembers) []int64 {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.User.ID)
	}
	return ids
}
