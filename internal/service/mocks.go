package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
)

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context) (*model.Roster, model.RosterErrors, error) {
	args := m.Called(ctx)
	var (
		roster     *model.Roster
		rosterErrs model.RosterErrors
	)
	if args.Get(0) != nil {
		roster = args.Get(0).(*model.Roster)
	}
	if args.Get(1) != nil {
		rosterErrs = args.Get(1).(model.RosterErrors)
	}
	return roster, rosterErrs, args.Error(2)
}

func (m *MockLoader) LoadAll(ctx context.Context) (*model.Roster, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Roster), args.Error(1)
}

func (m *MockLoader) LoadSingleByUsername(ctx context.Context, username string) (*model.Payment, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockLoader) CheckForErrors(ctx context.Context) (model.RosterErrors, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.RosterErrors), args.Error(1)
}

type MockMembershipClient struct {
	mock.Mock
}

func (m *MockMembershipClient) GetMembers(ctx context.Context, chatID int64) (model.ChatMembers, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.ChatMembers), args.Error(1)
}

func (m *MockMembershipClient) RemoveMember(ctx context.Context, chatID int64, userID int64) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendMail(to, subject, body string) error {
	args := m.Called(to, subject, body)
	return args.Error(0)
}
