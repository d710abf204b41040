package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"

	"github.com/luckysymb/telegram-bot-payment/internal/repository"
)

type MockBotAPI struct {
	mock.Mock
}

func (m *MockBotAPI) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.ChatMember), args.Error(1)
}

func (m *MockBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Upsert(ctx context.Context, member *repository.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) ListByChat(ctx context.Context, chatID int64, statuses ...string) ([]*repository.Member, error) {
	args := m.Called(ctx, chatID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Member), args.Error(1)
}

func (m *MockMemberRepository) SetStatus(ctx context.Context, chatID, userID int64, status string) error {
	args := m.Called(ctx, chatID, userID, status)
	return args.Error(0)
}

type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}
