package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

// Texts returns the text of every message sent so far.
func (m *MockSender) Texts() []string {
	texts := make([]string, 0, len(m.Calls))
	for _, call := range m.Calls {
		if msg, ok := call.Arguments.Get(0).(tgbotapi.MessageConfig); ok {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) Track(ctx context.Context, chatID int64, member model.ChatMember) error {
	args := m.Called(ctx, chatID, member)
	return args.Error(0)
}
