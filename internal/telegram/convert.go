package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
	"github.com/luckysymb/telegram-bot-payment/internal/repository"
)

// deletedAccountName is the name Telegram gives a deleted account.
const deletedAccountName = "Deleted Account"

// ToUser converts a Telegram user.
func ToUser(u *tgbotapi.User) model.User {
	if u == nil {
		return model.User{IsDeleted: true}
	}
	return model.User{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		IsBot:     u.IsBot,
		IsDeleted: isDeletedAccount(u),
	}
}

// isDeletedAccount tells deleted accounts apart, the Bot API has no flag for
// them. A deleted account keeps its id, has no username or last name, and its
// first name is "Deleted Account" or empty. Live accounts always have a first name.
func isDeletedAccount(u *tgbotapi.User) bool {
	if u.UserName != "" || u.LastName != "" {
		return false
	}
	return u.FirstName == "" || u.FirstName == deletedAccountName
}

func ToChatMember(cm tgbotapi.ChatMember) model.ChatMember {
	return model.ChatMember{
		User:   ToUser(cm.User),
		Status: model.MemberStatus(cm.Status),
	}
}

func toRecord(chatID int64, m model.ChatMember) *repository.Member {
	return &repository.Member{
		ChatID:    chatID,
		UserID:    m.User.ID,
		Username:  m.User.Username,
		FirstName: m.User.FirstName,
		IsBot:     m.User.IsBot,
		Status:    string(m.Status),
	}
}
