package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/config"
	"github.com/luckysymb/telegram-bot-payment/internal/model"
	"github.com/luckysymb/telegram-bot-payment/internal/service"
	"github.com/luckysymb/telegram-bot-payment/internal/telegram"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

// Sender is the subset of *tgbotapi.BotAPI used to answer.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Tracker records the members the bot sees, since Telegram cannot list them.
type Tracker interface {
	Track(ctx context.Context, chatID int64, member model.ChatMember) error
}

type Handler struct {
	sender  Sender
	tracker Tracker

	authorized  map[string]struct{}
	support     config.SupportConfig
	checkOnJoin bool

	payments  *service.MembersPaymentService
	usernames *service.MembersUsernameService
	kicker    *service.MembersKicker
	checker   *service.PaymentCheckService
}

func NewHandler(sender Sender, cfg *config.Config) *Handler {
	authorized := make(map[string]struct{}, len(cfg.Bot.AuthorizedUsers))
	for _, u := range cfg.Bot.AuthorizedUsers {
		authorized[strings.TrimPrefix(u, "@")] = struct{}{}
	}

	return &Handler{
		sender:      sender,
		authorized:  authorized,
		support:     cfg.Support,
		checkOnJoin: cfg.Payment.CheckOnJoin,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.ChatMember != nil {
		h.handleMemberUpdate(ctx, upd.ChatMember)
		return
	}

	msg := upd.Message
	if msg == nil {
		return
	}

	if len(msg.NewChatMembers) > 0 {
		h.handleJoin(ctx, msg.Chat.ID, msg.NewChatMembers)
		return
	}
	if msg.LeftChatMember != nil {
		h.track(ctx, msg.Chat.ID, model.ChatMember{
			User:   telegram.ToUser(msg.LeftChatMember),
			Status: model.MemberStatusLeft,
		})
		return
	}

	if msg.From != nil && !msg.Chat.IsPrivate() {
		h.track(ctx, msg.Chat.ID, model.ChatMember{
			User:   telegram.ToUser(msg.From),
			Status: model.MemberStatusMember,
		})
	}

	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
	}
}

func (h *Handler) handleMemberUpdate(ctx context.Context, upd *tgbotapi.ChatMemberUpdated) {
	h.track(ctx, upd.Chat.ID, telegram.ToChatMember(upd.NewChatMember))
}

// handleJoin records new members and, when enabled, removes the ones whose payment expired.
func (h *Handler) handleJoin(ctx context.Context, chatID int64, users []tgbotapi.User) {
	l := logger.FromContext(ctx).With(zap.Int64("chat_id", chatID))

	for i := range users {
		member := model.ChatMember{
			User:   telegram.ToUser(&users[i]),
			Status: model.MemberStatusMember,
		}
		h.track(ctx, chatID, member)

		if !h.checkOnJoin {
			continue
		}

		kicked, err := h.kicker.KickSingleIfExpiredPayment(ctx, chatID, member)
		if err != nil {
			l.Error("join check failed", zap.Int64("user_id", member.User.ID), zap.String("code", string(err.Code)))
			continue
		}
		if kicked {
			h.reply(ctx, chatID, h.renderJoinKick(member))
		}
	}
}

func (h *Handler) track(ctx context.Context, chatID int64, member model.ChatMember) {
	if h.tracker == nil || member.User.IsBot {
		return
	}
	if err := h.tracker.Track(ctx, chatID, member); err != nil {
		logger.FromContext(ctx).Error("failed to track chat member",
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", member.User.ID),
			zap.Error(err))
	}
}

func (h *Handler) isAuthorized(u *tgbotapi.User) bool {
	if u == nil || u.UserName == "" {
		return false
	}
	_, ok := h.authorized[u.UserName]
	return ok
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := h.sender.Send(msg); err != nil {
		logger.FromContext(ctx).Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *Handler) WithTracker(t Tracker) *Handler {
	h.tracker = t
	return h
}

func (h *Handler) WithPaymentService(s *service.MembersPaymentService) *Handler {
	h.payments = s
	return h
}

func (h *Handler) WithUsernameService(s *service.MembersUsernameService) *Handler {
	h.usernames = s
	return h
}

func (h *Handler) WithKicker(k *service.MembersKicker) *Handler {
	h.kicker = k
	return h
}

func (h *Handler) WithPaymentCheckService(s *service.PaymentCheckService) *Handler {
	h.checker = s
	return h
}
