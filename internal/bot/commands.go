package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
	"github.com/luckysymb/telegram-bot-payment/internal/service"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

const defaultExpiringDays = 7

const (
	cmdHelp                 = "help"
	cmdCheckPaymentsData    = "check_payments_data"
	cmdCheckPayment         = "check_payment"
	cmdShowExpiredMembers   = "show_expired_members"
	cmdShowPaidMembers      = "show_paid_members"
	cmdRemoveExpiredMembers = "remove_expired_members"
	cmdShowNoUsername       = "show_no_username"
	cmdRemoveNoUsername     = "remove_no_username"
	cmdShowExpiring         = "show_expiring"
	cmdEmailExpiring        = "email_expiring"
)

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	l := logger.FromContext(ctx).With(
		zap.String("command", msg.Command()),
		zap.Int64("chat_id", msg.Chat.ID))

	// commands from unknown users are ignored
	if !h.isAuthorized(msg.From) {
		l.Warn("unauthorized command")
		return
	}

	l.Info("command received", zap.String("from", msg.From.UserName))
	ctx = logger.WithLogger(ctx, l)

	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case cmdHelp:
		h.reply(ctx, chatID, helpText)
	case cmdCheckPaymentsData:
		h.handleCheckPaymentsData(ctx, chatID)
	case cmdCheckPayment:
		h.handleCheckPayment(ctx, chatID, args)
	case cmdShowExpiredMembers:
		h.withTargetChat(ctx, msg, args, h.handleShowExpiredMembers)
	case cmdShowPaidMembers:
		h.withTargetChat(ctx, msg, args, h.handleShowPaidMembers)
	case cmdRemoveExpiredMembers:
		h.withTargetChat(ctx, msg, args, h.handleRemoveExpiredMembers)
	case cmdShowNoUsername:
		h.withTargetChat(ctx, msg, args, h.handleShowNoUsername)
	case cmdRemoveNoUsername:
		h.withTargetChat(ctx, msg, args, h.handleRemoveNoUsername)
	case cmdShowExpiring:
		h.withDays(ctx, chatID, args, h.handleShowExpiring)
	case cmdEmailExpiring:
		h.withDays(ctx, chatID, args, h.handleEmailExpiring)
	default:
		h.reply(ctx, chatID, "Unknown command, see /help")
	}
}

// withTargetChat runs fn on the chat given as argument, or on the current
// group when there is none.
func (h *Handler) withTargetChat(ctx context.Context, msg *tgbotapi.Message, args string, fn func(ctx context.Context, replyTo, target int64)) {
	if args != "" {
		target, err := strconv.ParseInt(args, 10, 64)
		if err != nil {
			h.reply(ctx, msg.Chat.ID, "Invalid chat id: "+args)
			return
		}
		fn(ctx, msg.Chat.ID, target)
		return
	}

	if msg.Chat.IsPrivate() {
		h.reply(ctx, msg.Chat.ID, "This command needs a group: send it in the group or pass the group chat id")
		return
	}
	fn(ctx, msg.Chat.ID, msg.Chat.ID)
}

func (h *Handler) withDays(ctx context.Context, chatID int64, args string, fn func(ctx context.Context, chatID int64, days int)) {
	days := defaultExpiringDays
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n < 0 {
			h.reply(ctx, chatID, "Invalid number of days: "+args)
			return
		}
		days = n
	}
	fn(ctx, chatID, days)
}

func (h *Handler) handleCheckPaymentsData(ctx context.Context, chatID int64) {
	rosterErrs, err := h.checker.CheckPaymentsData(ctx)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	h.reply(ctx, chatID, renderRosterErrors(rosterErrs))
}

func (h *Handler) handleCheckPayment(ctx context.Context, chatID int64, username string) {
	if username == "" {
		h.reply(ctx, chatID, "Usage: /check_payment <username>")
		return
	}

	p, err := h.checker.CheckUserPayment(ctx, username)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	h.reply(ctx, chatID, renderPayment(p, h.checker.Today()))
}

func (h *Handler) handleShowExpiredMembers(ctx context.Context, replyTo, target int64) {
	members, err := h.payments.GetAllMembersWithExpiredPayment(ctx, target)
	if err != nil {
		h.replyError(ctx, replyTo, err)
		return
	}
	h.reply(ctx, replyTo, renderMembers("Members with expired payment", members))
}

func (h *Handler) handleShowPaidMembers(ctx context.Context, replyTo, target int64) {
	members, err := h.payments.GetAllMembersWithOkPayment(ctx, target)
	if err != nil {
		h.replyError(ctx, replyTo, err)
		return
	}
	h.reply(ctx, replyTo, renderMembers("Members with valid payment", members))
}

func (h *Handler) handleRemoveExpiredMembers(ctx context.Context, replyTo, target int64) {
	report, err := h.kicker.KickAllWithExpiredPayment(ctx, target)
	h.replyReport(ctx, replyTo, "expired payment", report, err)
}

func (h *Handler) handleShowNoUsername(ctx context.Context, replyTo, target int64) {
	members, err := h.usernames.GetAllWithNoUsername(ctx, target)
	if err != nil {
		h.replyError(ctx, replyTo, err)
		return
	}
	h.reply(ctx, replyTo, renderMembers("Members without username", members))
}

func (h *Handler) handleRemoveNoUsername(ctx context.Context, replyTo, target int64) {
	report, err := h.kicker.KickAllWithNoUsername(ctx, target)
	h.replyReport(ctx, replyTo, "no username", report, err)
}

func (h *Handler) handleShowExpiring(ctx context.Context, chatID int64, days int) {
	payments, err := h.checker.ExpiringPayments(ctx, days)
	if err != nil {
		h.replyError(ctx, chatID, err)
		return
	}
	h.reply(ctx, chatID, renderExpiring(days, payments))
}

func (h *Handler) handleEmailExpiring(ctx context.Context, chatID int64, days int) {
	sent, err := h.checker.EmailExpiringPayments(ctx, days)
	if err != nil && err.Code != service.ErrorCodeEmailFailed {
		h.replyError(ctx, chatID, err)
		return
	}
	h.reply(ctx, chatID, renderEmailsSent(sent, err))
}

func (h *Handler) replyReport(ctx context.Context, chatID int64, reason string, report *model.KickReport, err *service.Error) {
	if report == nil {
		h.replyError(ctx, chatID, err)
		return
	}
	h.reply(ctx, chatID, renderKickReport(reason, report, err))
}

func (h *Handler) replyError(ctx context.Context, chatID int64, err *service.Error) {
	h.reply(ctx, chatID, renderError(err))
}
