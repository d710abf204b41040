package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
	"github.com/luckysymb/telegram-bot-payment/internal/service"
)

const dateLayout = "02/01/2006"

const helpText = `Available commands:
/help - show this message
/check_payments_data - check the payments data for errors
/check_payment <username> - show the payment of a user
/show_expired_members [chat_id] - show members with expired payment
/show_paid_members [chat_id] - show members with valid payment
/remove_expired_members [chat_id] - remove members with expired payment
/show_no_username [chat_id] - show members without username
/remove_no_username [chat_id] - remove members without username
/show_expiring [days] - show payments expiring in the next days (default 7)
/email_expiring [days] - email the users whose payment expires in the next days`

func memberName(u model.User) string {
	if u.HasUsername() {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return fmt.Sprintf("%s (id %d)", u.FirstName, u.ID)
	}
	return fmt.Sprintf("id %d", u.ID)
}

func renderMembers(title string, members model.ChatMembers) string {
	if !members.Any() {
		return title + ": none"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):", title, members.Count())
	for _, m := range members {
		b.WriteString("\n- ")
		b.WriteString(memberName(m.User))
	}
	return b.String()
}

func renderRosterErrors(errs model.RosterErrors) string {
	if !errs.Any() {
		return "No error found in payments data"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Errors found in payments data (%d):", errs.Count())
	for _, e := range errs {
		switch e.Kind {
		case model.RosterErrorInvalidDate:
			fmt.Fprintf(&b, "\n- row %d: invalid expiration date %q for @%s", e.Row, e.RawValue, e.Username)
		case model.RosterErrorDuplicateUsername:
			fmt.Fprintf(&b, "\n- row %d: username @%s is present more than one time", e.Row, e.Username)
		default:
			fmt.Fprintf(&b, "\n- row %d: %s", e.Row, e.Kind)
		}
	}
	return b.String()
}

func renderPayment(p *model.Payment, today time.Time) string {
	state := "valid"
	if p.IsExpiredAt(today) {
		state = "EXPIRED"
	}

	text := fmt.Sprintf("@%s: payment expires on %s (%s)", p.Username, p.Expiration.Format(dateLayout), state)
	if p.Email != "" {
		text += "\nemail: " + p.Email
	}
	return text
}

func renderExpiring(days int, payments []*model.Payment) string {
	if len(payments) == 0 {
		return fmt.Sprintf("No payment expiring in the next %d days", days)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Payments expiring in the next %d days (%d):", days, len(payments))
	for _, p := range payments {
		fmt.Fprintf(&b, "\n- @%s: %s", p.Username, p.Expiration.Format(dateLayout))
	}
	return b.String()
}

func renderKickReport(reason string, r *model.KickReport, err *service.Error) string {
	var b strings.Builder

	if r.DryRun {
		fmt.Fprintf(&b, "Test mode: %d members with %s would be removed", r.Candidates.Count(), reason)
		for _, m := range r.Candidates {
			b.WriteString("\n- ")
			b.WriteString(memberName(m.User))
		}
		return b.String()
	}

	fmt.Fprintf(&b, "Removed %d of %d members with %s", r.Removed.Count(), r.Candidates.Count(), reason)
	for _, m := range r.Removed {
		b.WriteString("\n- ")
		b.WriteString(memberName(m.User))
	}

	if r.Failed != nil {
		fmt.Fprintf(&b, "\nFailed to remove %s", memberName(r.Failed.User))
		if err != nil {
			fmt.Fprintf(&b, ": %s", err.Message)
		}
		if r.Pending.Any() {
			fmt.Fprintf(&b, "\nNot processed (%d):", r.Pending.Count())
			for _, m := range r.Pending {
				b.WriteString("\n- ")
				b.WriteString(memberName(m.User))
			}
		}
	}
	return b.String()
}

func renderEmailsSent(sent int, err *service.Error) string {
	text := fmt.Sprintf("%d emails sent", sent)
	if err != nil {
		text += "\nSome emails could not be sent, check the logs"
	}
	return text
}

func renderError(err *service.Error) string {
	switch err.Code {
	case service.ErrorCodeSourceUnavailable:
		return "Unable to read the payments data, please retry later"
	case service.ErrorCodeMembersUnavailable:
		return "Unable to get the chat members, is the bot an administrator of the chat?"
	case service.ErrorCodeEmailDisabled:
		return "Emails are disabled"
	default:
		return "Error: " + err.Message
	}
}

func (h *Handler) renderJoinKick(m model.ChatMember) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s was removed because no valid payment was found", memberName(m.User))

	if h.support.Website != "" {
		fmt.Fprintf(&b, "\nRenew the payment at %s", h.support.Website)
	}
	switch {
	case h.support.Telegram != "":
		fmt.Fprintf(&b, "\nFor support contact @%s", h.support.Telegram)
	case h.support.Email != "":
		fmt.Fprintf(&b, "\nFor support write to %s", h.support.Email)
	}
	return b.String()
}
