package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

// DefaultRemoveDelay is the pause after each removal of a bulk kick,
// to stay below the Telegram rate limits.
const DefaultRemoveDelay = 10 * time.Millisecond

type MembersKicker struct {
	testMode    bool
	removeDelay time.Duration

	members   MembershipClient
	payments  *MembersPaymentService
	usernames *MembersUsernameService
}

// NewMembersKicker creates a kicker. In test mode nothing is removed, but the
// members that would have been removed are still returned.
func NewMembersKicker(testMode bool) *MembersKicker {
	return &MembersKicker{
		testMode:    testMode,
		removeDelay: DefaultRemoveDelay,
	}
}

func (k *MembersKicker) KickAllWithExpiredPayment(ctx context.Context, chatID int64) (*model.KickReport, *Error) {
	expired, err := k.payments.GetAllMembersWithExpiredPayment(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return k.kickAll(ctx, chatID, expired)
}

// KickSingleIfExpiredPayment kicks member when its payment expired and reports whether it did.
func (k *MembersKicker) KickSingleIfExpiredPayment(ctx context.Context, chatID int64, member model.ChatMember) (bool, *Error) {
	expired, err := k.payments.IsSingleMemberExpired(ctx, member)
	if err != nil {
		return false, err
	}
	if !expired {
		return false, nil
	}
	return true, k.kickSingle(ctx, chatID, member)
}

func (k *MembersKicker) KickAllWithNoUsername(ctx context.Context, chatID int64) (*model.KickReport, *Error) {
	noUsername, err := k.usernames.GetAllWithNoUsername(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return k.kickAll(ctx, chatID, noUsername)
}

func (k *MembersKicker) KickSingleIfNoUsername(ctx context.Context, chatID int64, member model.ChatMember) (bool, *Error) {
	if !IsValidMember(member) || !HasNoUsername(member) {
		return false, nil
	}
	return true, k.kickSingle(ctx, chatID, member)
}

func (k *MembersKicker) kickAll(ctx context.Context, chatID int64, members model.ChatMembers) (*model.KickReport, *Error) {
	report := &model.KickReport{
		Candidates: members,
		Removed:    make(model.ChatMembers, 0, members.Count()),
		Pending:    make(model.ChatMembers, 0),
		DryRun:     k.testMode,
	}
	if !members.Any() {
		return report, nil
	}
	return report, k.kickMultiple(ctx, chatID, report)
}

func (k *MembersKicker) kickSingle(ctx context.Context, chatID int64, member model.ChatMember) *Error {
	l := logger.FromContext(ctx).With(
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", member.User.ID),
		zap.String("username", member.User.Username))

	if k.testMode {
		l.Info("test mode ON: no member was kicked")
		return nil
	}

	if err := k.members.RemoveMember(ctx, chatID, member.User.ID); err != nil {
		l.Error("failed to kick member", zap.Error(err))
		return NewError(ErrorCodeRemovalFailed, "failed to kick member")
	}

	l.Info("member kicked")
	return nil
}

// kickMultiple removes members one at a time, pausing after every call.
// The first failure stops the batch; the report tells what was left behind.
func (k *MembersKicker) kickMultiple(ctx context.Context, chatID int64, report *model.KickReport) *Error {
	l := logger.FromContext(ctx).With(zap.Int64("chat_id", chatID))

	if k.testMode {
		for _, m := range report.Candidates {
			l.Info("test mode ON: no member was kicked",
				zap.Int64("user_id", m.User.ID),
				zap.String("username", m.User.Username))
		}
		return nil
	}

	for i, m := range report.Candidates {
		if err := k.members.RemoveMember(ctx, chatID, m.User.ID); err != nil {
			failed := m
			report.Failed = &failed
			report.Pending = append(report.Pending, report.Candidates[i+1:]...)

			l.Error("failed to kick member, batch aborted",
				zap.Int64("user_id", m.User.ID),
				zap.String("username", m.User.Username),
				zap.Int("removed", report.Removed.Count()),
				zap.Int("pending", report.Pending.Count()),
				zap.Error(err))
			return NewError(ErrorCodeRemovalFailed, "failed to kick member, batch aborted")
		}

		report.Removed = append(report.Removed, m)
		time.Sleep(k.removeDelay)
	}

	l.Info("members kicked", zap.Int("removed", report.Removed.Count()))
	return nil
}

func (k *MembersKicker) WithMembershipClient(c MembershipClient) *MembersKicker {
	k.members = c
	return k
}

func (k *MembersKicker) WithPaymentService(p *MembersPaymentService) *MembersKicker {
	k.payments = p
	return k
}

func (k *MembersKicker) WithUsernameService(u *MembersUsernameService) *MembersKicker {
	k.usernames = u
	return k
}

func (k *MembersKicker) WithRemoveDelay(d time.Duration) *MembersKicker {
	k.removeDelay = d
	return k
}
