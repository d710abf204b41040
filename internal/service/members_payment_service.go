package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
	"github.com/luckysymb/telegram-bot-payment/internal/payment"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

// IsMemberExpired reports whether a valid member has no payment in the roster
// or a payment that expired strictly before today.
func IsMemberExpired(member model.ChatMember, roster *model.Roster, today time.Time) bool {
	if !IsValidMember(member) {
		return false
	}
	p, ok := roster.GetByUsername(member.User.Username)
	if !ok {
		return true
	}
	return p.IsExpiredAt(today)
}

// ResolveExpiredMembers returns, in scan order, the valid members whose payment expired.
func ResolveExpiredMembers(members model.ChatMembers, roster *model.Roster, today time.Time) model.ChatMembers {
	return FilterMembers(members, func(m model.ChatMember) bool {
		return IsMemberExpired(m, roster, today)
	})
}

type MembersPaymentService struct {
	clock clock

	loader  payment.Loader
	members MembershipClient
}

func NewMembersPaymentService(loc *time.Location) *MembersPaymentService {
	return &MembersPaymentService{clock: newClock(loc)}
}

func (s *MembersPaymentService) GetAllMembersWithExpiredPayment(ctx context.Context, chatID int64) (model.ChatMembers, *Error) {
	roster, members, err := s.loadRosterAndMembers(ctx, chatID)
	if err != nil {
		return nil, err
	}

	expired := ResolveExpiredMembers(members, roster, s.clock.today())

	logger.FromContext(ctx).Info("members with expired payment resolved",
		zap.Int64("chat_id", chatID),
		zap.Int("members", members.Count()),
		zap.Int("expired", expired.Count()))

	return expired, nil
}

func (s *MembersPaymentService) GetAllMembersWithOkPayment(ctx context.Context, chatID int64) (model.ChatMembers, *Error) {
	roster, members, err := s.loadRosterAndMembers(ctx, chatID)
	if err != nil {
		return nil, err
	}

	today := s.clock.today()
	return FilterMembers(members, func(m model.ChatMember) bool {
		return !IsMemberExpired(m, roster, today)
	}), nil
}

func (s *MembersPaymentService) IsSingleMemberExpired(ctx context.Context, member model.ChatMember) (bool, *Error) {
	l := logger.FromContext(ctx)

	if !IsValidMember(member) {
		return false, nil
	}
	if !member.User.HasUsername() {
		l.Debug("member without username has no payment", zap.Int64("user_id", member.User.ID))
		return true, nil
	}

	p, err := s.loader.LoadSingleByUsername(ctx, member.User.Username)
	if err != nil {
		return false, loadError(ctx, err)
	}
	if p == nil {
		l.Info("no payment found for member", zap.String("username", member.User.Username))
		return true, nil
	}

	return p.IsExpiredAt(s.clock.today()), nil
}

func (s *MembersPaymentService) loadRosterAndMembers(ctx context.Context, chatID int64) (*model.Roster, model.ChatMembers, *Error) {
	roster, err := s.loader.LoadAll(ctx)
	if err != nil {
		return nil, nil, loadError(ctx, err)
	}

	members, err := s.members.GetMembers(ctx, chatID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to get chat members", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, nil, NewError(ErrorCodeMembersUnavailable, "failed to get chat members")
	}

	return roster, members, nil
}

func (s *MembersPaymentService) WithLoader(l payment.Loader) *MembersPaymentService {
	s.loader = l
	return s
}

func (s *MembersPaymentService) WithMembershipClient(c MembershipClient) *MembersPaymentService {
	s.members = c
	return s
}

func (s *MembersPaymentService) WithClock(now func() time.Time) *MembersPaymentService {
	s.clock.now = now
	return s
}
