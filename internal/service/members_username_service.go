package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

type MembersUsernameService struct {
	members MembershipClient
}

func NewMembersUsernameService() *MembersUsernameService {
	return &MembersUsernameService{}
}

func (s *MembersUsernameService) GetAllWithUsername(ctx context.Context, chatID int64) (model.ChatMembers, *Error) {
	return s.filter(ctx, chatID, HasUsername)
}

func (s *MembersUsernameService) GetAllWithNoUsername(ctx context.Context, chatID int64) (model.ChatMembers, *Error) {
	return s.filter(ctx, chatID, HasNoUsername)
}

func (s *MembersUsernameService) filter(ctx context.Context, chatID int64, pred Predicate) (model.ChatMembers, *Error) {
	members, err := s.members.GetMembers(ctx, chatID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to get chat members", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, NewError(ErrorCodeMembersUnavailable, "failed to get chat members")
	}
	return FilterMembers(members, pred), nil
}

func (s *MembersUsernameService) WithMembershipClient(c MembershipClient) *MembersUsernameService {
	s.members = c
	return s
}
