package service

import "github.com/luckysymb/telegram-bot-payment/internal/model"

// Predicate selects chat members.
type Predicate func(model.ChatMember) bool

// FilterMembers returns, in order, the valid members matching pred.
func FilterMembers(members model.ChatMembers, pred Predicate) model.ChatMembers {
	res := make(model.ChatMembers, 0)
	for _, m := range members {
		if IsValidMember(m) && pred(m) {
			res = append(res, m)
		}
	}
	return res
}

// IsValidMember reports whether m is a human account that can be removed.
// Bots, deleted accounts, owners, administrators and departed users never are.
func IsValidMember(m model.ChatMember) bool {
	if m.User.IsBot || m.User.IsDeleted {
		return false
	}
	switch m.Status {
	case model.MemberStatusMember, model.MemberStatusRestricted:
		return true
	default:
		return false
	}
}

func HasUsername(m model.ChatMember) bool {
	return m.User.HasUsername()
}

func HasNoUsername(m model.ChatMember) bool {
	return !m.User.HasUsername()
}
