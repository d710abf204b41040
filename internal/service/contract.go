package service

import (
	"context"
	"time"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
)

// MembershipClient reads chat members and removes them from a chat.
type MembershipClient interface {
	// GetMembers returns a snapshot of the chat members taken at call time.
	GetMembers(ctx context.Context, chatID int64) (model.ChatMembers, error)
	RemoveMember(ctx context.Context, chatID int64, userID int64) error
}

type Mailer interface {
	SendMail(to, subject, body string) error
}

// clock computes the current calendar day in the configured timezone.
type clock struct {
	loc *time.Location
	now func() time.Time
}

func newClock(loc *time.Location) clock {
	if loc == nil {
		loc = time.UTC
	}
	return clock{loc: loc, now: time.Now}
}

func (c clock) today() time.Time {
	return model.DateOf(c.now().In(c.loc))
}
