package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/db"
	"github.com/luckysymb/telegram-bot-payment/internal/model"
	"github.com/luckysymb/telegram-bot-payment/internal/repository"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

// BotAPI is the subset of *tgbotapi.BotAPI used by the client.
type BotAPI interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var activeStatuses = []string{
	string(model.MemberStatusCreator),
	string(model.MemberStatusAdministrator),
	string(model.MemberStatusMember),
	string(model.MemberStatusRestricted),
}

// MembershipClient reads chat members from the local registry, refreshing
// each of them against Telegram, and removes members from chats.
type MembershipClient struct {
	api        BotAPI
	repo       repository.MemberRepository
	transactor db.Transactor

	requestDelay time.Duration
}

func NewMembershipClient(api BotAPI) *MembershipClient {
	return &MembershipClient{api: api}
}

// GetMembers refreshes every tracked member of the chat and returns the active
// ones. A member whose lookup fails is skipped, and marked as left when Telegram
// no longer knows the user. The call fails only when no lookup got an answer.
func (c *MembershipClient) GetMembers(ctx context.Context, chatID int64) (model.ChatMembers, error) {
	l := logger.FromContext(ctx).With(zap.Int64("chat_id", chatID))

	tracked, err := c.repo.ListByChat(ctx, chatID, activeStatuses...)
	if err != nil {
		return nil, err
	}

	members := make(model.ChatMembers, 0, len(tracked))
	changed := make([]*repository.Member, 0)

	var lastErr error
	answered := 0

	for i, t := range tracked {
		if i > 0 {
			if err := c.pause(ctx); err != nil {
				return nil, err
			}
		}

		cm, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: t.UserID},
		})
		if err != nil {
			l.Warn("chat member lookup failed, member skipped", zap.Int64("user_id", t.UserID), zap.Error(err))

			if isUserGone(err) {
				answered++
				gone := *t
				gone.Status = string(model.MemberStatusLeft)
				changed = append(changed, &gone)
			} else {
				lastErr = errors.Wrapf(err, "failed to get chat member %d", t.UserID)
			}
			continue
		}
		answered++

		member := ToChatMember(cm)
		if rec := toRecord(chatID, member); differs(t, rec) {
			changed = append(changed, rec)
		}
		if isActive(member.Status) {
			members = append(members, member)
		}
	}

	if answered == 0 && lastErr != nil {
		return nil, lastErr
	}

	if len(changed) > 0 {
		err = c.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
			for _, rec := range changed {
				if err := c.repo.Upsert(ctx, rec); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		l.Debug("chat member registry refreshed", zap.Int("changed", len(changed)))
	}

	return members, nil
}

// RemoveMember bans the user and lifts the ban right away, so the user is
// out of the chat but can join again once the payment is renewed.
func (c *MembershipClient) RemoveMember(ctx context.Context, chatID int64, userID int64) error {
	target := tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID}

	if _, err := c.api.Request(tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: target,
		UntilDate:        time.Now().Add(time.Minute).Unix(),
	}); err != nil {
		return errors.Wrap(err, "failed to ban chat member")
	}

	if _, err := c.api.Request(tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: target,
		OnlyIfBanned:     true,
	}); err != nil {
		return errors.Wrap(err, "failed to unban chat member")
	}

	err := c.repo.SetStatus(ctx, chatID, userID, string(model.MemberStatusKicked))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// Track records a member seen in an update.
func (c *MembershipClient) Track(ctx context.Context, chatID int64, member model.ChatMember) error {
	return c.repo.Upsert(ctx, toRecord(chatID, member))
}

func (c *MembershipClient) WithRepo(repo repository.MemberRepository) *MembershipClient {
	c.repo = repo
	return c
}

func (c *MembershipClient) WithTransactor(t db.Transactor) *MembershipClient {
	c.transactor = t
	return c
}

// WithRequestDelay sets the pause between two member lookups.
func (c *MembershipClient) WithRequestDelay(d time.Duration) *MembershipClient {
	c.requestDelay = d
	return c
}

func (c *MembershipClient) pause(ctx context.Context) error {
	if c.requestDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(c.requestDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var userGoneMessages = []string{
	"user not found",
	"member not found",
	"PARTICIPANT_ID_INVALID",
}

// isUserGone reports whether Telegram rejected a lookup because the user
// itself no longer exists for the chat, as opposed to a chat or network error.
func isUserGone(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != 400 {
		return false
	}
	for _, msg := range userGoneMessages {
		if strings.Contains(apiErr.Message, msg) {
			return true
		}
	}
	return false
}

func isActive(status model.MemberStatus) bool {
	for _, s := range activeStatuses {
		if string(status) == s {
			return true
		}
	}
	return false
}

func differs(a, b *repository.Member) bool {
	return a.Username != b.Username ||
		a.FirstName != b.FirstName ||
		a.IsBot != b.IsBot ||
		a.Status != b.Status
}
