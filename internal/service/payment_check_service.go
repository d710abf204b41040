package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
	"github.com/luckysymb/telegram-bot-payment/internal/payment"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

type PaymentCheckService struct {
	clock clock

	loader payment.Loader

	mailer       Mailer
	emailSubject string
	emailBody    string
}

func NewPaymentCheckService(loc *time.Location) *PaymentCheckService {
	return &PaymentCheckService{clock: newClock(loc)}
}

// Today is the current day in the configured timezone, at UTC midnight.
func (s *PaymentCheckService) Today() time.Time {
	return s.clock.today()
}

func (s *PaymentCheckService) CheckPaymentsData(ctx context.Context) (model.RosterErrors, *Error) {
	rosterErrs, err := s.loader.CheckForErrors(ctx)
	if err != nil {
		return nil, loadError(ctx, err)
	}
	return rosterErrs, nil
}

func (s *PaymentCheckService) CheckUserPayment(ctx context.Context, username string) (*model.Payment, *Error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, NewError(ErrorCodeInvalidArgument, "username is required")
	}

	p, err := s.loader.LoadSingleByUsername(ctx, username)
	if err != nil {
		return nil, loadError(ctx, err)
	}
	if p == nil {
		return nil, NewError(ErrorCodeNotFound, "no payment found for @"+username)
	}
	return p, nil
}

// ExpiringPayments returns the payments expiring between today and today+days, both included.
func (s *PaymentCheckService) ExpiringPayments(ctx context.Context, days int) ([]*model.Payment, *Error) {
	if days < 0 {
		return nil, NewError(ErrorCodeInvalidArgument, "days must not be negative")
	}

	roster, err := s.loader.LoadAll(ctx)
	if err != nil {
		return nil, loadError(ctx, err)
	}

	from := s.clock.today()
	to := from.AddDate(0, 0, days)

	return roster.Filter(func(p *model.Payment) bool {
		return !p.Expiration.Before(from) && !p.Expiration.After(to)
	}), nil
}

// EmailExpiringPayments sends the reminder email to every payment expiring
// within days. A failed email does not stop the others.
func (s *PaymentCheckService) EmailExpiringPayments(ctx context.Context, days int) (int, *Error) {
	l := logger.FromContext(ctx)

	if s.mailer == nil {
		return 0, NewError(ErrorCodeEmailDisabled, "email is disabled")
	}

	expiring, serr := s.ExpiringPayments(ctx, days)
	if serr != nil {
		return 0, serr
	}

	sent, failed := 0, 0
	for _, p := range expiring {
		if p.Email == "" {
			l.Warn("no email for expiring payment", zap.String("username", p.Username))
			continue
		}

		body := strings.NewReplacer(
			"{username}", p.Username,
			"{expiration}", p.Expiration.Format("02/01/2006"),
		).Replace(s.emailBody)

		if err := s.mailer.SendMail(p.Email, s.emailSubject, body); err != nil {
			l.Error("failed to send email", zap.String("username", p.Username), zap.String("email", p.Email), zap.Error(err))
			failed++
			continue
		}
		sent++
	}

	l.Info("expiring payment emails sent", zap.Int("sent", sent), zap.Int("failed", failed))

	if failed > 0 {
		return sent, NewError(ErrorCodeEmailFailed, "some emails could not be sent")
	}
	return sent, nil
}

func (s *PaymentCheckService) WithLoader(l payment.Loader) *PaymentCheckService {
	s.loader = l
	return s
}

func (s *PaymentCheckService) WithMailer(m Mailer, subject, body string) *PaymentCheckService {
	s.mailer = m
	s.emailSubject = subject
	s.emailBody = body
	return s
}

func (s *PaymentCheckService) WithClock(now func() time.Time) *PaymentCheckService {
	s.clock.now = now
	return s
}
