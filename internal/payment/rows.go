package payment

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/config"
	"github.com/luckysymb/telegram-bot-payment/internal/model"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

// rowParser turns raw sheet rows into a roster. Row 0 is the header.
type rowParser struct {
	emailCol      int
	usernameCol   int
	expirationCol int
	dateFormat    string
}

func newRowParser(cfg config.PaymentConfig) *rowParser {
	return &rowParser{
		emailCol:      columnIndex(cfg.EmailCol),
		usernameCol:   columnIndex(cfg.UsernameCol),
		expirationCol: columnIndex(cfg.ExpirationCol),
		dateFormat:    cfg.DateFormat,
	}
}

func (p *rowParser) parse(ctx context.Context, rows [][]string) (*model.Roster, model.RosterErrors) {
	l := logger.FromContext(ctx)

	roster := model.NewRoster()
	rosterErrs := make(model.RosterErrors, 0)

	for i, row := range rows {
		if i == 0 {
			continue
		}

		email := strings.TrimSpace(cell(row, p.emailCol))
		username := strings.TrimSpace(cell(row, p.usernameCol))
		expiration := cell(row, p.expirationCol)

		if username == "" {
			l.Debug("row without username skipped", zap.Int("row", i))
			continue
		}

		expirationDate, err := ParseExpiration(expiration, p.dateFormat)
		if err != nil {
			l.Warn("expiration date is not valid, row skipped",
				zap.String("username", username),
				zap.Int("row", i),
				zap.String("value", expiration))
			rosterErrs.Add(model.RosterErrorInvalidDate, i, username, expiration)
			continue
		}

		if !roster.Add(&model.Payment{Email: email, Username: username, Expiration: expirationDate}) {
			l.Warn("username is present more than one time, row skipped",
				zap.String("username", username),
				zap.Int("row", i))
			rosterErrs.Add(model.RosterErrorDuplicateUsername, i, username, "")
			continue
		}

		l.Debug("payment loaded",
			zap.Int("count", roster.Count()),
			zap.Int("row", i),
			zap.String("email", email),
			zap.String("username", username),
			zap.String("expiration", expirationDate.Format("2006-01-02")))
	}

	return roster, rosterErrs
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// columnIndex converts a column letter (A-Z) into a zero based index.
func columnIndex(col string) int {
	if len(col) != 1 {
		return -1
	}
	return int(strings.ToUpper(col)[0] - 'A')
}

// columnLetter is the inverse of columnIndex.
func columnLetter(idx int) string {
	return string(rune('A' + idx))
}
