package payment

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/config"
	"github.com/luckysymb/telegram-bot-payment/internal/model"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

type Type string

const (
	TypeExcelFile   Type = config.PaymentTypeExcelFile
	TypeGoogleSheet Type = config.PaymentTypeGoogleSheet
)

// Loader reads the payment roster from a source.
// LoadAll, LoadSingleByUsername and CheckForErrors are all derived from a
// single Load pass, so a roster and its errors always come from the same parse.
type Loader interface {
	Load(ctx context.Context) (*model.Roster, model.RosterErrors, error)
	LoadAll(ctx context.Context) (*model.Roster, error)
	LoadSingleByUsername(ctx context.Context, username string) (*model.Payment, error)
	CheckForErrors(ctx context.Context) (model.RosterErrors, error)
}

// rowSource fetches the raw rows of a payment source, header included.
type rowSource interface {
	fetchRows(ctx context.Context) ([][]string, error)
	name() string
}

type loader struct {
	source rowSource
	parser *rowParser
}

func newLoader(source rowSource, cfg config.PaymentConfig) Loader {
	return &loader{
		source: source,
		parser: newRowParser(cfg),
	}
}

// NewLoader builds the loader for the configured payment type.
func NewLoader(ctx context.Context, cfg config.PaymentConfig) (Loader, error) {
	switch Type(cfg.Type) {
	case TypeExcelFile:
		return NewExcelLoader(cfg), nil
	case TypeGoogleSheet:
		return NewSheetLoader(ctx, cfg)
	default:
		return nil, errors.Wrap(ErrUnknownType, cfg.Type)
	}
}

func (l *loader) Load(ctx context.Context) (*model.Roster, model.RosterErrors, error) {
	log := logger.FromContext(ctx).With(zap.String("source", l.source.name()))
	log.Info("loading payments")

	rows, err := l.source.fetchRows(ctx)
	if err != nil {
		log.Error("an error occurred while loading payments", zap.Error(err))
		return nil, nil, &SourceError{Source: l.source.name(), Err: err}
	}

	roster, rosterErrs := l.parser.parse(ctx, rows)

	log.Info("payments successfully loaded",
		zap.Int("rows", roster.Count()),
		zap.Int("errors", rosterErrs.Count()))

	return roster, rosterErrs, nil
}

func (l *loader) LoadAll(ctx context.Context) (*model.Roster, error) {
	roster, _, err := l.Load(ctx)
	return roster, err
}

func (l *loader) LoadSingleByUsername(ctx context.Context, username string) (*model.Payment, error) {
	roster, err := l.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := roster.GetByUsername(username)
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (l *loader) CheckForErrors(ctx context.Context) (model.RosterErrors, error) {
	_, rosterErrs, err := l.Load(ctx)
	return rosterErrs, err
}
