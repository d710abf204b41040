package payment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/luckysymb/telegram-bot-payment/internal/config"
)

const defaultSheetPageSize = 500

type valuesGetter interface {
	rowCount(ctx context.Context) (int, error)
	getValues(ctx context.Context, rangeA1 string) ([][]interface{}, error)
}

type sheetsValuesGetter struct {
	srv     *sheets.Service
	sheetID string
}

// rowCount is the grid size of the first sheet, blank rows included.
func (g *sheetsValuesGetter) rowCount(ctx context.Context) (int, error) {
	resp, err := g.srv.Spreadsheets.Get(g.sheetID).
		Fields("sheets.properties.gridProperties.rowCount").
		Context(ctx).
		Do()
	if err != nil {
		return 0, err
	}
	if len(resp.Sheets) == 0 || resp.Sheets[0].Properties == nil || resp.Sheets[0].Properties.GridProperties == nil {
		return 0, errors.New("spreadsheet has no sheets")
	}
	return int(resp.Sheets[0].Properties.GridProperties.RowCount), nil
}

func (g *sheetsValuesGetter) getValues(ctx context.Context, rangeA1 string) ([][]interface{}, error) {
	resp, err := g.srv.Spreadsheets.Values.Get(g.sheetID, rangeA1).
		MajorDimension("ROWS").
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

type sheetSource struct {
	id       string
	getter   valuesGetter
	pageSize int
	lastCol  string
}

// NewSheetLoader reads payments from a Google sheet using a service account.
func NewSheetLoader(ctx context.Context, cfg config.PaymentConfig) (Loader, error) {
	srv, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.GoogleCredPath),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sheets service")
	}

	getter := &sheetsValuesGetter{srv: srv, sheetID: cfg.GoogleSheetID}
	return newSheetLoader(cfg, getter, defaultSheetPageSize), nil
}

func newSheetLoader(cfg config.PaymentConfig, getter valuesGetter, pageSize int) Loader {
	return newLoader(&sheetSource{
		id:       cfg.GoogleSheetID,
		getter:   getter,
		pageSize: pageSize,
		lastCol:  lastColumn(cfg),
	}, cfg)
}

func (s *sheetSource) name() string {
	return "google-sheet:" + s.id
}

// fetchRows reads the sheet one page at a time up to its last grid row.
// Blank ranges come back without values, so every page is padded to keep
// row indexes matching sheet rows.
func (s *sheetSource) fetchRows(ctx context.Context) ([][]string, error) {
	total, err := s.getter.rowCount(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read sheet size")
	}

	rows := make([][]string, 0, total)

	for start := 1; start <= total; start += s.pageSize {
		end := min(start+s.pageSize-1, total)
		rangeA1 := fmt.Sprintf("A%d:%s%d", start, s.lastCol, end)

		values, err := s.getter.getValues(ctx, rangeA1)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read range %s", rangeA1)
		}

		for _, v := range values {
			row := make([]string, len(v))
			for i := range v {
				row[i] = cellString(v[i])
			}
			rows = append(rows, row)
		}
		for i := len(values); i < end-start+1; i++ {
			rows = append(rows, nil)
		}
	}

	return rows, nil
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func lastColumn(cfg config.PaymentConfig) string {
	last := 0
	for _, col := range []string{cfg.EmailCol, cfg.UsernameCol, cfg.ExpirationCol} {
		if idx := columnIndex(col); idx > last {
			last = idx
		}
	}
	return columnLetter(last)
}
