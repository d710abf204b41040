package payment

import (
	"context"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/luckysymb/telegram-bot-payment/internal/config"
)

const excelSheetIndex = 0

type excelSource struct {
	path string
}

// NewExcelLoader reads payments from the first sheet of an xlsx workbook.
func NewExcelLoader(cfg config.PaymentConfig) Loader {
	return newLoader(&excelSource{path: cfg.ExcelFile}, cfg)
}

func (s *excelSource) name() string {
	return s.path
}

func (s *excelSource) fetchRows(_ context.Context) ([][]string, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(excelSheetIndex)
	if sheet == "" {
		return nil, errors.Errorf("workbook has no sheet at index %d", excelSheetIndex)
	}

	// Raw values keep native date cells as serial numbers.
	return f.GetRows(sheet, excelize.Options{RawCellValue: true})
}
