package payment

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/luckysymb/telegram-bot-payment/internal/model"
)

// ParseExpiration reads an expiration cell. Spreadsheets store native dates as
// serial numbers and typed dates as text, so the serial form is tried first and
// the strftime format second. The result is a calendar date.
func ParseExpiration(raw string, format string) (time.Time, error) {
	value := strings.TrimSpace(raw)

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(serial) || math.IsInf(serial, 0) {
			return time.Time{}, errors.Wrapf(ErrInvalidDate, "%q", raw)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, errors.Wrapf(ErrInvalidDate, "%q: %v", raw, err)
		}
		return model.DateOf(t), nil
	}

	t, err := timefmt.Parse(value, format)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrInvalidDate, "%q does not match %q", raw, format)
	}
	return model.DateOf(t), nil
}
