package api

import (
	"github.com/labstack/echo/v4"

	"github.com/luckysymb/telegram-bot-payment/internal/service"
)

// ProcessRequest runs steps on req in order and stops at the first error.
func ProcessRequest[T any](e echo.Context, req *T, steps ...func(echo.Context, *T) *service.Error) *service.Error {
	for _, step := range steps {
		if err := step(e, req); err != nil {
			return err
		}
	}
	return nil
}
