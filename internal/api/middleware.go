package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/auth"
	"github.com/luckysymb/telegram-bot-payment/internal/service"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

const (
	loggerKey    = "logger"
	tokenTypeKey = "token_type"
)

func ZapLoggerMiddleware(l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)

			reqLogger := l.With(
				zap.String("request_id", requestID),
			)

			c.Set(loggerKey, reqLogger)

			ctx := logger.WithLogger(req.Context(), reqLogger)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			latency := time.Since(start)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("remote_ip", c.RealIP()),
				zap.Int("status", res.Status),
				zap.Duration("latency", latency),
				zap.Int64("bytes_in", req.ContentLength),
				zap.Int64("bytes_out", res.Size),
			}

			if err != nil {
				fields = append(fields, zap.Error(err))
				reqLogger.Error("request failed", fields...)
			} else {
				reqLogger.Info("request completed", fields...)
			}

			return err
		}
	}
}

func GetLoggerFromContext(c echo.Context) *zap.Logger {
	if l, ok := c.Get(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// AuthMiddleware accepts requests carrying a bearer token that grants required.
func AuthMiddleware(signer *auth.Signer, required auth.TokenType) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := GetLoggerFromContext(c)

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, errorResponse{
					Error: service.NewError(service.ErrorCodeUnauthorized, "missing bearer token"),
				})
			}

			tokenType, valid := signer.IsValidToken(token)
			if !valid {
				l.Warn("invalid token")
				return c.JSON(http.StatusUnauthorized, errorResponse{
					Error: service.NewError(service.ErrorCodeUnauthorized, "invalid token"),
				})
			}

			if !tokenType.Allows(required) {
				l.Warn("forbidden", zap.String("token_type", string(tokenType)), zap.String("required", string(required)))
				return c.JSON(http.StatusForbidden, errorResponse{
					Error: service.NewError(service.ErrorCodeForbidden, "token does not allow this operation"),
				})
			}

			c.Set(tokenTypeKey, tokenType)
			return next(c)
		}
	}
}
