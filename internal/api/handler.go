package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/auth"
	"github.com/luckysymb/telegram-bot-payment/internal/model"
	"github.com/luckysymb/telegram-bot-payment/internal/service"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

const defaultExpiringDays = 7

type Handler struct {
	payments  *service.MembersPaymentService
	usernames *service.MembersUsernameService
	kicker    *service.MembersKicker
	checker   *service.PaymentCheckService

	healthChecker HealthChecker
	signer        *auth.Signer

	logger *zap.Logger
}

func NewHandler(logger *zap.Logger, signer *auth.Signer) *Handler {
	return &Handler{
		logger: logger,
		signer: signer,
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithPaymentService(s *service.MembersPaymentService) *Handler {
	h.payments = s
	return h
}

func (h *Handler) WithUsernameService(s *service.MembersUsernameService) *Handler {
	h.usernames = s
	return h
}

func (h *Handler) WithKicker(k *service.MembersKicker) *Handler {
	h.kicker = k
	return h
}

func (h *Handler) WithPaymentCheckService(s *service.PaymentCheckService) *Handler {
	h.checker = s
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	if h.healthChecker != nil {
		e.GET("/health", h.healthChecker.HealthCheck())
	}

	// auth per route, so unknown paths still answer 404
	viewer := AuthMiddleware(h.signer, auth.TokenTypeViewer)

	e.GET("/payments/errors", h.CheckPaymentsData, viewer)
	e.GET("/payments/expiring", h.GetExpiringPayments, viewer)
	e.GET("/payments/:username", h.CheckUserPayment, viewer)
	e.GET("/chats/:chat_id/members/expired", h.GetExpiredMembers, viewer)
	e.GET("/chats/:chat_id/members/paid", h.GetPaidMembers, viewer)
	e.GET("/chats/:chat_id/members/with-username", h.GetWithUsernameMembers, viewer)
	e.GET("/chats/:chat_id/members/no-username", h.GetNoUsernameMembers, viewer)

	admin := AuthMiddleware(h.signer, auth.TokenTypeAdmin)

	e.POST("/chats/:chat_id/members/expired/remove", h.RemoveExpiredMembers, admin)
	e.POST("/chats/:chat_id/members/no-username/remove", h.RemoveNoUsernameMembers, admin)
	e.POST("/payments/expiring/email", h.EmailExpiringPayments, admin)
}

type chatRequest struct {
	ChatID int64 `param:"chat_id" validate:"required"`
}

type daysRequest struct {
	Days int `query:"days" json:"days" validate:"gte=0,lte=366"`
}

type usernameRequest struct {
	Username string `param:"username" validate:"required"`
}

func (h *Handler) CheckPaymentsData(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	l.Info("checking payments data")

	rosterErrs, err := h.checker.CheckPaymentsData(e.Request().Context())
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, struct {
		Errors model.RosterErrors `json:"errors"`
	}{Errors: nonNil(rosterErrs)})
}

func (h *Handler) CheckUserPayment(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req usernameRequest
	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("checking user payment", zap.String("username", req.Username))

	p, err := h.checker.CheckUserPayment(e.Request().Context(), req.Username)
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, struct {
		*model.Payment
		Expired bool `json:"expired"`
	}{Payment: p, Expired: p.IsExpiredAt(h.checker.Today())})
}

func (h *Handler) GetExpiringPayments(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	req := daysRequest{Days: defaultExpiringDays}
	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	payments, err := h.checker.ExpiringPayments(e.Request().Context(), req.Days)
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, struct {
		Days     int              `json:"days"`
		Payments []*model.Payment `json:"payments"`
	}{Days: req.Days, Payments: payments})
}

func (h *Handler) EmailExpiringPayments(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	req := daysRequest{Days: defaultExpiringDays}
	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("emailing expiring payments", zap.Int("days", req.Days))

	sent, err := h.checker.EmailExpiringPayments(e.Request().Context(), req.Days)
	if err != nil && err.Code != service.ErrorCodeEmailFailed {
		return h.transportError(e, err)
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	return e.JSON(status, struct {
		Sent  int            `json:"sent"`
		Error *service.Error `json:"error,omitempty"`
	}{Sent: sent, Error: err})
}

func (h *Handler) GetExpiredMembers(e echo.Context) error {
	return h.listMembers(e, h.payments.GetAllMembersWithExpiredPayment)
}

func (h *Handler) GetPaidMembers(e echo.Context) error {
	return h.listMembers(e, h.payments.GetAllMembersWithOkPayment)
}

func (h *Handler) GetWithUsernameMembers(e echo.Context) error {
	return h.listMembers(e, h.usernames.GetAllWithUsername)
}

func (h *Handler) GetNoUsernameMembers(e echo.Context) error {
	return h.listMembers(e, h.usernames.GetAllWithNoUsername)
}

func (h *Handler) RemoveExpiredMembers(e echo.Context) error {
	return h.kick(e, h.kicker.KickAllWithExpiredPayment)
}

func (h *Handler) RemoveNoUsernameMembers(e echo.Context) error {
	return h.kick(e, h.kicker.KickAllWithNoUsername)
}

type membersFunc func(ctx context.Context, chatID int64) (model.ChatMembers, *service.Error)

type kickFunc func(ctx context.Context, chatID int64) (*model.KickReport, *service.Error)

func (h *Handler) listMembers(e echo.Context, fn membersFunc) error {
	l := logger.FromContext(e.Request().Context())

	var req chatRequest
	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	members, err := fn(e.Request().Context(), req.ChatID)
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, struct {
		ChatID  int64             `json:"chat_id"`
		Members model.ChatMembers `json:"members"`
	}{ChatID: req.ChatID, Members: members})
}

func (h *Handler) kick(e echo.Context, fn kickFunc) error {
	l := logger.FromContext(e.Request().Context())

	var req chatRequest
	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("removing members", zap.Int64("chat_id", req.ChatID), zap.String("path", e.Path()))

	report, err := fn(e.Request().Context(), req.ChatID)
	if report == nil {
		return h.transportError(e, err)
	}

	status := http.StatusOK
	if err != nil {
		status = statusOf(err.Code)
	}
	return e.JSON(status, struct {
		Report *model.KickReport `json:"report"`
		Error  *service.Error    `json:"error,omitempty"`
	}{Report: report, Error: err})
}

func decodeRequest[T any](e echo.Context, req *T) *service.Error {
	return ProcessRequest(e, req, bindStep[T], validateStep[T])
}

func bindStep[T any](e echo.Context, req *T) *service.Error {
	if err := e.Bind(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, "invalid request")
	}
	return nil
}

func validateStep[T any](e echo.Context, req *T) *service.Error {
	if err := e.Validate(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, errors.Wrap(err, "request validation failed").Error())
	}
	return nil
}

type errorResponse struct {
	Error *service.Error `json:"error"`
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	return e.JSON(statusOf(err.Code), errorResponse{Error: err})
}

func statusOf(code service.ErrorCode) int {
	switch code {
	case service.ErrorCodeNotFound:
		return http.StatusNotFound
	case service.ErrorCodeInvalidBody, service.ErrorCodeInvalidArgument:
		return http.StatusBadRequest
	case service.ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case service.ErrorCodeForbidden:
		return http.StatusForbidden
	case service.ErrorCodeEmailDisabled:
		return http.StatusConflict
	case service.ErrorCodeSourceUnavailable, service.ErrorCodeMembersUnavailable:
		return http.StatusServiceUnavailable
	case service.ErrorCodeRemovalFailed, service.ErrorCodeEmailFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func nonNil(errs model.RosterErrors) model.RosterErrors {
	if errs == nil {
		return model.RosterErrors{}
	}
	return errs
}
