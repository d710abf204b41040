package api

import (
	"context"
	"time"

	"github.com/hellofresh/health-go/v5"
	healthPgx "github.com/hellofresh/health-go/v5/checks/pgx5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/luckysymb/telegram-bot-payment/internal/payment"
)

type HealthChecker interface {
	HealthCheck() echo.HandlerFunc
}

type healthChecker struct {
	health *health.Health
}

func NewHealthChecker(version string, checks ...health.Config) (HealthChecker, error) {
	h, err := health.New(health.WithComponent(health.Component{Name: "telegram-bot-payment", Version: version}))
	if err != nil {
		return nil, err
	}

	for _, check := range checks {
		if err := h.Register(check); err != nil {
			return nil, errors.Wrapf(err, "failed to register health check %s", check.Name)
		}
	}

	return &healthChecker{
		health: h,
	}, nil
}

func (h *healthChecker) HealthCheck() echo.HandlerFunc {
	return echo.WrapHandler(h.health.Handler())
}

func PostgresCheck(dsn string) health.Config {
	return health.Config{
		Name:      "postgres",
		Timeout:   2 * time.Second,
		SkipOnErr: false,
		Check:     healthPgx.New(healthPgx.Config{DSN: dsn}),
	}
}

// PaymentSourceCheck fails when the payment file or sheet cannot be read.
// Row errors do not make the source unhealthy.
func PaymentSourceCheck(loader payment.Loader) health.Config {
	return health.Config{
		Name:      "payment-source",
		Timeout:   10 * time.Second,
		SkipOnErr: true,
		Check: func(ctx context.Context) error {
			_, err := loader.CheckForErrors(ctx)
			return err
		},
	}
}
