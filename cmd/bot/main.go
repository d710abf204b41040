package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/api"
	"github.com/luckysymb/telegram-bot-payment/internal/auth"
	"github.com/luckysymb/telegram-bot-payment/internal/bot"
	"github.com/luckysymb/telegram-bot-payment/internal/config"
	"github.com/luckysymb/telegram-bot-payment/internal/db"
	"github.com/luckysymb/telegram-bot-payment/internal/mail"
	"github.com/luckysymb/telegram-bot-payment/internal/payment"
	"github.com/luckysymb/telegram-bot-payment/internal/repository"
	"github.com/luckysymb/telegram-bot-payment/internal/service"
	"github.com/luckysymb/telegram-bot-payment/internal/telegram"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

const version = "v1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.FileName)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting application",
		zap.String("version", version),
		zap.Bool("test_mode", cfg.App.TestMode),
		zap.String("payment_type", cfg.Payment.Type))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err = pool.Ping(ctx); err != nil {
		log.Fatal("failed to ping database", zap.Error(err))
	}

	log.Info("database connection established")

	if err = db.ApplyMigrations(ctx, pool, db.Migrations); err != nil {
		log.Fatal("failed to apply migrations", zap.Error(err))
	}

	transactor := db.NewPgxTransactor(pool)
	memberRepo := repository.NewPgxMemberRepository(pool)

	if err = tgbotapi.SetLogger(telegram.NewBotLogger(log)); err != nil {
		log.Fatal("failed to set telegram logger", zap.Error(err))
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.Fatal("failed to init telegram bot", zap.Error(err))
	}

	loader, err := payment.NewLoader(ctx, cfg.Payment)
	if err != nil {
		log.Fatal("failed to init payment loader", zap.Error(err))
	}

	membership := telegram.NewMembershipClient(botAPI).
		WithRepo(memberRepo).
		WithTransactor(transactor).
		WithRequestDelay(service.DefaultRemoveDelay)

	loc := cfg.App.Location()
	payments := service.NewMembersPaymentService(loc).WithLoader(loader).WithMembershipClient(membership)
	usernames := service.NewMembersUsernameService().WithMembershipClient(membership)
	kicker := service.NewMembersKicker(cfg.App.TestMode).
		WithMembershipClient(membership).
		WithPaymentService(payments).
		WithUsernameService(usernames)
	checker := service.NewPaymentCheckService(loc).WithLoader(loader)
	if cfg.Email.Enabled {
		checker.WithMailer(mail.NewSMTPMailer(cfg.Email, log), cfg.Email.Subject, cfg.Email.Body)
	}

	handler := bot.NewHandler(botAPI, cfg).
		WithTracker(membership).
		WithPaymentService(payments).
		WithUsernameService(usernames).
		WithKicker(kicker).
		WithPaymentCheckService(checker)

	if cfg.Payment.CheckPeriod > 0 {
		go handler.RunCheckWorker(ctx, cfg.Payment.CheckPeriod, cfg.Payment.CheckChatIDs)
	}

	if cfg.API.Addr != "" {
		e, err := newAPIServer(cfg, log, loader, payments, usernames, kicker, checker)
		if err != nil {
			log.Fatal("failed to init api", zap.Error(err))
		}

		go func() {
			log.Info("server starting", zap.String("addr", cfg.API.Addr))
			if err := e.Start(cfg.API.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("failed to start server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				log.Error("failed to stop server", zap.Error(err))
			}
		}()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "chat_member"}
	updates := botAPI.GetUpdatesChan(u)

	log.Info("bot started", zap.String("username", botAPI.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			log.Info("shutdown")
			return
		case upd := <-updates:
			handler.HandleUpdate(ctx, upd)
		}
	}
}

func newAPIServer(
	cfg *config.Config,
	log *zap.Logger,
	loader payment.Loader,
	payments *service.MembersPaymentService,
	usernames *service.MembersUsernameService,
	kicker *service.MembersKicker,
	checker *service.PaymentCheckService,
) (*echo.Echo, error) {
	signer, err := auth.NewSigner(cfg.API.TokenSecret)
	if err != nil {
		return nil, err
	}

	health, err := api.NewHealthChecker(version,
		api.PostgresCheck(cfg.Database.URL),
		api.PaymentSourceCheck(loader))
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true

	api.NewHandler(log, signer).
		WithHealthChecker(health).
		WithPaymentService(payments).
		WithUsernameService(usernames).
		WithKicker(kicker).
		WithPaymentCheckService(checker).
		RegisterRoutes(e)

	return e, nil
}
