package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

// RunCheckWorker removes, every period, the members with expired payment
// from each of chatIDs. It returns when ctx is done.
func (h *Handler) RunCheckWorker(ctx context.Context, every time.Duration, chatIDs []int64) {
	l := logger.FromContext(ctx)
	l.Info("payment check worker started", zap.Duration("period", every), zap.Int64s("chat_ids", chatIDs))

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Info("payment check worker stopped")
			return
		case <-ticker.C:
			for _, chatID := range chatIDs {
				h.checkChat(ctx, chatID)
			}
		}
	}
}

func (h *Handler) checkChat(ctx context.Context, chatID int64) {
	l := logger.FromContext(ctx).With(zap.Int64("chat_id", chatID))

	report, err := h.kicker.KickAllWithExpiredPayment(ctx, chatID)
	if err != nil {
		l.Error("periodic payment check failed", zap.String("code", string(err.Code)), zap.String("message", err.Message))
		if report == nil {
			return
		}
	}
	if report.Candidates.Any() {
		h.reply(ctx, chatID, renderKickReport("expired payment", report, err))
	}
	l.Info("periodic payment check done",
		zap.Int("candidates", report.Candidates.Count()),
		zap.Int("removed", report.Removed.Count()))
}
