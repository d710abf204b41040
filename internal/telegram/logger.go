package telegram

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// BotLogger routes the telegram library logs to zap.
type BotLogger struct {
	l *zap.Logger
}

func NewBotLogger(l *zap.Logger) *BotLogger {
	return &BotLogger{l: l.Named("tgbotapi")}
}

func (b *BotLogger) Println(v ...interface{}) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (b *BotLogger) Printf(format string, v ...interface{}) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
