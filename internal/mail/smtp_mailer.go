package mail

import (
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/config"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends plain text emails via SMTP.
type SMTPMailer struct {
	host     string
	port     int
	user     string
	password string
	from     string
	replyTo  string

	log  *zap.Logger
	send sendFunc
	now  func() time.Time
}

func NewSMTPMailer(cfg config.EmailConfig, log *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		replyTo:  cfg.ReplyTo,
		log:      log,
		send:     smtp.SendMail,
		now:      time.Now,
	}
}

func (m *SMTPMailer) SendMail(to, subject, body string) error {
	var auth smtp.Auth
	if m.user != "" && m.password != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))

	if err := m.send(addr, auth, m.from, []string{to}, m.message(to, subject, body)); err != nil {
		m.log.Error("smtp send error", zap.String("to", to), zap.String("addr", addr), zap.Error(err))
		return errors.Wrapf(err, "failed to send email to %s", to)
	}

	m.log.Info("email sent", zap.String("to", to), zap.String("addr", addr))
	return nil
}

func (m *SMTPMailer) message(to, subject, body string) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	if m.replyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", m.replyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), m.host)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(body)

	return []byte(b.String())
}
