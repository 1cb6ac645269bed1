package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/olenev/userhub/kafka"
	"github.com/olenev/userhub/pkg/auth"
	"github.com/olenev/userhub/pkg/breaker"
	"github.com/olenev/userhub/pkg/logger"
)

// SMTPConfig holds the SMTP server settings for outgoing mail
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromAddr string
	FromName string
}

// SMTPSender renders and delivers emails over SMTP. Delivery runs
// behind a circuit breaker so a dead mail server is not hammered for
// every queued message.
type SMTPSender struct {
	cfg      SMTPConfig
	tokens   *auth.TokenManager
	renderer *Renderer
	breaker  *breaker.CircuitBreaker

	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewSMTPSender creates a sender for the given SMTP server
func NewSMTPSender(cfg SMTPConfig, tokens *auth.TokenManager) *SMTPSender {
	delivered := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailer_emails_delivered_total",
			Help: "Total number of emails delivered over SMTP",
		},
		[]string{"kind"},
	)
	if err := prometheus.Register(delivered); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			delivered = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}

	failed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailer_emails_failed_total",
			Help: "Total number of emails that could not be delivered",
		},
		[]string{"kind"},
	)
	if err := prometheus.Register(failed); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			failed = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}

	return &SMTPSender{
		cfg:       cfg,
		tokens:    tokens,
		renderer:  NewRenderer(),
		breaker:   breaker.New("smtp", 5, 30*time.Second),
		delivered: delivered,
		failed:    failed,
	}
}

// Breaker exposes the circuit breaker for health reporting
func (s *SMTPSender) Breaker() *breaker.CircuitBreaker {
	return s.breaker
}

// SendVerification mints a fresh confirmation token for the address and
// delivers the verification message. The link points at the base URL
// the signup request arrived on.
func (s *SMTPSender) SendVerification(ctx context.Context, email, username, baseURL string) error {
	tracer := otel.Tracer("mailer")
	ctx, span := tracer.Start(ctx, "mailer.send_verification",
		trace.WithAttributes(
			attribute.String("email.kind", kafka.EmailKindVerification),
			attribute.String("smtp.host", s.cfg.Host),
		),
	)
	defer span.End()

	token, err := s.tokens.CreateEmailToken(email)
	if err != nil {
		s.failed.WithLabelValues(kafka.EmailKindVerification).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create email token")
		return fmt.Errorf("failed to create email token: %w", err)
	}

	msg, err := s.renderer.Render(kafka.EmailKindVerification, email, TemplateData{
		Username:  username,
		VerifyURL: VerificationURL(baseURL, token),
	})
	if err != nil {
		s.failed.WithLabelValues(kafka.EmailKindVerification).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to render email")
		return err
	}

	if err := s.breaker.Call(func() error { return s.send(msg) }); err != nil {
		s.failed.WithLabelValues(kafka.EmailKindVerification).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to send email")
		return err
	}

	s.delivered.WithLabelValues(kafka.EmailKindVerification).Inc()
	span.SetStatus(codes.Ok, "Email sent")
	logger.Info(ctx).
		Str("email.kind", kafka.EmailKindVerification).
		Str("smtp.host", s.cfg.Host).
		Msg("Verification email sent")

	return nil
}

// send delivers one message over SMTP
func (s *SMTPSender) send(msg *Message) error {
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	body := fmt.Sprintf("From: %s <%s>\r\n", s.cfg.FromName, s.cfg.FromAddr)
	body += fmt.Sprintf("To: %s\r\n", msg.To)
	body += fmt.Sprintf("Subject: %s\r\n", msg.Subject)
	body += "MIME-Version: 1.0\r\n"
	body += "Content-Type: multipart/alternative; boundary=\"boundary\"\r\n\r\n"
	body += "--boundary\r\n"
	body += "Content-Type: text/plain; charset=UTF-8\r\n\r\n"
	body += msg.TextBody + "\r\n"
	body += "--boundary\r\n"
	body += "Content-Type: text/html; charset=UTF-8\r\n\r\n"
	body += msg.HTMLBody + "\r\n"
	body += "--boundary--\r\n"

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	return smtp.SendMail(addr, auth, s.cfg.FromAddr, []string{msg.To}, []byte(body))
}
