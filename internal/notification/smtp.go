package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPNotifier delivers codes by plain SMTP.
type SMTPNotifier struct {
	host     string
	port     int
	from     string
	fromName string
}

// NewSMTPNotifier constructs a notifier sending through the given SMTP relay.
func NewSMTPNotifier(host string, port int, from, fromName string) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, fromName: fromName}
}

// SendVerificationCode mails an email-confirmation code.
func (n *SMTPNotifier) SendVerificationCode(ctx context.Context, email, code, displayName string) error {
	body := fmt.Sprintf("Hi %s,\r\n\r\nUse the following 6-digit code to verify your email address:\r\n\r\n%s\r\n\r\nThis code expires in 10 minutes. If you didn't create an account, you can safely ignore this email.\r\n",
		orThere(displayName), code)
	return n.send(ctx, email, "Digital Seal - Verify Your Email", body)
}

// SendPasswordResetCode mails a password-reset code.
func (n *SMTPNotifier) SendPasswordResetCode(ctx context.Context, email, code, displayName string) error {
	body := fmt.Sprintf("Hi %s,\r\n\r\nWe received a request to reset your password. Use the following code:\r\n\r\n%s\r\n\r\nThis code expires in 10 minutes. If you didn't request a password reset, you can safely ignore this email.\r\n",
		orThere(displayName), code)
	return n.send(ctx, email, "Digital Seal - Password Reset", body)
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", n.fromName, n.from),
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	if err := smtp.SendMail(addr, nil, n.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func orThere(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}
