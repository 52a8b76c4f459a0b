package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		From:   from,
		dialer: gomail.NewDialer(host, port, user, password),
	}
}

// NewEmailSenderWithDialer is used by tests to capture outgoing messages.
func NewEmailSenderWithDialer(from string, d Dialer) *EmailSender {
	return &EmailSender{From: from, dialer: d}
}

func (s *EmailSender) SendPendingSignup(to []string, user *entity.User) error {
	if len(to) == 0 {
		return nil
	}
	data := PendingSignupData{
		Name:        user.Name,
		Email:       user.Email,
		RequestedAt: user.CreatedAt.Format("02/01/2006 15:04"),
	}
	subject := fmt.Sprintf("Novo acesso pendente: %s", user.Email)
	return s.send(to, subject, "pending_signup.html", data)
}

func (s *EmailSender) SendDealWon(to, leadName string, amount float64) error {
	data := DealWonData{LeadName: leadName}
	if amount > 0 {
		data.Amount = strconv.FormatFloat(amount, 'f', 2, 64)
	}
	subject := fmt.Sprintf("Negócio ganho: %s 🎉", leadName)
	return s.send([]string{to}, subject, "deal_won.html", data)
}

func (s *EmailSender) send(to []string, subject, tmpl string, data any) error {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		return fmt.Errorf("erro ao processar template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetDateHeader("Date", time.Now())
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}
	return nil
}
