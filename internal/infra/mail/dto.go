package mail

import "gopkg.in/gomail.v2"

type PendingSignupData struct {
	Name        string
	Email       string
	RequestedAt string
}

type DealWonData struct {
	LeadName string
	Amount   string
}

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailSender struct {
	From   string
	dialer Dialer
}
