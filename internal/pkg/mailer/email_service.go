// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"
)

// Alert is the content of one outbreak alert mail.
type Alert struct {
	CaseId     string
	Severity   float64
	Confidence float64
	Rationale  string
	Notes      string
}

type IEmailService interface {
	SendAlert(recipients []string, alert Alert) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func AlertSubject(a Alert) string {
	return fmt.Sprintf("[SENTINEL] Outbreak alert for case %s (severity %.1f)", a.CaseId, a.Severity)
}

func AlertBody(a Alert) string {
	notes := ""
	if strings.TrimSpace(a.Notes) != "" {
		notes = fmt.Sprintf("<p><b>Reviewer notes:</b> %s</p>", html.EscapeString(a.Notes))
	}
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Outbreak alert: case %s</h2>
			<p>Severity: <b>%.2f</b> / 10</p>
			<p>Confidence: <b>%.2f%%</b></p>
			<p>%s</p>
			%s
			<p>This alert was approved by a human reviewer.</p>
		</div>
	`, html.EscapeString(a.CaseId), a.Severity, a.Confidence, html.EscapeString(a.Rationale), notes)
}

func (s *emailService) SendAlert(recipients []string, alert Alert) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no alert recipients configured")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", AlertSubject(alert))
	m.SetBody("text/html", AlertBody(alert))

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send alert for case %s: %v\n", alert.CaseId, err)
		return err
	}

	fmt.Printf("[MAILER] Alert for case %s sent to %d recipients\n", alert.CaseId, len(recipients))
	return nil
}
