package dispatch

import (
	"context"
	"fmt"

	"sentinel-be/internal/pkg/logger"
	"sentinel-be/internal/pkg/mailer"
)

// Message is what every channel receives for an approved case.
type Message struct {
	CaseId     string  `json:"case_id"`
	Severity   float64 `json:"severity"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
	Notes      string  `json:"notes"`
	DryRun     bool    `json:"dry_run"`
}

type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) (map[string]interface{}, error)
}

// VoiceStub prepares a voice briefing without calling a voice provider.
type VoiceStub struct {
	DryRun bool
	Logger logger.ILogger
}

func NewVoiceStub(dryRun bool, log logger.ILogger) *VoiceStub {
	return &VoiceStub{DryRun: dryRun, Logger: log}
}

func (v *VoiceStub) Name() string { return "voice" }

func (v *VoiceStub) Send(ctx context.Context, msg Message) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.Logger.Info("DISPATCH", "Voice stub invoked", map[string]interface{}{"case_id": msg.CaseId})
	return map[string]interface{}{
		"provider": "elevenlabs_stub",
		"dry_run":  v.DryRun,
		"status":   "queued",
		"summary":  fmt.Sprintf("Voice briefing prepared for case %s", msg.CaseId),
	}, nil
}

// EmailChannel mails the alert to the configured recipients. In dry run, or
// with nobody to mail, it only reports what it would have sent.
type EmailChannel struct {
	DryRun     bool
	Recipients []string
	Mailer     mailer.IEmailService
	Logger     logger.ILogger
}

func NewEmailChannel(dryRun bool, recipients []string, m mailer.IEmailService, log logger.ILogger) *EmailChannel {
	return &EmailChannel{DryRun: dryRun, Recipients: recipients, Mailer: m, Logger: log}
}

func (e *EmailChannel) Name() string { return "email" }

func (e *EmailChannel) Send(ctx context.Context, msg Message) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.DryRun || len(e.Recipients) == 0 || e.Mailer == nil {
		e.Logger.Info("DISPATCH", "Email stub invoked", map[string]interface{}{"case_id": msg.CaseId})
		return map[string]interface{}{
			"provider": "email_stub",
			"dry_run":  e.DryRun,
			"status":   "queued",
			"summary":  fmt.Sprintf("Verification email prepared for case %s", msg.CaseId),
		}, nil
	}

	alert := mailer.Alert{
		CaseId:     msg.CaseId,
		Severity:   msg.Severity,
		Confidence: msg.Confidence,
		Rationale:  msg.Rationale,
		Notes:      msg.Notes,
	}
	if err := e.Mailer.SendAlert(e.Recipients, alert); err != nil {
		return nil, fmt.Errorf("send alert mail: %w", err)
	}
	return map[string]interface{}{
		"provider":   "smtp",
		"dry_run":    false,
		"status":     "sent",
		"recipients": len(e.Recipients),
		"summary":    mailer.AlertSubject(alert),
	}, nil
}
