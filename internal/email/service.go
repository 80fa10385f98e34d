package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/medrefer/referral-api/internal/model"
)

type Service interface {
	SendReferralCreated(ctx context.Context, to string, referral *model.Referral) error
	SendReferralStatusChanged(ctx context.Context, to string, referral *model.Referral) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendReferralCreated(ctx context.Context, to string, referral *model.Referral) error {
	subject := fmt.Sprintf("New %s referral %s", referral.Priority, referral.ReferralCode)
	body := fmt.Sprintf(
		"A referral for %s (medical ID %s) has been created by %s.\n\nReason: %s\n",
		referral.PatientName, referral.MedicalID, referral.ReferringName, referral.Reason,
	)
	if referral.AmbulanceRequired {
		body += "\nAmbulance transport is required.\n"
	}
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) SendReferralStatusChanged(ctx context.Context, to string, referral *model.Referral) error {
	subject := fmt.Sprintf("Referral %s is now %s", referral.ReferralCode, referral.Status)
	body := fmt.Sprintf(
		"The referral for %s (medical ID %s) changed status to %s.\n",
		referral.PatientName, referral.MedicalID, referral.Status,
	)
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, content string) error {
	return s.send(ctx, to, subject, content)
}

func (s *smtpService) send(ctx context.Context, to, subject, body string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
