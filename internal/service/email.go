package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/chainforge/chainforge/internal/model"
)

// EmailService sends transactional mail through Resend. In dev mode every send
// is logged instead of delivered, so the full flow runs without an API key.
type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
}

func (s *EmailService) send(emailType, to, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", emailType, "to", to, "subject", subject)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(context.Background(), params)
	if err == nil {
		slog.Info("email sent", "type", emailType, "to", to)
	}
	return err
}

func (s *EmailService) SendWelcomeEmail(email, name string) error {
	dashboardURL := fmt.Sprintf("%s/app/dashboard", s.appURL)
	subject, body := welcomeEmailTemplate(name, dashboardURL, s.appName)
	return s.send("welcome", email, subject, body)
}

func (s *EmailService) SendGroupInviteEmail(email, inviterName, groupName, inviteCode string) error {
	joinURL := fmt.Sprintf("%s/join/%s", s.appURL, inviteCode)
	subject, body := groupInviteEmailTemplate(inviterName, groupName, joinURL, s.appName)
	return s.send("group_invite", email, subject, body)
}

// SendPeriodSummary mails one participant the outcome of a closed period,
// including their own penalty if they missed the target. Implements
// SummaryMailer for the transition scheduler.
func (s *EmailService) SendPeriodSummary(user *model.User, report *PeriodReport) error {
	subject, body := periodSummaryEmailTemplate(user, report, s.appName)
	return s.send("period_summary", user.Email, subject, body)
}
