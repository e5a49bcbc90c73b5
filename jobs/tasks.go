package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeStaffInviteEmail is the task type for staff invitation emails.
	TaskTypeStaffInviteEmail = "staff:invite_email"
	// TaskTypeInvitationSweep clears expired invitation tokens.
	TaskTypeInvitationSweep = "staff:invitation_sweep"
	// TaskTypeCacheWarmup pre-resolves permission sets for active accounts.
	TaskTypeCacheWarmup = "authz:cache_warmup"
)

// StaffInvitePayload describes the information required to send an invitation.
type StaffInvitePayload struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Token     string `json:"token"`
}

// NewStaffInviteTask constructs an Asynq task.
func NewStaffInviteTask(payload StaffInvitePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeStaffInviteEmail, data), nil
}

// SMTPConfig carries the mail relay settings for outbound invitations.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// StaffInviteMailer sends the invitation email with the one-time token link.
type StaffInviteMailer struct {
	SMTP   SMTPConfig
	Logger *slog.Logger

	// send is swappable in tests.
	send func(addr, from string, to []string, msg []byte) error
}

// NewStaffInviteMailer wires the mailer against a plain SMTP relay.
func NewStaffInviteMailer(cfg SMTPConfig, logger *slog.Logger) *StaffInviteMailer {
	return &StaffInviteMailer{
		SMTP:   cfg,
		Logger: logger,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Handle processes TaskTypeStaffInviteEmail tasks.
func (m *StaffInviteMailer) Handle(ctx context.Context, t *asynq.Task) error {
	var payload StaffInvitePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Email == "" || payload.Token == "" {
		return asynq.SkipRetry
	}

	addr := fmt.Sprintf("%s:%d", m.SMTP.Host, m.SMTP.Port)
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: You have been invited to Tripora\r\n\r\nHi %s,\r\n\r\nAn account has been created for you. Sign in with the temporary credentials you received and set a new password.\r\n\r\nInvitation token: %s\r\n",
		m.SMTP.From, payload.Email, payload.FirstName, payload.Token,
	)
	if err := m.send(addr, m.SMTP.From, []string{payload.Email}, []byte(msg)); err != nil {
		if m.Logger != nil {
			m.Logger.Error("send invitation email", slog.String("email", payload.Email), slog.Any("error", err))
		}
		return err
	}
	if m.Logger != nil {
		m.Logger.Info("invitation email sent", slog.String("email", payload.Email))
	}
	return nil
}
