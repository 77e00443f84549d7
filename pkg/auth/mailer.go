package auth

import (
	"context"
	"log"
)

// TokenSender delivers a password reset token to the account's email address.
type TokenSender interface {
	SendResetToken(ctx context.Context, email, token string) error
}

// LogMailer writes reset tokens to the process log instead of sending mail.
// It stands in for a real mail provider in development and test environments.
type LogMailer struct{}

// NewLogMailer creates a log-backed token sender
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// SendResetToken logs the reset token for the given address
func (m *LogMailer) SendResetToken(ctx context.Context, email, token string) error {
	log.Printf("[INFO] password reset token for %s: %s", email, token)
	return nil
}
