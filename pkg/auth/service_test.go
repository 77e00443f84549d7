package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

type fakeSender struct {
	emails []string
	tokens []string
	err    error
}

func (f *fakeSender) SendResetToken(ctx context.Context, email, token string) error {
	if f.err != nil {
		return f.err
	}
	f.emails = append(f.emails, email)
	f.tokens = append(f.tokens, token)
	return nil
}

func newTestService(t *testing.T, sender TokenSender) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewService(db, NewTokenIssuer("secret", time.Hour), sender, time.Hour), mock
}

func TestRequestPasswordResetDeliversToken(t *testing.T) {
	sender := &fakeSender{}
	service, mock := newTestService(t, sender)

	mock.ExpectQuery("SELECT id FROM users").
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1"))
	mock.ExpectExec("INSERT INTO password_resets").
		WillReturnResult(sqlmock.NewResult(0, 1))

	token, err := service.RequestPasswordReset(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token for a registered email")
	}

	if len(sender.emails) != 1 || sender.emails[0] != "user@example.com" {
		t.Fatalf("expected one delivery to user@example.com, got %v", sender.emails)
	}
	if sender.tokens[0] != token {
		t.Errorf("delivered token %q does not match issued token %q", sender.tokens[0], token)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRequestPasswordResetUnknownEmailSendsNothing(t *testing.T) {
	sender := &fakeSender{}
	service, mock := newTestService(t, sender)

	mock.ExpectQuery("SELECT id FROM users").
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	token, err := service.RequestPasswordReset(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if token != "" {
		t.Errorf("unknown email must not yield a token, got %q", token)
	}
	if len(sender.emails) != 0 {
		t.Errorf("nothing may be delivered for an unknown email, got %v", sender.emails)
	}
}

func TestRequestPasswordResetDeliveryFailureSurfaces(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp unreachable")}
	service, mock := newTestService(t, sender)

	mock.ExpectQuery("SELECT id FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1"))
	mock.ExpectExec("INSERT INTO password_resets").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := service.RequestPasswordReset(context.Background(), "user@example.com"); err == nil {
		t.Fatal("expected delivery failure to surface")
	}
}

func TestResetPasswordConsumesToken(t *testing.T) {
	service, mock := newTestService(t, &fakeSender{})

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE password_resets SET used = TRUE").
		WithArgs("token-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))
	mock.ExpectExec("UPDATE users SET password_hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := service.ResetPassword(context.Background(), "token-1", "new-password-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestResetPasswordUsedTokenRejected(t *testing.T) {
	service, mock := newTestService(t, &fakeSender{})

	// The consume statement only matches unused, unexpired tokens, so a
	// second attempt with the same token finds no row.
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE password_resets SET used = TRUE").
		WithArgs("token-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := service.ResetPassword(context.Background(), "token-1", "new-password-1")
	if !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}
}
