package mail

import (
	"context"
	"errors"
	"testing"
)

func TestDisabledMailerReturnsSentinel(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = mailer.Send(context.Background(), Message{To: []string{"a@example.com"}})
	if !errors.Is(err, ErrSMTPDisabled) {
		t.Fatalf("expected ErrSMTPDisabled, got %v", err)
	}
}

func TestEnabledConfigRequiresHostAndPort(t *testing.T) {
	if _, err := NewSMTPMailer(SMTPSettings{Enabled: true, Port: 587}); err == nil {
		t.Fatal("expected error for missing host")
	}
	if _, err := NewSMTPMailer(SMTPSettings{Enabled: true, Host: "mail.example.com"}); err == nil {
		t.Fatal("expected error for missing port")
	}
}

func TestUniqueAddresses(t *testing.T) {
	got := uniqueAddresses([]string{" a@example.com", "a@example.com", "", "b@example.com"})
	if len(got) != 2 {
		t.Fatalf("expected 2 addresses, got %v", got)
	}
	if got[0] != "a@example.com" || got[1] != "b@example.com" {
		t.Fatalf("unexpected addresses: %v", got)
	}
}
