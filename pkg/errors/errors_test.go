package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrEmailNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestVerificationFailuresShareGenericMessages(t *testing.T) {
	if ErrCodeInvalid.Message != "Invalid or expired verification code" {
		t.Fatalf("unexpected code-invalid message: %s", ErrCodeInvalid.Message)
	}
	if ErrVerificationInvalid.Message != "Invalid or expired verification. Please start over." {
		t.Fatalf("unexpected verification-invalid message: %s", ErrVerificationInvalid.Message)
	}
	if ErrCodeInvalid.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", ErrCodeInvalid.StatusCode)
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected bad request code, got %s", err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("expected custom message, got %s", err.Message)
	}
}
