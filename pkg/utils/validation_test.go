package utils

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  bool
		field    string
	}{
		{name: "valid", username: "Ann", email: "ann@x.com", password: "secret1"},
		{name: "missing username", username: "", email: "ann@x.com", password: "secret1", wantErr: true},
		{name: "blank email", username: "Ann", email: "   ", password: "secret1", wantErr: true},
		{name: "missing password", username: "Ann", email: "ann@x.com", password: "", wantErr: true},
		{name: "short password", username: "Ann", email: "ann@x.com", password: "12345", wantErr: true, field: "password"},
		{name: "exactly six", username: "Ann", email: "ann@x.com", password: "123456"},
		{name: "short multibyte password", username: "Ann", email: "ann@x.com", password: "日本語", wantErr: true, field: "password"},
		{name: "six multibyte characters", username: "Ann", email: "ann@x.com", password: "日本語日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistration(tt.username, tt.email, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRegistration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestValidateTitle(t *testing.T) {
	got, err := ValidateTitle("  Buy milk \n")
	if err != nil {
		t.Fatalf("ValidateTitle failed: %v", err)
	}
	if got != "Buy milk" {
		t.Errorf("ValidateTitle = %q, want %q", got, "Buy milk")
	}

	if _, err := ValidateTitle(" \t "); !errors.Is(err, ErrValidation) {
		t.Errorf("blank title: expected ErrValidation, got %v", err)
	}

	if _, err := ValidateTitle(strings.Repeat("é", MaxTitleLength)); err != nil {
		t.Errorf("title of %d characters: %v", MaxTitleLength, err)
	}
	if _, err := ValidateTitle(strings.Repeat("a", MaxTitleLength+1)); !errors.Is(err, ErrValidation) {
		t.Errorf("overlong title: expected ErrValidation, got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ann@X.com "); got != "ann@x.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}
