package auth

import (
	"errors"
	"testing"
	"time"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword("s3cret", hash); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword("wrong", hash); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestTokenIssueAndParse(t *testing.T) {
	m := NewTokenManager("0123456789abcdef", time.Hour)

	token, err := m.Issue(42, "ana")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	userID, claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if userID != 42 || claims.Username != "ana" {
		t.Fatalf("unexpected claims: %d %#v", userID, claims)
	}
}

func TestTokenRejected(t *testing.T) {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewTokenManager("0123456789abcdef", time.Minute)
	m.now = func() time.Time { return issued }

	token, err := m.Issue(7, "rui")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name  string
		mgr   *TokenManager
		token string
	}{
		{
			name:  "expired",
			mgr:   &TokenManager{secret: m.secret, ttl: m.ttl, now: func() time.Time { return issued.Add(time.Hour) }},
			token: token,
		},
		{
			name:  "wrong secret",
			mgr:   &TokenManager{secret: []byte("fedcba9876543210"), ttl: m.ttl, now: m.now},
			token: token,
		},
		{
			name:  "garbage",
			mgr:   m,
			token: "not-a-token",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := tc.mgr.Parse(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
