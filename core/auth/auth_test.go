package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-horse")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "s3cret-horse" {
		t.Fatal("hash must not equal the plain password")
	}
	if err := VerifyPassword("s3cret-horse", hash); err != nil {
		t.Errorf("expected matching password to verify, got %v", err)
	}
	if err := VerifyPassword("wrong-horse", hash); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("expected ErrPasswordMismatch, got %v", err)
	}

	t.Run("CorruptHash", func(t *testing.T) {
		err := VerifyPassword("s3cret-horse", "not-a-bcrypt-hash")
		if err == nil || errors.Is(err, ErrPasswordMismatch) {
			t.Errorf("a corrupt hash must not look like a wrong password, got %v", err)
		}
	})
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"Short", "seven77", ErrPasswordTooShort},
		{"MinimumRunes", "ééééééé1", nil},
		{"Long", strings.Repeat("a", 73), ErrPasswordTooLong},
		{"MaxBytes", strings.Repeat("a", 72), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePassword(tt.password); !errors.Is(err, tt.want) {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tt.password, err, tt.want)
			}
		})
	}

	if _, err := HashPassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("HashPassword must apply the policy, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.GenerateToken(Actor{UserID: 7, Username: "ann", IsStaff: true})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := issuer.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	actor := claims.Actor()
	if actor.UserID != 7 || actor.Username != "ann" || !actor.IsStaff {
		t.Errorf("unexpected actor %+v", actor)
	}
}

func TestParseTokenRejects(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	valid, err := issuer.GenerateToken(Actor{UserID: 1, Username: "bob"})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokenIssuer("other-secret", time.Hour)
		if _, err := other.ParseToken(valid); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		past := NewTokenIssuer("test-secret", time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		old, err := past.GenerateToken(Actor{UserID: 1})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := issuer.ParseToken(old); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
		}
	})

	t.Run("Tampered", func(t *testing.T) {
		parts := strings.Split(valid, ".")
		tampered := parts[0] + "." + parts[1] + "x." + parts[2]
		if _, err := issuer.ParseToken(tampered); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := issuer.ParseToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestRequireStaff(t *testing.T) {
	tests := []struct {
		name  string
		actor *Actor
		want  error
	}{
		{"Anonymous", nil, ErrUnauthorized},
		{"ZeroID", &Actor{}, ErrUnauthorized},
		{"Member", &Actor{UserID: 2, Username: "m"}, ErrForbidden},
		{"Staff", &Actor{UserID: 3, Username: "s", IsStaff: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := RequireStaff(tt.actor); !errors.Is(err, tt.want) {
				t.Errorf("RequireStaff() = %v, want %v", err, tt.want)
			}
		})
	}

	if err := RequireAuthenticated(&Actor{UserID: 2}); err != nil {
		t.Errorf("member should be authenticated, got %v", err)
	}
	var anon *Actor
	if anon.ID() != 0 {
		t.Error("nil actor should report id 0")
	}
}
