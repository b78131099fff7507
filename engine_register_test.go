package authcore_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	authcore "github.com/vocalis-health/authcore"
	"github.com/vocalis-health/authcore/token"
)

func TestRegisterIssuesVerifiableTokens(t *testing.T) {
	env := newTestEngine(t, nil)

	result := mustRegister(t, env, "alice@example.com", "password123")
	if result.AccountID == "" {
		t.Fatal("expected a repository-assigned account ID")
	}
	if result.Role != authcore.RoleUser {
		t.Fatalf("Role = %q, want %q", result.Role, authcore.RoleUser)
	}

	claims, err := env.engine.ValidateAccess(result.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess error: %v", err)
	}
	if claims.AccountID != result.AccountID {
		t.Fatalf("claims.AccountID = %q, want %q", claims.AccountID, result.AccountID)
	}
	if claims.Role != string(authcore.RoleUser) {
		t.Fatalf("claims.Role = %q, want user", claims.Role)
	}
}

func TestRegisterPersistsUnverifiedAccount(t *testing.T) {
	env := newTestEngine(t, nil)

	mustRegister(t, env, "bob@example.com", "password123")

	account, err := env.repo.FindByEmail(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if !account.Active {
		t.Fatal("expected a new account to be active")
	}
	if account.EmailVerified {
		t.Fatal("expected a new account to start unverified")
	}
	if !strings.HasPrefix(account.PasswordHash, "$argon2id$") {
		t.Fatalf("stored hash is not Argon2id PHC: %q", account.PasswordHash)
	}
	if account.VerificationDigest == "" {
		t.Fatal("expected an outstanding verification digest")
	}
	if account.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	// The notifier receives the secret; only its digest is at rest.
	sent := env.notifier.lastVerification(t)
	if sent.Email != "bob@example.com" {
		t.Fatalf("secret delivered to %q", sent.Email)
	}
	if token.Digest(sent.Secret) != account.VerificationDigest {
		t.Fatal("stored digest does not match the delivered secret")
	}
	if sent.Secret == account.VerificationDigest {
		t.Fatal("cleartext secret must not be stored")
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	env := newTestEngine(t, nil)

	mustRegister(t, env, "  Carol@Example.COM ", "password123")

	if _, err := env.repo.FindByEmail(context.Background(), "carol@example.com"); err != nil {
		t.Fatalf("normalized lookup failed: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEngine(t, nil)

	mustRegister(t, env, "dave@example.com", "password123")

	_, err := env.engine.Register(context.Background(), authcore.RegisterRequest{
		Email:    "DAVE@example.com",
		Password: "different-pass",
	})
	if !errors.Is(err, authcore.ErrEmailExists) {
		t.Fatalf("duplicate register = %v, want ErrEmailExists", err)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	env := newTestEngine(t, nil)

	for _, email := range []string{"", "no-at-sign", "@nobody", "trailing@", "has space@x.com"} {
		_, err := env.engine.Register(context.Background(), authcore.RegisterRequest{Email: email, Password: "password123"})
		if !errors.Is(err, authcore.ErrInvalidInput) {
			t.Fatalf("Register(%q) = %v, want ErrInvalidInput", email, err)
		}
	}

	_, err := env.engine.Register(context.Background(), authcore.RegisterRequest{Email: "ok@example.com", Password: "short"})
	if !errors.Is(err, authcore.ErrPasswordPolicy) {
		t.Fatalf("short password = %v, want ErrPasswordPolicy", err)
	}
}
