package authcore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	authcore "github.com/vocalis-health/authcore"
)

func TestPasswordResetRoundTrip(t *testing.T) {
	env := newTestEngine(t, nil)

	mustRegister(t, env, "alice@example.com", "old-password-1")

	if err := env.engine.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset error: %v", err)
	}
	secret := env.notifier.lastReset(t).Secret

	if err := env.engine.ConfirmPasswordReset(context.Background(), "alice@example.com", secret, "new-password-2"); err != nil {
		t.Fatalf("ConfirmPasswordReset error: %v", err)
	}

	if _, err := env.engine.Login(context.Background(), "alice@example.com", "old-password-1"); !errors.Is(err, authcore.ErrInvalidCredentials) {
		t.Fatalf("old password after reset = %v, want ErrInvalidCredentials", err)
	}
	if _, err := env.engine.Login(context.Background(), "alice@example.com", "new-password-2"); err != nil {
		t.Fatalf("new password login error: %v", err)
	}

	// Consumed in the same write that swapped the hash.
	if err := env.engine.ConfirmPasswordReset(context.Background(), "alice@example.com", secret, "another-pass-3"); !errors.Is(err, authcore.ErrTokenInvalid) {
		t.Fatalf("replayed reset secret = %v, want ErrTokenInvalid", err)
	}
}

func TestPasswordResetExpired(t *testing.T) {
	env := newTestEngine(t, nil)

	mustRegister(t, env, "bob@example.com", "old-password-1")

	if err := env.engine.RequestPasswordReset(context.Background(), "bob@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset error: %v", err)
	}
	secret := env.notifier.lastReset(t).Secret

	env.clock.Advance(2 * time.Hour)
	if err := env.engine.ConfirmPasswordReset(context.Background(), "bob@example.com", secret, "new-password-2"); !errors.Is(err, authcore.ErrTokenExpired) {
		t.Fatalf("expired reset = %v, want ErrTokenExpired", err)
	}

	// The hash is untouched on the expired path.
	if _, err := env.engine.Login(context.Background(), "bob@example.com", "old-password-1"); err != nil {
		t.Fatalf("old password after expired reset: %v", err)
	}
}

func TestPasswordResetSupersedes(t *testing.T) {
	env := newTestEngine(t, nil)

	mustRegister(t, env, "carol@example.com", "old-password-1")

	if err := env.engine.RequestPasswordReset(context.Background(), "carol@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset error: %v", err)
	}
	first := env.notifier.lastReset(t).Secret

	if err := env.engine.RequestPasswordReset(context.Background(), "carol@example.com"); err != nil {
		t.Fatalf("second RequestPasswordReset error: %v", err)
	}
	second := env.notifier.lastReset(t).Secret
	if first == second {
		t.Fatal("expected a fresh secret on re-request")
	}

	if err := env.engine.ConfirmPasswordReset(context.Background(), "carol@example.com", first, "new-password-2"); !errors.Is(err, authcore.ErrTokenInvalid) {
		t.Fatalf("superseded secret = %v, want ErrTokenInvalid", err)
	}
	if err := env.engine.ConfirmPasswordReset(context.Background(), "carol@example.com", second, "new-password-2"); err != nil {
		t.Fatalf("latest secret error: %v", err)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	env := newTestEngine(t, nil)

	// Generic success and no side effects.
	if err := env.engine.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("unknown email request = %v, want nil", err)
	}
	if env.notifier.resetCount() != 0 {
		t.Fatal("no secret should be delivered for an unknown email")
	}
	if _, err := env.repo.FindByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, authcore.ErrAccountNotFound) {
		t.Fatal("request must not create an account")
	}

	if err := env.engine.ConfirmPasswordReset(context.Background(), "ghost@example.com", "whatever", "new-password-2"); !errors.Is(err, authcore.ErrTokenInvalid) {
		t.Fatalf("confirm for unknown email = %v, want ErrTokenInvalid", err)
	}
}

func TestPasswordResetPolicyCheckedBeforeConsume(t *testing.T) {
	env := newTestEngine(t, nil)

	mustRegister(t, env, "dave@example.com", "old-password-1")

	if err := env.engine.RequestPasswordReset(context.Background(), "dave@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset error: %v", err)
	}
	secret := env.notifier.lastReset(t).Secret

	if err := env.engine.ConfirmPasswordReset(context.Background(), "dave@example.com", secret, "short"); !errors.Is(err, authcore.ErrPasswordPolicy) {
		t.Fatalf("weak new password = %v, want ErrPasswordPolicy", err)
	}

	// A policy rejection must not burn the secret.
	if err := env.engine.ConfirmPasswordReset(context.Background(), "dave@example.com", secret, "new-password-2"); err != nil {
		t.Fatalf("confirm after policy rejection: %v", err)
	}
}
